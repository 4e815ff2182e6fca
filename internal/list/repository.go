package list

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"castive/infrastructure"
	"castive/internal/user"
)

const searchLimit = 25

type Repository interface {
	Create(ctx context.Context, l *List) error
	GetByID(ctx context.Context, id uuid.UUID) (*List, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*List, error)
	Update(ctx context.Context, l *List) error
	Delete(ctx context.Context, l *List) error

	AddFollower(ctx context.Context, l *List, u *user.User) error
	RemoveFollower(ctx context.Context, l *List, u *user.User) error
	GetLibrary(ctx context.Context, userID uuid.UUID) ([]*List, error)

	// Search matches public lists by title/description, skipping lists
	// whose owner has blocked the viewer.
	Search(ctx context.Context, query string, viewerID uuid.UUID) ([]*List, error)
}

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, l *List) error {
	if err := r.db.WithContext(ctx).Create(l).Error; err != nil {
		return fmt.Errorf("failed to create list: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*List, error) {
	var l List
	if err := r.db.WithContext(ctx).First(&l, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("list: %w", infrastructure.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to load list: %w", err)
	}
	return &l, nil
}

func (r *gormRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*List, error) {
	var lists []*List
	err := r.db.WithContext(ctx).
		Where("owner_id = ?", ownerID).
		Order("created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load lists: %w", err)
	}
	return lists, nil
}

func (r *gormRepository) Update(ctx context.Context, l *List) error {
	if err := r.db.WithContext(ctx).Save(l).Error; err != nil {
		return fmt.Errorf("failed to update list: %w", err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, l *List) error {
	if err := r.db.WithContext(ctx).Select("Followers").Delete(l).Error; err != nil {
		return fmt.Errorf("failed to delete list: %w", err)
	}
	return nil
}

func (r *gormRepository) AddFollower(ctx context.Context, l *List, u *user.User) error {
	return r.db.WithContext(ctx).Model(l).Association("Followers").Append(u)
}

func (r *gormRepository) RemoveFollower(ctx context.Context, l *List, u *user.User) error {
	return r.db.WithContext(ctx).Model(l).Association("Followers").Delete(u)
}

func (r *gormRepository) GetLibrary(ctx context.Context, userID uuid.UUID) ([]*List, error) {
	var lists []*List
	err := r.db.WithContext(ctx).
		Joins("JOIN list_followers lf ON lf.list_id = lists.id").
		Where("lf.user_id = ?", userID).
		Order("lists.created_at DESC").
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load library: %w", err)
	}
	return lists, nil
}

func (r *gormRepository) Search(ctx context.Context, query string, viewerID uuid.UUID) ([]*List, error) {
	pattern := "%" + query + "%"
	var lists []*List
	err := r.db.WithContext(ctx).
		Where("private = false").
		Where("title ILIKE ? OR description ILIKE ?", pattern, pattern).
		Where("NOT EXISTS (SELECT 1 FROM user_blocked ub WHERE ub.user_id = lists.owner_id AND ub.blocked_id = ?)", viewerID).
		Limit(searchLimit).
		Find(&lists).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search lists: %w", err)
	}
	return lists, nil
}
