package user

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"castive/infrastructure"
)

type Repository interface {
	Create(ctx context.Context, u *User) error
	GetByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	Update(ctx context.Context, u *User) error
	Delete(ctx context.Context, id uuid.UUID) error

	AddFollowing(ctx context.Context, u, target *User) error
	RemoveFollowing(ctx context.Context, u, target *User) error
	AddBlocked(ctx context.Context, u, target *User) error
	RemoveBlocked(ctx context.Context, u, target *User) error
	IsBlocked(ctx context.Context, ownerID, viewerID uuid.UUID) (bool, error)

	// SearchByUsername matches accounts by username, skipping accounts
	// that blocked the viewer.
	SearchByUsername(ctx context.Context, query string, viewerID uuid.UUID) ([]*User, error)
}

const searchLimit = 25

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("username or email taken: %w", infrastructure.ErrConflict)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *gormRepository) GetByID(ctx context.Context, id uuid.UUID) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (r *gormRepository) GetByEmail(ctx context.Context, email string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "email_value = ?", email).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (r *gormRepository) GetByUsername(ctx context.Context, username string) (*User, error) {
	var u User
	if err := r.db.WithContext(ctx).First(&u, "lower(username) = lower(?)", username).Error; err != nil {
		return nil, notFoundOr(err, "user")
	}
	return &u, nil
}

func (r *gormRepository) Update(ctx context.Context, u *User) error {
	if err := r.db.WithContext(ctx).Save(u).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	return nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	if err := r.db.WithContext(ctx).Delete(&User{}, "id = ?", id).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

func (r *gormRepository) AddFollowing(ctx context.Context, u, target *User) error {
	return r.db.WithContext(ctx).Model(u).Association("Following").Append(target)
}

func (r *gormRepository) RemoveFollowing(ctx context.Context, u, target *User) error {
	return r.db.WithContext(ctx).Model(u).Association("Following").Delete(target)
}

func (r *gormRepository) AddBlocked(ctx context.Context, u, target *User) error {
	return r.db.WithContext(ctx).Model(u).Association("Blocked").Append(target)
}

func (r *gormRepository) RemoveBlocked(ctx context.Context, u, target *User) error {
	return r.db.WithContext(ctx).Model(u).Association("Blocked").Delete(target)
}

func (r *gormRepository) IsBlocked(ctx context.Context, ownerID, viewerID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Table("user_blocked").
		Where("user_id = ? AND blocked_id = ?", ownerID, viewerID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check block state: %w", err)
	}
	return count > 0, nil
}

func (r *gormRepository) SearchByUsername(ctx context.Context, query string, viewerID uuid.UUID) ([]*User, error) {
	var users []*User
	err := r.db.WithContext(ctx).
		Where("username ILIKE ?", "%"+query+"%").
		Where("NOT EXISTS (SELECT 1 FROM user_blocked ub WHERE ub.user_id = users.id AND ub.blocked_id = ?)", viewerID).
		Limit(searchLimit).
		Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("failed to search users: %w", err)
	}
	return users, nil
}

func notFoundOr(err error, entity string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", entity, infrastructure.ErrNotFound)
	}
	return fmt.Errorf("failed to load %s: %w", entity, err)
}
