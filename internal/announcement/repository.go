package announcement

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"castive/infrastructure"
)

type Repository interface {
	Create(ctx context.Context, a *Announcement) error
	GetAll(ctx context.Context) ([]*Announcement, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type gormRepository struct {
	db *gorm.DB
}

func NewGormRepository(db *gorm.DB) Repository {
	return &gormRepository{db: db}
}

func (r *gormRepository) Create(ctx context.Context, a *Announcement) error {
	if err := r.db.WithContext(ctx).Create(a).Error; err != nil {
		return fmt.Errorf("failed to create announcement: %w", err)
	}
	return nil
}

func (r *gormRepository) GetAll(ctx context.Context) ([]*Announcement, error) {
	var announcements []*Announcement
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&announcements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load announcements: %w", err)
	}
	return announcements, nil
}

func (r *gormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	res := r.db.WithContext(ctx).Delete(&Announcement{}, "id = ?", id)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrRecordNotFound) {
			return fmt.Errorf("announcement: %w", infrastructure.ErrNotFound)
		}
		return fmt.Errorf("failed to delete announcement: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("announcement: %w", infrastructure.ErrNotFound)
	}
	return nil
}
