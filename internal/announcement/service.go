package announcement

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"castive/infrastructure"
	"castive/internal/cache"
	"castive/internal/user"
)

const (
	cacheKey = "ANNOUNCEMENTS"
	cacheTTL = time.Hour
)

type Service struct {
	repo   Repository
	store  cache.Store
	logger *zap.Logger
}

func NewService(repo Repository, store cache.Store, logger *zap.Logger) *Service {
	return &Service{repo: repo, store: store, logger: logger}
}

// GetAll serves the announcement feed cache-aside: the cached JSON copy
// wins, a miss falls through to the database and repopulates it. Cache
// failures degrade to database reads.
func (s *Service) GetAll(ctx context.Context) ([]*Announcement, error) {
	if raw, err := s.store.Get(ctx, cacheKey); err == nil {
		var announcements []*Announcement
		if err := json.Unmarshal([]byte(raw), &announcements); err != nil {
			s.logger.Warn("discarding unreadable announcement cache", zap.Error(err))
		} else {
			return announcements, nil
		}
	}

	announcements, err := s.repo.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(announcements); err == nil {
		if err := s.store.Set(ctx, cacheKey, string(raw), cacheTTL); err != nil {
			s.logger.Warn("failed to cache announcements", zap.Error(err))
		}
	}
	return announcements, nil
}

func (s *Service) Create(ctx context.Context, author *user.User, title, body string) (*Announcement, error) {
	if title == "" || len(title) > 100 {
		return nil, fmt.Errorf("title must be 1-100 characters: %w", infrastructure.ErrBadRequest)
	}
	if body == "" || len(body) > 1000 {
		return nil, fmt.Errorf("body must be 1-1000 characters: %w", infrastructure.ErrBadRequest)
	}

	a := &Announcement{Title: title, Body: body, AuthorID: author.ID}
	if err := s.repo.Create(ctx, a); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return a, nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Service) invalidate(ctx context.Context) {
	if _, err := s.store.Del(ctx, cacheKey); err != nil {
		s.logger.Warn("failed to invalidate announcement cache", zap.Error(err))
	}
}
