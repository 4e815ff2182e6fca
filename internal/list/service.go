package list

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"castive/infrastructure"
	"castive/internal/user"
)

type Service struct {
	lists Repository
	users user.Repository
}

func NewService(lists Repository, users user.Repository) *Service {
	return &Service{lists: lists, users: users}
}

func (s *Service) Create(ctx context.Context, owner *user.User, title, description string, private bool) (*List, error) {
	if title == "" || len(title) > 25 {
		return nil, fmt.Errorf("title must be 1-25 characters: %w", infrastructure.ErrBadRequest)
	}
	if len(description) > 100 {
		return nil, fmt.Errorf("description must be at most 100 characters: %w", infrastructure.ErrBadRequest)
	}

	l := &List{
		Title:       title,
		Description: description,
		OwnerID:     owner.ID,
		Private:     private,
	}
	if err := s.lists.Create(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

// Get enforces visibility: private lists only for their owner, and owners
// who blocked the viewer stay invisible.
func (s *Service) Get(ctx context.Context, viewer *user.User, id uuid.UUID) (*List, error) {
	l, err := s.lists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if l.OwnerID == viewer.ID {
		return l, nil
	}
	if l.Private {
		return nil, fmt.Errorf("list: %w", infrastructure.ErrNotFound)
	}

	blocked, err := s.users.IsBlocked(ctx, l.OwnerID, viewer.ID)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, fmt.Errorf("list: %w", infrastructure.ErrNotFound)
	}
	return l, nil
}

func (s *Service) getOwned(ctx context.Context, caller *user.User, id uuid.UUID) (*List, error) {
	l, err := s.lists.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if l.OwnerID != caller.ID {
		return nil, infrastructure.ErrForbidden
	}
	return l, nil
}

func (s *Service) Update(ctx context.Context, caller *user.User, id uuid.UUID, title, description *string, private *bool) (*List, error) {
	l, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	if title != nil {
		if *title == "" || len(*title) > 25 {
			return nil, fmt.Errorf("title must be 1-25 characters: %w", infrastructure.ErrBadRequest)
		}
		l.Title = *title
	}
	if description != nil {
		if len(*description) > 100 {
			return nil, fmt.Errorf("description must be at most 100 characters: %w", infrastructure.ErrBadRequest)
		}
		l.Description = *description
	}
	if private != nil {
		l.Private = *private
	}

	if err := s.lists.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) Delete(ctx context.Context, caller *user.User, id uuid.UUID) error {
	l, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.lists.Delete(ctx, l)
}

func (s *Service) AddItem(ctx context.Context, caller *user.User, id uuid.UUID, itemID string) (*List, error) {
	if itemID == "" {
		return nil, fmt.Errorf("item id is required: %w", infrastructure.ErrBadRequest)
	}

	l, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if l.HasItem(itemID) {
		return l, nil
	}

	l.Items = append(l.Items, itemID)
	if err := s.lists.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) RemoveItem(ctx context.Context, caller *user.User, id uuid.UUID, itemID string) (*List, error) {
	l, err := s.getOwned(ctx, caller, id)
	if err != nil {
		return nil, err
	}

	kept := l.Items[:0]
	for _, item := range l.Items {
		if item != itemID {
			kept = append(kept, item)
		}
	}
	l.Items = kept

	if err := s.lists.Update(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *Service) OwnLists(ctx context.Context, caller *user.User) ([]*List, error) {
	return s.lists.GetByOwner(ctx, caller.ID)
}

// FollowList puts a (visible) list into the caller's library.
func (s *Service) FollowList(ctx context.Context, caller *user.User, id uuid.UUID) error {
	l, err := s.Get(ctx, caller, id)
	if err != nil {
		return err
	}
	return s.lists.AddFollower(ctx, l, caller)
}

func (s *Service) UnfollowList(ctx context.Context, caller *user.User, id uuid.UUID) error {
	l, err := s.lists.GetByID(ctx, id)
	if err != nil {
		return err
	}
	return s.lists.RemoveFollower(ctx, l, caller)
}

func (s *Service) Library(ctx context.Context, caller *user.User) ([]*List, error) {
	return s.lists.GetLibrary(ctx, caller.ID)
}

func (s *Service) Search(ctx context.Context, caller *user.User, query string) ([]*List, error) {
	if query == "" {
		return nil, fmt.Errorf("query is required: %w", infrastructure.ErrBadRequest)
	}
	return s.lists.Search(ctx, query, caller.ID)
}
