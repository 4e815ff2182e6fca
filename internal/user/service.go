package user

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"castive/infrastructure"
)

// VerificationMailer re-sends an address confirmation when an account
// changes its email. Implemented by the auth flow manager.
type VerificationMailer interface {
	SendVerificationMail(email string) error
}

// SessionRevoker drops every session of an account. Implemented by the
// session manager; account deletion uses it.
type SessionRevoker interface {
	LogoutAll(ctx context.Context, userID string) error
}

type Service struct {
	repo    Repository
	mailer  VerificationMailer
	revoker SessionRevoker
}

func NewService(repo Repository, mailer VerificationMailer, revoker SessionRevoker) *Service {
	return &Service{repo: repo, mailer: mailer, revoker: revoker}
}

// GetProfile returns the public profile of target as seen by viewer.
// Blocked viewers are told the account does not exist.
func (s *Service) GetProfile(ctx context.Context, viewerID, targetID uuid.UUID) (*Profile, error) {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return nil, err
	}

	if viewerID != targetID {
		blocked, err := s.repo.IsBlocked(ctx, targetID, viewerID)
		if err != nil {
			return nil, err
		}
		if blocked {
			return nil, fmt.Errorf("user: %w", infrastructure.ErrNotFound)
		}
	}

	return target.Profile(), nil
}

// Search finds accounts by username fragment. Accounts that blocked the
// viewer never show up in the results.
func (s *Service) Search(ctx context.Context, viewer *User, query string) ([]*Profile, error) {
	if query == "" || len(query) > 16 {
		return nil, fmt.Errorf("query must be 1-16 characters: %w", infrastructure.ErrBadRequest)
	}

	users, err := s.repo.SearchByUsername(ctx, query, viewer.ID)
	if err != nil {
		return nil, err
	}

	profiles := make([]*Profile, 0, len(users))
	for _, u := range users {
		profiles = append(profiles, u.Profile())
	}
	return profiles, nil
}

// UpdateProfile applies username/email changes. An email change clears the
// verified flag and triggers a fresh verification mail.
func (s *Service) UpdateProfile(ctx context.Context, u *User, username, email *string) (*User, error) {
	if username != nil && *username != u.Username {
		u.Username = *username
	}

	if email != nil {
		newEmail := strings.ToLower(*email)
		if newEmail != u.Email.Value {
			u.Email.Value = newEmail
			u.Email.Verified = false
			if err := s.mailer.SendVerificationMail(newEmail); err != nil {
				return nil, err
			}
		}
	}

	if err := s.repo.Update(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteAccount revokes every session first so no live token outlasts the
// account record.
func (s *Service) DeleteAccount(ctx context.Context, u *User) error {
	if err := s.revoker.LogoutAll(ctx, u.ID.String()); err != nil {
		return err
	}
	return s.repo.Delete(ctx, u.ID)
}

func (s *Service) Follow(ctx context.Context, follower *User, targetID uuid.UUID) error {
	if follower.ID == targetID {
		return fmt.Errorf("cannot follow yourself: %w", infrastructure.ErrBadRequest)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	blocked, err := s.repo.IsBlocked(ctx, targetID, follower.ID)
	if err != nil {
		return err
	}
	if blocked {
		return fmt.Errorf("user: %w", infrastructure.ErrNotFound)
	}

	return s.repo.AddFollowing(ctx, follower, target)
}

func (s *Service) Unfollow(ctx context.Context, follower *User, targetID uuid.UUID) error {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	return s.repo.RemoveFollowing(ctx, follower, target)
}

// Block also severs the follow edges in both directions.
func (s *Service) Block(ctx context.Context, blocker *User, targetID uuid.UUID) error {
	if blocker.ID == targetID {
		return fmt.Errorf("cannot block yourself: %w", infrastructure.ErrBadRequest)
	}

	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}

	if err := s.repo.RemoveFollowing(ctx, blocker, target); err != nil {
		return err
	}
	if err := s.repo.RemoveFollowing(ctx, target, blocker); err != nil {
		return err
	}
	return s.repo.AddBlocked(ctx, blocker, target)
}

func (s *Service) Unblock(ctx context.Context, blocker *User, targetID uuid.UUID) error {
	target, err := s.repo.GetByID(ctx, targetID)
	if err != nil {
		return err
	}
	return s.repo.RemoveBlocked(ctx, blocker, target)
}
