package sessions

import (
	"context"
	"fmt"

	"castive/infrastructure"
	"castive/internal/user"
	"castive/pkg/jwt"
)

// Manager owns the access/refresh token lifecycle: issuance at login,
// rotation on refresh, revocation on logout. Tokens are only as alive as
// their ledger entry.
type Manager struct {
	codec  *jwt.Codec
	ledger *Ledger
	users  user.Repository
}

func NewManager(codec *jwt.Codec, ledger *Ledger, users user.Repository) *Manager {
	return &Manager{codec: codec, ledger: ledger, users: users}
}

// Login validates the credential and issues a fresh pair. An unknown account
// and a wrong password return the same error so callers cannot probe which
// usernames exist.
func (m *Manager) Login(ctx context.Context, username, email, password string) (*TokenPair, *user.User, error) {
	var (
		u   *user.User
		err error
	)
	switch {
	case username != "":
		u, err = m.users.GetByUsername(ctx, username)
	case email != "":
		u, err = m.users.GetByEmail(ctx, email)
	default:
		return nil, nil, fmt.Errorf("username or email required: %w", infrastructure.ErrBadRequest)
	}
	if err != nil {
		return nil, nil, infrastructure.ErrInvalidCredentials
	}

	if !u.CheckPassword(password) {
		return nil, nil, infrastructure.ErrInvalidCredentials
	}

	pair, err := m.Issue(ctx, u.ID.String())
	if err != nil {
		return nil, nil, err
	}
	return pair, u, nil
}

// Issue signs and records a new access/refresh pair for userID. A failed
// ledger write fails the whole issuance: a token the ledger does not know
// about would be indistinguishable from a revoked one.
func (m *Manager) Issue(ctx context.Context, userID string) (*TokenPair, error) {
	accessToken, err := m.codec.Sign(jwt.KindAccess, userID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if err := m.ledger.PutAccess(ctx, accessToken, userID, m.codec.TTL(jwt.KindAccess)); err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	refreshToken, err := m.codec.Sign(jwt.KindRefresh, userID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if err := m.ledger.PutRefresh(ctx, refreshToken, userID, m.codec.TTL(jwt.KindRefresh)); err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	return &TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}

// Refresh rotates a pair. Refresh tokens are single-use: the ledger delete
// reports whether this call removed the entry, so of two concurrent
// refreshes with the same pair exactly one consumes it and succeeds.
//
// The order of the checks matters; audience match comes before the refresh
// token is consumed.
func (m *Manager) Refresh(ctx context.Context, accessToken, refreshToken string) (*TokenPair, error) {
	// The access token has likely expired; its signature is still proof of
	// the prior identity binding.
	accessClaims, err := m.codec.Verify(jwt.KindAccess, accessToken, true)
	if err != nil {
		return nil, infrastructure.ErrUnauthorized
	}
	userID := accessClaims.Audience

	if err := m.ledger.DeleteAccess(ctx, accessToken, userID); err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}

	refreshClaims, err := m.codec.Verify(jwt.KindRefresh, refreshToken, false)
	if err != nil {
		return nil, infrastructure.ErrUnauthorized
	}

	// A refresh token presented with an access token of another account is
	// someone mixing sessions.
	if refreshClaims.Audience != userID {
		return nil, infrastructure.ErrUnauthorized
	}

	taken, err := m.ledger.ConsumeRefresh(ctx, refreshToken, userID)
	if err != nil {
		return nil, fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if !taken {
		// Revoked, or already consumed by a concurrent refresh.
		return nil, infrastructure.ErrUnauthorized
	}

	return m.Issue(ctx, userID)
}

// Logout revokes one session. The refresh token may be expired; it only has
// to be structurally valid and belong to the calling account.
func (m *Manager) Logout(ctx context.Context, callerID, accessToken, refreshToken string) error {
	refreshClaims, err := m.codec.Verify(jwt.KindRefresh, refreshToken, true)
	if err != nil {
		return infrastructure.ErrUnauthorized
	}

	userID := refreshClaims.Audience
	if userID != callerID {
		return infrastructure.ErrUnauthorized
	}

	if err := m.ledger.DeleteRefresh(ctx, refreshToken, userID); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if err := m.ledger.DeleteAccess(ctx, accessToken, userID); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	return nil
}

// LogoutAll revokes every session of the account. Idempotent; zero sessions
// is a success. Best-effort with respect to concurrent logins, see
// Ledger.DeleteAllForUser.
func (m *Manager) LogoutAll(ctx context.Context, userID string) error {
	if err := m.ledger.DeleteAllForUser(ctx, userID); err != nil {
		return fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	return nil
}

// Authenticate is the per-request check behind the auth gate: signature and
// expiry first, then the ledger.
func (m *Manager) Authenticate(ctx context.Context, accessToken string) (string, error) {
	claims, err := m.codec.Verify(jwt.KindAccess, accessToken, false)
	if err != nil {
		return "", infrastructure.ErrUnauthorized
	}

	exists, err := m.ledger.HasAccess(ctx, accessToken, claims.Audience)
	if err != nil {
		return "", fmt.Errorf("%v: %w", err, infrastructure.ErrInternalServer)
	}
	if !exists {
		return "", infrastructure.ErrUnauthorized
	}
	return claims.Audience, nil
}
