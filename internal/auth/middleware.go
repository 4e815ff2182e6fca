package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"castive/infrastructure"
	"castive/internal/sessions"
	"castive/internal/user"
)

type contextKey int

const (
	userContextKey contextKey = iota
	accessTokenContextKey
)

// UserFromContext returns the account the gate attached to the request.
func UserFromContext(ctx context.Context) (*user.User, bool) {
	u, ok := ctx.Value(userContextKey).(*user.User)
	return u, ok
}

// AccessTokenFromContext returns the bearer token the gate verified.
func AccessTokenFromContext(ctx context.Context) (string, bool) {
	token, ok := ctx.Value(accessTokenContextKey).(string)
	return token, ok
}

// Gate authenticates requests: bearer token, signature, expiry, ledger
// presence, account resolution, in that order. Everything it learns lands on
// the request context for the handler.
type Gate struct {
	manager *sessions.Manager
	users   user.Repository
}

func NewGate(manager *sessions.Manager, users user.Repository) *Gate {
	return &Gate{manager: manager, users: users}
}

// bearerToken pulls the token out of an "Authorization: Bearer x" style
// header value. A present-but-malformed header is a bad request, not an
// auth failure.
func bearerToken(r *http.Request, header string) (string, error) {
	value := r.Header.Get(header)
	if value == "" {
		return "", infrastructure.ErrUnauthorized
	}

	parts := strings.SplitN(value, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || parts[1] == "" {
		return "", fmt.Errorf("invalid format for the token: %w", infrastructure.ErrBadRequest)
	}
	return parts[1], nil
}

func (g *Gate) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, err := bearerToken(r, "Authorization")
		if err != nil {
			infrastructure.RespondError(w, err)
			return
		}

		userID, err := g.manager.Authenticate(r.Context(), token)
		if err != nil {
			infrastructure.RespondError(w, err)
			return
		}

		id, err := uuid.Parse(userID)
		if err != nil {
			infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
			return
		}

		u, err := g.users.GetByID(r.Context(), id)
		if err != nil {
			infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), userContextKey, u)
		ctx = context.WithValue(ctx, accessTokenContextKey, token)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireModerator layers a role check on top of RequireAuth.
func (g *Gate) RequireModerator(next http.Handler) http.Handler {
	return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok || !u.IsModerator() {
			infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}

// RequireAdmin layers an admin check on top of RequireAuth.
func (g *Gate) RequireAdmin(next http.Handler) http.Handler {
	return g.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := UserFromContext(r.Context())
		if !ok || !u.IsAdmin() {
			infrastructure.RespondError(w, infrastructure.ErrUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	}))
}
