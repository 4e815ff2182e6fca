package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castive/internal/cache"
	"castive/internal/sessions"
	"castive/internal/user"
	"castive/pkg/jwt"
)

func testGate(users user.Repository) (*Gate, *sessions.Manager) {
	codec := jwt.NewCodec(
		"castive-test",
		[]byte("access-secret"), []byte("refresh-secret"),
		[]byte("email-secret"), []byte("reset-secret"),
		5*time.Minute, time.Hour, 15*time.Minute,
	)
	ledger := sessions.NewLedger(cache.NewMemory())
	manager := sessions.NewManager(codec, ledger, users)
	return NewGate(manager, users), manager
}

func gateStatus(t *testing.T, handler http.Handler, authorization string) int {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec.Code
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuthAttachesUser(t *testing.T) {
	ctx := context.Background()
	u := testFlowUser(t, "alice", "alice@example.com", "s3cret-pass")
	gate, manager := testGate(newFakeUsers(u))

	pair, err := manager.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	var seen *user.User
	handler := gate.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = UserFromContext(r.Context())
		token, ok := AccessTokenFromContext(r.Context())
		assert.True(t, ok)
		assert.Equal(t, pair.AccessToken, token)
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+pair.AccessToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, seen)
	assert.Equal(t, u.ID, seen.ID)
}

func TestRequireAuthMissingHeader(t *testing.T) {
	gate, _ := testGate(newFakeUsers())

	code := gateStatus(t, gate.RequireAuth(okHandler()), "")
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireAuthMalformedHeader(t *testing.T) {
	gate, _ := testGate(newFakeUsers())

	code := gateStatus(t, gate.RequireAuth(okHandler()), "NotBearer xyz")
	assert.Equal(t, http.StatusBadRequest, code)

	code = gateStatus(t, gate.RequireAuth(okHandler()), "Bearer")
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestRequireAuthRevokedToken(t *testing.T) {
	ctx := context.Background()
	u := testFlowUser(t, "alice", "alice@example.com", "s3cret-pass")
	gate, manager := testGate(newFakeUsers(u))

	pair, err := manager.Issue(ctx, u.ID.String())
	require.NoError(t, err)
	require.NoError(t, manager.LogoutAll(ctx, u.ID.String()))

	code := gateStatus(t, gate.RequireAuth(okHandler()), "Bearer "+pair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireModerator(t *testing.T) {
	ctx := context.Background()
	mod := testFlowUser(t, "mod", "mod@example.com", "s3cret-pass")
	mod.Role = user.RoleModerator
	plain := testFlowUser(t, "plain", "plain@example.com", "s3cret-pass")
	gate, manager := testGate(newFakeUsers(mod, plain))

	modPair, err := manager.Issue(ctx, mod.ID.String())
	require.NoError(t, err)
	plainPair, err := manager.Issue(ctx, plain.ID.String())
	require.NoError(t, err)

	code := gateStatus(t, gate.RequireModerator(okHandler()), "Bearer "+modPair.AccessToken)
	assert.Equal(t, http.StatusOK, code)

	code = gateStatus(t, gate.RequireModerator(okHandler()), "Bearer "+plainPair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, code)
}

func TestRequireAdmin(t *testing.T) {
	ctx := context.Background()
	admin := testFlowUser(t, "admin", "admin@example.com", "s3cret-pass")
	admin.Role = user.RoleAdmin
	mod := testFlowUser(t, "mod", "mod@example.com", "s3cret-pass")
	mod.Role = user.RoleModerator
	gate, manager := testGate(newFakeUsers(admin, mod))

	adminPair, err := manager.Issue(ctx, admin.ID.String())
	require.NoError(t, err)
	modPair, err := manager.Issue(ctx, mod.ID.String())
	require.NoError(t, err)

	code := gateStatus(t, gate.RequireAdmin(okHandler()), "Bearer "+adminPair.AccessToken)
	assert.Equal(t, http.StatusOK, code)

	// Admin is a superset of moderator, not the other way around.
	code = gateStatus(t, gate.RequireAdmin(okHandler()), "Bearer "+modPair.AccessToken)
	assert.Equal(t, http.StatusUnauthorized, code)
}
