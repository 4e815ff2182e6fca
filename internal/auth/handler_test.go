package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"castive/internal/cache"
	"castive/internal/email"
	"castive/internal/sessions"
	"castive/internal/user"
	"castive/pkg/jwt"
)

func noopMiddleware(next http.Handler) http.Handler { return next }

type authAPI struct {
	router *mux.Router
	users  *fakeUsers
	dialer *fakeDialer
}

func newAuthAPI(t *testing.T, seed ...*user.User) *authAPI {
	t.Helper()

	codec := jwt.NewCodec(
		"castive-test",
		[]byte("access-secret"), []byte("refresh-secret"),
		[]byte("email-secret"), []byte("reset-secret"),
		5*time.Minute, time.Hour, 15*time.Minute,
	)
	users := newFakeUsers(seed...)
	ledger := sessions.NewLedger(cache.NewMemory())
	manager := sessions.NewManager(codec, ledger, users)
	dialer := newFakeDialer()
	sender := email.NewSenderWithDialer(dialer, "noreply@castive.app", "https://castive.app")
	flows := NewFlows(codec, ledger, manager, users, sender, zap.NewNop())
	gate := NewGate(manager, users)
	handler := NewHandler(manager, flows, users, sender, zap.NewNop())

	router := mux.NewRouter()
	SetupRoutes(router, handler, gate, noopMiddleware, noopMiddleware)

	return &authAPI{router: router, users: users, dialer: dialer}
}

func (a *authAPI) do(t *testing.T, method, path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	a.router.ServeHTTP(rec, req)
	return rec
}

func decodePair(t *testing.T, rec *httptest.ResponseRecorder) *sessions.TokenPair {
	t.Helper()
	var envelope struct {
		Success bool                `json:"success"`
		Data    *sessions.TokenPair `json:"Data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	require.True(t, envelope.Success)
	require.NotNil(t, envelope.Data)
	return envelope.Data
}

func birthdateYearsAgo(years int) string {
	return time.Now().AddDate(-years, 0, -1).Format("2006-01-02")
}

func TestRegisterIssuesTokens(t *testing.T) {
	api := newAuthAPI(t)

	rec := api.do(t, http.MethodPut, "/auth/register", RegisterRequest{
		Username:  "alice",
		Email:     "Alice@Example.com",
		Password:  "correct horse battery",
		Birthdate: birthdateYearsAgo(20),
	}, nil)

	require.Equal(t, http.StatusCreated, rec.Code)
	pair := decodePair(t, rec)
	assert.NotEmpty(t, pair.AccessToken)
	assert.NotEmpty(t, pair.RefreshToken)

	// The address is lowercased on the way in.
	u, err := api.users.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.False(t, u.Email.Verified)
}

func TestRegisterValidation(t *testing.T) {
	api := newAuthAPI(t)

	rec := api.do(t, http.MethodPut, "/auth/register", RegisterRequest{
		Username:  "x",
		Email:     "not-an-email",
		Password:  "abc",
		Birthdate: "nope",
	}, nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPut, "/auth/register", RegisterRequest{
		Username:  "alice2",
		Email:     "alice@example.com",
		Password:  "correct horse battery",
		Birthdate: birthdateYearsAgo(20),
	}, nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestRegisterUnderage(t *testing.T) {
	api := newAuthAPI(t)

	rec := api.do(t, http.MethodPut, "/auth/register", RegisterRequest{
		Username:  "kiddo",
		Email:     "kid@example.com",
		Password:  "correct horse battery",
		Birthdate: birthdateYearsAgo(12),
	}, nil)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestLoginEndpoint(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Username: "alice",
		Password: "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	decodePair(t, rec)

	rec = api.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Username: "alice",
		Password: "wrong",
	}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshEndpointHeaders(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Username: "alice",
		Password: "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodePair(t, rec)

	// Missing refresh header is a malformed request, not an auth failure.
	rec = api.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	// Missing access token is an auth failure.
	rec = api.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"X-Refresh-Token": "Bearer " + pair.RefreshToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = api.do(t, http.MethodPost, "/auth/refresh", nil, map[string]string{
		"Authorization":   "Bearer " + pair.AccessToken,
		"X-Refresh-Token": "Bearer " + pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	decodePair(t, rec)
}

func TestLogoutEndpoint(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPost, "/auth/login", LoginRequest{
		Username: "alice",
		Password: "correct horse battery",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	pair := decodePair(t, rec)

	rec = api.do(t, http.MethodPost, "/auth/logout", nil, map[string]string{
		"Authorization":   "Bearer " + pair.AccessToken,
		"X-Refresh-Token": "Bearer " + pair.RefreshToken,
	})
	require.Equal(t, http.StatusOK, rec.Code)

	// The revoked access token no longer passes the gate.
	rec = api.do(t, http.MethodPost, "/auth/logoutall", nil, map[string]string{
		"Authorization": "Bearer " + pair.AccessToken,
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestVerifyEmailEndpoint(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPost, "/auth/request/verification", RequestMailRequest{
		Email: "alice@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := mailBody(t, api.dialer.waitForMail(t))
	token := extractToken(t, body, "/v1/auth/verify/")

	rec = api.do(t, http.MethodPatch, "/auth/verify", VerifyEmailRequest{Token: token}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, u.Email.Verified)

	rec = api.do(t, http.MethodPatch, "/auth/verify", VerifyEmailRequest{Token: token}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestResetPasswordEndpoint(t *testing.T) {
	u := testFlowUser(t, "alice", "alice@example.com", "correct horse battery")
	api := newAuthAPI(t, u)

	rec := api.do(t, http.MethodPost, "/auth/request/reset", RequestMailRequest{
		Email: "alice@example.com",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	body := mailBody(t, api.dialer.waitForMail(t))
	token := extractToken(t, body, "/v1/auth/reset/")

	rec = api.do(t, http.MethodPatch, "/auth/reset", ResetPasswordRequest{
		Token:    token,
		Password: "brand new passphrase",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, u.CheckPassword("brand new passphrase"))
}

func TestResetPasswordWeakPassword(t *testing.T) {
	api := newAuthAPI(t)

	rec := api.do(t, http.MethodPatch, "/auth/reset", ResetPasswordRequest{
		Token:    "whatever",
		Password: "aaa",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
