package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castive/infrastructure"
	"castive/internal/cache"
	"castive/internal/user"
	"castive/pkg/jwt"
)

type fakeUsers struct {
	byID map[uuid.UUID]*user.User
}

func newFakeUsers(users ...*user.User) *fakeUsers {
	f := &fakeUsers{byID: make(map[uuid.UUID]*user.User)}
	for _, u := range users {
		f.byID[u.ID] = u
	}
	return f
}

func (f *fakeUsers) Create(_ context.Context, u *user.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) GetByID(_ context.Context, id uuid.UUID) (*user.User, error) {
	if u, ok := f.byID[id]; ok {
		return u, nil
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeUsers) GetByEmail(_ context.Context, email string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Email.Value == email {
			return u, nil
		}
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeUsers) GetByUsername(_ context.Context, username string) (*user.User, error) {
	for _, u := range f.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return nil, infrastructure.ErrNotFound
}

func (f *fakeUsers) Update(_ context.Context, u *user.User) error {
	f.byID[u.ID] = u
	return nil
}

func (f *fakeUsers) Delete(_ context.Context, id uuid.UUID) error {
	delete(f.byID, id)
	return nil
}

func (f *fakeUsers) AddFollowing(context.Context, *user.User, *user.User) error    { return nil }
func (f *fakeUsers) RemoveFollowing(context.Context, *user.User, *user.User) error { return nil }
func (f *fakeUsers) AddBlocked(context.Context, *user.User, *user.User) error      { return nil }
func (f *fakeUsers) RemoveBlocked(context.Context, *user.User, *user.User) error   { return nil }

func (f *fakeUsers) IsBlocked(context.Context, uuid.UUID, uuid.UUID) (bool, error) {
	return false, nil
}

func (f *fakeUsers) SearchByUsername(context.Context, string, uuid.UUID) ([]*user.User, error) {
	return nil, nil
}

func testUser(t *testing.T, username, email, password string) *user.User {
	t.Helper()
	u := &user.User{ID: uuid.New(), Username: username}
	u.Email.Value = email
	require.NoError(t, u.SetPassword(password))
	return u
}

func testManager(users user.Repository) (*Manager, *Ledger) {
	codec := jwt.NewCodec(
		"castive-test",
		[]byte("access-secret"), []byte("refresh-secret"),
		[]byte("email-secret"), []byte("reset-secret"),
		5*time.Minute, time.Hour, 15*time.Minute,
	)
	ledger := NewLedger(cache.NewMemory())
	return NewManager(codec, ledger, users), ledger
}

func TestLoginIssuesTrackedPair(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, ledger := testManager(newFakeUsers(u))

	pair, got, err := m.Login(ctx, "alice", "", "s3cret-pass")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	ok, err := ledger.HasAccess(ctx, pair.AccessToken, u.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = ledger.HasRefresh(ctx, pair.RefreshToken, u.ID.String())
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginByEmail(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(u))

	_, _, err := m.Login(ctx, "", "alice@example.com", "s3cret-pass")
	assert.NoError(t, err)
}

func TestLoginBadCredentials(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(u))

	_, _, err := m.Login(ctx, "alice", "", "wrong")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidCredentials)

	// Unknown accounts fail the same way so usernames cannot be probed.
	_, _, err = m.Login(ctx, "nobody", "", "s3cret-pass")
	assert.ErrorIs(t, err, infrastructure.ErrInvalidCredentials)
}

func TestRefreshRotatesAndBurnsOldToken(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, ledger := testManager(newFakeUsers(u))

	pair, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	// Claims have second precision; wait so the rotated tokens differ.
	time.Sleep(1100 * time.Millisecond)

	fresh, err := m.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, pair.RefreshToken, fresh.RefreshToken)

	ok, err := ledger.HasRefresh(ctx, pair.RefreshToken, u.ID.String())
	require.NoError(t, err)
	assert.False(t, ok)

	// Replaying the consumed pair must fail.
	_, err = m.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)

	// The rotated pair keeps working.
	_, err = m.Authenticate(ctx, fresh.AccessToken)
	assert.NoError(t, err)
}

func TestConcurrentRefreshExactlyOneSuccess(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(u))

	pair, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	start := make(chan struct{})
	results := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			<-start
			_, err := m.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
			results <- err
		}()
	}
	close(start)

	var successes, rejected int
	for i := 0; i < 2; i++ {
		err := <-results
		if err == nil {
			successes++
			continue
		}
		require.ErrorIs(t, err, infrastructure.ErrUnauthorized)
		rejected++
	}

	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, rejected)
}

func TestRefreshRejectsMixedSessions(t *testing.T) {
	ctx := context.Background()
	alice := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	bob := testUser(t, "bob", "bob@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(alice, bob))

	alicePair, err := m.Issue(ctx, alice.ID.String())
	require.NoError(t, err)
	bobPair, err := m.Issue(ctx, bob.ID.String())
	require.NoError(t, err)

	_, err = m.Refresh(ctx, alicePair.AccessToken, bobPair.RefreshToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	ctx := context.Background()
	m, _ := testManager(newFakeUsers())

	_, err := m.Refresh(ctx, "not-a-token", "also-not-a-token")
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}

func TestLogoutRevokesSession(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(u))

	pair, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	require.NoError(t, m.Logout(ctx, u.ID.String(), pair.AccessToken, pair.RefreshToken))

	_, err = m.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)

	_, err = m.Refresh(ctx, pair.AccessToken, pair.RefreshToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	ctx := context.Background()
	alice := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	bob := testUser(t, "bob", "bob@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(alice, bob))

	bobPair, err := m.Issue(ctx, bob.ID.String())
	require.NoError(t, err)

	err = m.Logout(ctx, alice.ID.String(), bobPair.AccessToken, bobPair.RefreshToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, _ := testManager(newFakeUsers(u))

	first, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)
	second, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	require.NoError(t, m.LogoutAll(ctx, u.ID.String()))

	_, err = m.Authenticate(ctx, first.AccessToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
	_, err = m.Authenticate(ctx, second.AccessToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)

	// Idempotent: revoking an account with no sessions is a success.
	assert.NoError(t, m.LogoutAll(ctx, u.ID.String()))
}

func TestAuthenticateRejectsUnlistedToken(t *testing.T) {
	ctx := context.Background()
	u := testUser(t, "alice", "alice@example.com", "s3cret-pass")
	m, ledger := testManager(newFakeUsers(u))

	pair, err := m.Issue(ctx, u.ID.String())
	require.NoError(t, err)

	require.NoError(t, ledger.DeleteAccess(ctx, pair.AccessToken, u.ID.String()))

	_, err = m.Authenticate(ctx, pair.AccessToken)
	assert.ErrorIs(t, err, infrastructure.ErrUnauthorized)
}
