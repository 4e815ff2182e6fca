package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"castive/internal/cache"
)

func TestLedgerTracksTokens(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(cache.NewMemory())

	require.NoError(t, l.PutAccess(ctx, "at1", "u1", time.Minute))
	require.NoError(t, l.PutRefresh(ctx, "rt1", "u1", time.Minute))

	ok, err := l.HasAccess(ctx, "at1", "u1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Same token under another account is a different entry.
	ok, err = l.HasAccess(ctx, "at1", "u2")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, l.DeleteAccess(ctx, "at1", "u1"))
	ok, err = l.HasAccess(ctx, "at1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerEntriesExpire(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(cache.NewMemory())

	require.NoError(t, l.PutAccess(ctx, "at1", "u1", time.Millisecond))
	time.Sleep(5 * time.Millisecond)

	ok, err := l.HasAccess(ctx, "at1", "u1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestLedgerDeleteAllForUser(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(cache.NewMemory())

	require.NoError(t, l.PutAccess(ctx, "at1", "u1", time.Minute))
	require.NoError(t, l.PutRefresh(ctx, "rt1", "u1", time.Minute))
	require.NoError(t, l.PutAccess(ctx, "at2", "u2", time.Minute))

	require.NoError(t, l.DeleteAllForUser(ctx, "u1"))

	ok, _ := l.HasAccess(ctx, "at1", "u1")
	assert.False(t, ok)
	ok, _ = l.HasRefresh(ctx, "rt1", "u1")
	assert.False(t, ok)

	// Other accounts are untouched.
	ok, _ = l.HasAccess(ctx, "at2", "u2")
	assert.True(t, ok)

	// No sessions at all is still a success.
	assert.NoError(t, l.DeleteAllForUser(ctx, "u3"))
}

func TestLedgerConsumeRefreshIsSingleShot(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(cache.NewMemory())

	require.NoError(t, l.PutRefresh(ctx, "rt1", "u1", time.Minute))

	taken, err := l.ConsumeRefresh(ctx, "rt1", "u1")
	require.NoError(t, err)
	assert.True(t, taken)

	taken, err = l.ConsumeRefresh(ctx, "rt1", "u1")
	require.NoError(t, err)
	assert.False(t, taken)
}

func TestLedgerResetTokens(t *testing.T) {
	ctx := context.Background()
	l := NewLedger(cache.NewMemory())

	require.NoError(t, l.PutReset(ctx, "reset1", time.Minute))

	ok, err := l.HasReset(ctx, "reset1")
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, l.DeleteReset(ctx, "reset1"))
	ok, err = l.HasReset(ctx, "reset1")
	require.NoError(t, err)
	assert.False(t, ok)
}
