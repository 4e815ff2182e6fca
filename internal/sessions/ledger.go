package sessions

import (
	"context"
	"fmt"
	"time"

	"castive/internal/cache"
)

// Key families in the ledger. A token with a valid signature but no ledger
// entry has been revoked or already consumed and must be rejected.
const (
	accessPrefix  = "AT"
	refreshPrefix = "RT"
	resetPrefix   = "RESET"
)

func accessKey(token, userID string) string  { return accessPrefix + ":" + token + ":" + userID }
func refreshKey(token, userID string) string { return refreshPrefix + ":" + token + ":" + userID }
func resetKey(token string) string           { return resetPrefix + ":" + token }

// userPattern matches every access and refresh key of one account, across
// all of their sessions.
func userPattern(userID string) string { return "*:*:" + userID }

// Ledger records which issued tokens are currently valid. Entries expire on
// their own with the token's TTL; explicit deletes are what revocation and
// rotation are made of.
type Ledger struct {
	store cache.Store
}

func NewLedger(store cache.Store) *Ledger {
	return &Ledger{store: store}
}

func (l *Ledger) PutAccess(ctx context.Context, token, userID string, ttl time.Duration) error {
	return l.put(ctx, accessKey(token, userID), ttl)
}

func (l *Ledger) PutRefresh(ctx context.Context, token, userID string, ttl time.Duration) error {
	return l.put(ctx, refreshKey(token, userID), ttl)
}

func (l *Ledger) PutReset(ctx context.Context, token string, ttl time.Duration) error {
	return l.put(ctx, resetKey(token), ttl)
}

func (l *Ledger) put(ctx context.Context, key string, ttl time.Duration) error {
	if err := l.store.Set(ctx, key, "1", ttl); err != nil {
		return fmt.Errorf("ledger write failed: %w", err)
	}
	return nil
}

func (l *Ledger) HasAccess(ctx context.Context, token, userID string) (bool, error) {
	return l.store.Exists(ctx, accessKey(token, userID))
}

func (l *Ledger) HasRefresh(ctx context.Context, token, userID string) (bool, error) {
	return l.store.Exists(ctx, refreshKey(token, userID))
}

func (l *Ledger) HasReset(ctx context.Context, token string) (bool, error) {
	return l.store.Exists(ctx, resetKey(token))
}

func (l *Ledger) DeleteAccess(ctx context.Context, token, userID string) error {
	_, err := l.store.Del(ctx, accessKey(token, userID))
	return err
}

func (l *Ledger) DeleteRefresh(ctx context.Context, token, userID string) error {
	_, err := l.store.Del(ctx, refreshKey(token, userID))
	return err
}

func (l *Ledger) DeleteReset(ctx context.Context, token string) error {
	_, err := l.store.Del(ctx, resetKey(token))
	return err
}

// ConsumeRefresh removes the refresh entry and reports whether this call was
// the one that removed it. The delete is the replay check: of any number of
// concurrent consumers of the same token, exactly one sees true.
func (l *Ledger) ConsumeRefresh(ctx context.Context, token, userID string) (bool, error) {
	removed, err := l.store.Del(ctx, refreshKey(token, userID))
	if err != nil {
		return false, fmt.Errorf("ledger delete failed: %w", err)
	}
	return removed > 0, nil
}

// ConsumeReset is the single-use guarantee for reset tokens, same contract
// as ConsumeRefresh.
func (l *Ledger) ConsumeReset(ctx context.Context, token string) (bool, error) {
	removed, err := l.store.Del(ctx, resetKey(token))
	if err != nil {
		return false, fmt.Errorf("ledger delete failed: %w", err)
	}
	return removed > 0, nil
}

// DeleteAllForUser removes every access and refresh entry of one account.
// The scan and the delete are two round trips: a pair issued in between
// survives. Best-effort revocation, not linearizable.
func (l *Ledger) DeleteAllForUser(ctx context.Context, userID string) error {
	keys, err := l.store.Keys(ctx, userPattern(userID))
	if err != nil {
		return fmt.Errorf("ledger scan failed: %w", err)
	}
	// Del tolerates an empty key list.
	if _, err := l.store.Del(ctx, keys...); err != nil {
		return fmt.Errorf("ledger bulk delete failed: %w", err)
	}
	return nil
}
