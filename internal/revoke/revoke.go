// Package revoke tracks redeemed refresh token ids so each refresh
// token can be used at most once. Entries live only as long as the
// token they invalidate; after that the expiry check makes the token
// unusable on its own.
package revoke

import (
	"context"
	"sync"
	"time"
)

// Store records token ids that must no longer be accepted.
type Store interface {
	// Redeem marks id as spent for the given remaining lifetime and
	// reports whether it had already been spent. The check and the
	// write are one atomic step, so of any number of concurrent
	// redemptions exactly one observes alreadySpent == false.
	// A non-positive ttl is a no-op: the token is already expired.
	Redeem(ctx context.Context, id string, ttl time.Duration) (alreadySpent bool, err error)
}

// Memory is an in-process Store for tests and single-node deployments.
type Memory struct {
	mu      sync.Mutex
	expires map[string]time.Time
	now     func() time.Time
}

// NewMemory constructs an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{expires: make(map[string]time.Time), now: time.Now}
}

// Redeem marks id as spent until its expiry passes, pruning a stale
// entry for the same id on the way.
func (m *Memory) Redeem(_ context.Context, id string, ttl time.Duration) (bool, error) {
	if id == "" || ttl <= 0 {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	if deadline, ok := m.expires[id]; ok && now.Before(deadline) {
		return true, nil
	}
	m.expires[id] = now.Add(ttl)
	return false, nil
}
