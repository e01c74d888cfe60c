package bot

import (
	"context"
	"sync"
)

// StateStore holds the admin's transient flow state: either idle, or
// awaiting a limit value for one target user. The state survives only as
// long as the store says (the redis implementation expires it); any
// unrelated admin action clears it.
type StateStore interface {
	SetPendingLimit(ctx context.Context, adminID, targetID int64) error
	// PendingLimit reports the awaited target, if any, without clearing it.
	PendingLimit(ctx context.Context, adminID int64) (int64, bool, error)
	ClearPending(ctx context.Context, adminID int64) error
}

// MemoryState is the in-process StateStore, used when no redis address is
// configured and throughout the tests.
type MemoryState struct {
	mu      sync.Mutex
	pending map[int64]int64
}

func NewMemoryState() *MemoryState {
	return &MemoryState{pending: make(map[int64]int64)}
}

func (m *MemoryState) SetPendingLimit(ctx context.Context, adminID, targetID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[adminID] = targetID
	return nil
}

func (m *MemoryState) PendingLimit(ctx context.Context, adminID int64) (int64, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	target, ok := m.pending[adminID]
	return target, ok, nil
}

func (m *MemoryState) ClearPending(ctx context.Context, adminID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.pending, adminID)
	return nil
}
