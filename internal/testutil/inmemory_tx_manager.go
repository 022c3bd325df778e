package testutil

import (
	"context"
	"sync"
)

// InMemoryTxManager implements postgres.TxManager as a pass-through,
// counting invocations so tests can assert a write ran inside a transaction.
type InMemoryTxManager struct {
	mu    sync.Mutex
	calls int
}

func NewInMemoryTxManager() *InMemoryTxManager {
	return &InMemoryTxManager{}
}

func (m *InMemoryTxManager) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.mu.Lock()
	m.calls++
	m.mu.Unlock()
	return fn(ctx)
}

// Calls returns how many transactions were started
func (m *InMemoryTxManager) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
