// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package endpoint

import (
	"context"
	"sync"
)

// MemoryStore keeps the endpoint in process memory.
type MemoryStore struct {
	mu    sync.RWMutex
	ep    Endpoint
	saved bool
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (m *MemoryStore) Load(_ context.Context) (Endpoint, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ep, m.saved, nil
}

func (m *MemoryStore) Save(_ context.Context, ep Endpoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ep = ep
	m.saved = true
	return nil
}

func (m *MemoryStore) Close() error { return nil }
