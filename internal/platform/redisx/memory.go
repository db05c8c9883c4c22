package redisx

import (
	"context"
	"strings"
	"sync"
	"time"
)

type entry struct {
	value   string
	expires time.Time
}

const sweepInterval = time.Minute

type memoryStore struct {
	mu        sync.Mutex
	now       func() time.Time
	items     map[string]entry
	lastSweep time.Time
}

func newMemoryStore() *memoryStore {
	return &memoryStore{now: time.Now, items: make(map[string]entry)}
}

// sweep drops expired entries at most once per sweepInterval. Callers hold mu.
func (m *memoryStore) sweep(now time.Time) {
	if now.Sub(m.lastSweep) < sweepInterval {
		return
	}
	m.lastSweep = now
	for k, e := range m.items {
		if !now.Before(e.expires) {
			delete(m.items, k)
		}
	}
}

func (m *memoryStore) setNX(key, value string, ttl time.Duration, overwrite bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	m.sweep(now)
	if e, ok := m.items[key]; ok && now.Before(e.expires) && !overwrite {
		return false
	}
	m.items[key] = entry{value: value, expires: now.Add(ttl)}
	return true
}

func (m *memoryStore) get(key string) (string, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok || !m.now().Before(e.expires) {
		return "", false
	}
	return e.value, true
}

func (m *memoryStore) delIf(key, value string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.items[key]
	if !ok || e.value != value {
		return false
	}
	delete(m.items, key)
	return m.now().Before(e.expires)
}

func (m *memoryStore) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

type memoryNonces struct{ s *memoryStore }

// NewMemoryNonceStore is the single-process fallback used when no redis is configured.
func NewMemoryNonceStore() NonceStore {
	return &memoryNonces{s: newMemoryStore()}
}

func (n *memoryNonces) Issue(_ context.Context, address, nonce string) error {
	n.s.setNX(noncePrefix+strings.ToLower(address), nonce, NonceTTL, true)
	return nil
}

func (n *memoryNonces) Get(_ context.Context, address string) (string, error) {
	v, ok := n.s.get(noncePrefix + strings.ToLower(address))
	if !ok {
		return "", ErrNonceNotFound
	}
	return v, nil
}

func (n *memoryNonces) Consume(_ context.Context, address, nonce string) (bool, error) {
	return n.s.delIf(noncePrefix+strings.ToLower(address), nonce), nil
}

type memoryLocker struct {
	s     *memoryStore
	token func() string
}

func NewMemoryLocker(token func() string) Locker {
	return &memoryLocker{s: newMemoryStore(), token: token}
}

func (l *memoryLocker) Acquire(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	tok := l.token()
	if !l.s.setNX(lockPrefix+key, tok, ttl, false) {
		return nil, false, nil
	}
	return func() { l.s.delIf(lockPrefix+key, tok) }, true, nil
}
