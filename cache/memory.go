package cache

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// MEMORY CACHE - In-memory implementation with TTL (for dev / single node)
// =============================================================================

// Memory is an in-memory Documents cache. Expired entries are dropped on read
// and by a background sweep; call Close to stop the sweep.
type Memory struct {
	mu     sync.Mutex
	ttl    time.Duration
	now    func() time.Time
	data   map[string]item
	closed chan struct{}
	once   sync.Once
}

type item struct {
	raw []byte
	exp time.Time
}

// NewMemory creates a memory cache. ttl <= 0 means DefaultTTL. The sweep
// runs every sweep interval (every minute when sweep <= 0).
func NewMemory(ttl, sweep time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if sweep <= 0 {
		sweep = time.Minute
	}
	m := &Memory{
		ttl:    ttl,
		now:    time.Now,
		data:   make(map[string]item),
		closed: make(chan struct{}),
	}
	go m.sweepLoop(sweep)
	return m
}

// SetClock replaces the time source. Tests only.
func (m *Memory) SetClock(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

func (m *Memory) Put(_ context.Context, id string, raw []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[id] = item{raw: append([]byte(nil), raw...), exp: m.now().Add(m.ttl)}
	return nil
}

func (m *Memory) Get(_ context.Context, id string) ([]byte, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	it, ok := m.data[id]
	if !ok {
		return nil, false, nil
	}
	if m.now().After(it.exp) {
		delete(m.data, id)
		return nil, false, nil
	}
	return append([]byte(nil), it.raw...), true, nil
}

func (m *Memory) Del(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, id)
	return nil
}

// Len returns the number of entries, expired ones included until swept.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.data)
}

func (m *Memory) sweepLoop(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			m.Sweep()
		case <-m.closed:
			return
		}
	}
}

// Sweep removes every expired entry.
func (m *Memory) Sweep() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.now()
	for id, it := range m.data {
		if now.After(it.exp) {
			delete(m.data, id)
		}
	}
}

// Close stops the background sweep. Safe to call more than once.
func (m *Memory) Close() error {
	m.once.Do(func() { close(m.closed) })
	return nil
}
