package session

import (
	"context"
	"sync"
	"time"
)

// MemoryStore keeps sessions in process memory with a sliding TTL.
type MemoryStore struct {
	ttl time.Duration
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewMemoryStore creates a store. A non-positive ttl means DefaultTTL.
func NewMemoryStore(ttl time.Duration) *MemoryStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryStore{ttl: ttl, now: time.Now, sessions: make(map[string]*Session)}
}

// TTL returns the idle expiry.
func (m *MemoryStore) TTL() time.Duration { return m.ttl }

// Len returns the number of held sessions, expired ones included.
func (m *MemoryStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Get implements Store.
func (m *MemoryStore) Get(_ context.Context, id string) (*Session, error) {
	now := m.now()
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.IsExpired(now) {
		delete(m.sessions, id)
	}
	m.mu.Unlock()

	if !ok {
		return nil, ErrNotFound
	}
	if s.IsExpired(now) {
		s.Close()
		return nil, ErrNotFound
	}
	s.Touch(now, m.ttl)
	return s, nil
}

// Put implements Store. An existing session with the same ID is closed.
func (m *MemoryStore) Put(_ context.Context, s *Session) error {
	s.Touch(m.now(), m.ttl)
	m.mu.Lock()
	old := m.sessions[s.ID]
	m.sessions[s.ID] = s
	m.mu.Unlock()

	if old != nil && old != s {
		old.Close()
	}
	return nil
}

// Delete implements Store.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	s := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if s != nil {
		s.Close()
	}
	return nil
}

// Cleanup implements Store.
func (m *MemoryStore) Cleanup(_ context.Context) (int, error) {
	now := m.now()
	var expired []*Session
	m.mu.Lock()
	for id, s := range m.sessions {
		if s.IsExpired(now) {
			expired = append(expired, s)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, s := range expired {
		s.Close()
	}
	return len(expired), nil
}

// Range calls fn for every live session until fn returns false.
func (m *MemoryStore) Range(fn func(*Session) bool) {
	now := m.now()
	m.mu.Lock()
	live := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		if !s.IsExpired(now) {
			live = append(live, s)
		}
	}
	m.mu.Unlock()

	for _, s := range live {
		if !fn(s) {
			return
		}
	}
}

// RunCleanup removes expired sessions every interval until ctx is done.
func (m *MemoryStore) RunCleanup(ctx context.Context, interval time.Duration, onRemoved func(int)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, _ := m.Cleanup(ctx); n > 0 && onRemoved != nil {
				onRemoved(n)
			}
		}
	}
}

var _ Store = (*MemoryStore)(nil)
