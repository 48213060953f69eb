package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Manager owns the live sessions. Sessions idle for longer than the TTL are
// dropped.
type Manager struct {
	ttl time.Duration
	log *zap.Logger
	now func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewManager(ttl time.Duration, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		ttl:      ttl,
		log:      log,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

func (m *Manager) Create() *Session {
	s := newSession(m.now())
	m.mu.Lock()
	m.sessions[s.ID] = s
	m.mu.Unlock()
	return s
}

// Get returns a live session and marks it as used.
func (m *Manager) Get(id string) (*Session, bool) {
	now := m.now()
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok && s.expired(now, m.ttl) {
		delete(m.sessions, id)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		if s != nil {
			s.close()
		}
		return nil, false
	}
	s.touch(now)
	return s, true
}

func (m *Manager) Delete(id string) {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if ok {
		s.close()
	}
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops expired sessions and reports how many were removed.
func (m *Manager) Sweep() int {
	now := m.now()
	var dropped []*Session

	m.mu.Lock()
	for id, s := range m.sessions {
		if s.expired(now, m.ttl) {
			delete(m.sessions, id)
			dropped = append(dropped, s)
		}
	}
	m.mu.Unlock()

	for _, s := range dropped {
		s.close()
	}
	return len(dropped)
}

// Run sweeps on every tick until ctx is done.
func (m *Manager) Run(ctx context.Context, every time.Duration) {
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := m.Sweep(); n > 0 {
				m.log.Debug("expired sessions dropped", zap.Int("count", n))
			}
		}
	}
}
