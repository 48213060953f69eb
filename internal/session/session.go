// Package session keeps per-visitor browse state on the server: the filter
// state built up by dispatched actions and the last listing applied for it.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
)

// Session is safe for concurrent use.
type Session struct {
	ID string

	mu         sync.Mutex
	state      filter.State
	generation uint64
	applied    uint64
	houses     []domain.House
	inflight   map[uint64]inflight
	nextFetch  uint64
	lastSeen   time.Time
}

type inflight struct {
	generation uint64
	cancel     context.CancelFunc
}

// Snapshot is a consistent view of a session.
type Snapshot struct {
	ID          string         `json:"id"`
	Filter      filter.State   `json:"filter"`
	ActiveCount int            `json:"activeCount"`
	Generation  uint64         `json:"generation"`
	Applied     uint64         `json:"appliedGeneration"`
	Houses      []domain.House `json:"houses"`
}

// FetchResult is the outcome of one Fetch. Stale results were not applied
// because a newer one already was, or because a dispatch cancelled the
// fetch.
type FetchResult struct {
	Filter     filter.State   `json:"filter"`
	Generation uint64         `json:"generation"`
	Houses     []domain.House `json:"houses"`
	Stale      bool           `json:"stale"`
}

func newSession(now time.Time) *Session {
	return &Session{
		ID:       uuid.NewString(),
		state:    filter.Empty(),
		houses:   []domain.House{},
		inflight: make(map[uint64]inflight),
		lastSeen: now,
	}
}

func (s *Session) snapshotLocked() Snapshot {
	return Snapshot{
		ID:          s.ID,
		Filter:      s.state,
		ActiveCount: s.state.ActiveCount(),
		Generation:  s.generation,
		Applied:     s.applied,
		Houses:      s.houses,
	}
}

func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Dispatch reduces the filter state with the actions, starts a new
// generation and cancels fetches still running for older ones.
func (s *Session) Dispatch(actions ...filter.Action) Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = filter.ReduceAll(s.state, actions...)
	s.generation++
	for id, f := range s.inflight {
		if f.generation < s.generation {
			f.cancel()
			delete(s.inflight, id)
		}
	}
	return s.snapshotLocked()
}

// Fetch runs fn with the current filter state and applies its result unless
// a result of a newer generation has been applied already.
func (s *Session) Fetch(ctx context.Context, fn func(context.Context, filter.State) ([]domain.House, error)) (FetchResult, error) {
	s.mu.Lock()
	gen := s.generation
	state := s.state
	fctx, cancel := context.WithCancel(ctx)
	s.nextFetch++
	id := s.nextFetch
	s.inflight[id] = inflight{generation: gen, cancel: cancel}
	s.mu.Unlock()

	houses, err := fn(fctx, state)

	s.mu.Lock()
	defer s.mu.Unlock()
	_, stillRunning := s.inflight[id]
	delete(s.inflight, id)
	cancel()

	res := FetchResult{Filter: state, Generation: gen, Houses: houses}
	if err != nil {
		// Superseded by a dispatch while the caller was still waiting.
		if !stillRunning && ctx.Err() == nil {
			res.Houses = nil
			res.Stale = true
			return res, nil
		}
		return FetchResult{}, err
	}

	if !stillRunning || gen < s.applied {
		res.Stale = true
		return res, nil
	}
	s.applied = gen
	s.houses = houses
	return res, nil
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ttl > 0 && now.Sub(s.lastSeen) > ttl
}

func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, f := range s.inflight {
		f.cancel()
		delete(s.inflight, id)
	}
}
