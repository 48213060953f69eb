package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/denisok6893-rgb/midmod-radar/internal/domain"
	"github.com/denisok6893-rgb/midmod-radar/internal/filter"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func listing(ids ...string) []domain.House {
	out := make([]domain.House, 0, len(ids))
	for _, id := range ids {
		out = append(out, domain.House{ID: id})
	}
	return out
}

func TestDispatch_ReducesAndBumpsGeneration(t *testing.T) {
	s := newSession(time.Now())

	snap := s.Dispatch(filter.Add(filter.FacetStyle, "desert"), filter.Add(filter.FacetState, "CA"))
	assert.Equal(t, uint64(1), snap.Generation)
	assert.Equal(t, 2, snap.ActiveCount)

	snap = s.Dispatch(filter.Clear())
	assert.Equal(t, uint64(2), snap.Generation)
	assert.Equal(t, 0, snap.ActiveCount)
	assert.Equal(t, filter.Empty(), snap.Filter)
}

func TestFetch_AppliesCurrentGeneration(t *testing.T) {
	s := newSession(time.Now())
	s.Dispatch(filter.Add(filter.FacetCity, "palm-springs"))

	res, err := s.Fetch(context.Background(), func(_ context.Context, f filter.State) ([]domain.House, error) {
		assert.Equal(t, []string{"palm-springs"}, f.Cities)
		return listing("a"), nil
	})
	require.NoError(t, err)
	assert.False(t, res.Stale)
	assert.Equal(t, uint64(1), res.Generation)

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Applied)
	assert.Len(t, snap.Houses, 1)
}

func TestFetch_DispatchCancelsOlderFetch(t *testing.T) {
	s := newSession(time.Now())
	s.Dispatch(filter.Add(filter.FacetStyle, "desert"))

	started := make(chan struct{})
	done := make(chan FetchResult)
	go func() {
		res, err := s.Fetch(context.Background(), func(ctx context.Context, _ filter.State) ([]domain.House, error) {
			close(started)
			<-ctx.Done()
			return nil, ctx.Err()
		})
		assert.NoError(t, err)
		done <- res
	}()

	<-started
	s.Dispatch(filter.Add(filter.FacetStyle, "post-beam"))

	res := <-done
	assert.True(t, res.Stale)
	assert.Equal(t, uint64(1), res.Generation)

	fresh, err := s.Fetch(context.Background(), func(context.Context, filter.State) ([]domain.House, error) {
		return listing("b"), nil
	})
	require.NoError(t, err)
	assert.False(t, fresh.Stale)
	assert.Equal(t, "b", s.Snapshot().Houses[0].ID)
}

func TestFetch_OlderResultNeverReplacesNewer(t *testing.T) {
	s := newSession(time.Now())
	s.Dispatch(filter.Add(filter.FacetState, "CA"))

	release := make(chan struct{})
	started := make(chan struct{})
	done := make(chan FetchResult)
	go func() {
		// Ignores cancellation and finishes late.
		res, err := s.Fetch(context.Background(), func(context.Context, filter.State) ([]domain.House, error) {
			close(started)
			<-release
			return listing("old"), nil
		})
		assert.NoError(t, err)
		done <- res
	}()
	<-started

	s.Dispatch(filter.Add(filter.FacetState, "AZ"))
	newer, err := s.Fetch(context.Background(), func(context.Context, filter.State) ([]domain.House, error) {
		return listing("new"), nil
	})
	require.NoError(t, err)
	assert.False(t, newer.Stale)

	close(release)
	older := <-done
	assert.True(t, older.Stale)

	snap := s.Snapshot()
	assert.Equal(t, uint64(2), snap.Applied)
	assert.Equal(t, "new", snap.Houses[0].ID)
}

func TestFetch_PropagatesErrors(t *testing.T) {
	s := newSession(time.Now())
	boom := errors.New("boom")

	_, err := s.Fetch(context.Background(), func(context.Context, filter.State) ([]domain.House, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Fetch(ctx, func(ctx context.Context, _ filter.State) ([]domain.House, error) {
		return nil, ctx.Err()
	})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestManager_Expiry(t *testing.T) {
	m := NewManager(time.Minute, nil)
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	m.now = func() time.Time { return now }

	a := m.Create()
	b := m.Create()
	assert.NotEqual(t, a.ID, b.ID)

	now = now.Add(45 * time.Second)
	_, ok := m.Get(a.ID)
	require.True(t, ok)

	now = now.Add(30 * time.Second)
	assert.Equal(t, 1, m.Sweep())
	_, ok = m.Get(b.ID)
	assert.False(t, ok)
	_, ok = m.Get(a.ID)
	assert.True(t, ok)

	now = now.Add(2 * time.Minute)
	_, ok = m.Get(a.ID)
	assert.False(t, ok)
	assert.Equal(t, 0, m.Len())

	c := m.Create()
	m.Delete(c.ID)
	_, ok = m.Get(c.ID)
	assert.False(t, ok)
}

func TestManager_RunStopsWithContext(t *testing.T) {
	m := NewManager(time.Millisecond, nil)
	m.Create()

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		m.Run(ctx, time.Millisecond)
		close(stopped)
	}()

	require.Eventually(t, func() bool { return m.Len() == 0 }, time.Second, time.Millisecond)
	cancel()
	<-stopped
}
