package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock is a manually advanced clock safe for concurrent use.
type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

type countingObserver struct {
	created atomic.Int64
	evicted atomic.Int64
}

func (o *countingObserver) SessionCreated()       { o.created.Add(1) }
func (o *countingObserver) SessionsEvicted(n int) { o.evicted.Add(int64(n)) }

func TestResolveWithoutCookieCreatesSession(t *testing.T) {
	st := NewStore()
	s, created := st.Resolve("", "10.0.0.1")
	require.NotNil(t, s)
	assert.True(t, created)
	assert.NotEmpty(t, s.ID())
	assert.Equal(t, "10.0.0.1", s.RemoteAddress())
	assert.False(t, s.IsLoggedIn())
	assert.Equal(t, 1, st.Count())
}

func TestResolveUnknownIDIssuesFreshID(t *testing.T) {
	st := NewStore()
	s, created := st.Resolve("never-issued", "10.0.0.1")
	assert.True(t, created)
	assert.NotEqual(t, "never-issued", s.ID())
	_, ok := st.Lookup("never-issued")
	assert.False(t, ok)
}

func TestResolveReplayReturnsSameSession(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now))
	s1, created := st.Resolve("", "10.0.0.1")
	require.True(t, created)
	first := s1.LastActivity()

	clk.Advance(time.Minute)
	s2, created := st.Resolve(s1.ID(), "10.0.0.2")
	assert.False(t, created)
	assert.Same(t, s1, s2)
	assert.Equal(t, "10.0.0.2", s2.RemoteAddress())
	assert.True(t, s2.LastActivity().After(first))
}

func TestResolveExpiredCookieYieldsNewSession(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now), WithTimeout(time.Minute))
	old, _ := st.Resolve("", "a")

	clk.Advance(2 * time.Minute)
	assert.True(t, old.IsExpired())

	fresh, created := st.Resolve(old.ID(), "a")
	assert.True(t, created)
	assert.NotEqual(t, old.ID(), fresh.ID())
	_, ok := st.Lookup(old.ID())
	assert.False(t, ok)
	assert.Equal(t, 1, st.Count())
}

func TestExpiryIsSticky(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now), WithTimeout(time.Minute))
	s, _ := st.Resolve("", "a")

	clk.Advance(61 * time.Second)
	require.True(t, s.IsExpired())
	s.Touch()
	assert.True(t, s.IsExpired(), "touch must not revive an expired session")
}

func TestLookupHasNoActivitySideEffect(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now))
	s, _ := st.Resolve("", "a")
	before := s.LastActivity()

	clk.Advance(time.Minute)
	got, ok := st.Lookup(s.ID())
	require.True(t, ok)
	assert.Same(t, s, got)
	assert.Equal(t, before, got.LastActivity())

	_, ok = st.Lookup("")
	assert.False(t, ok)
}

func TestCloseRemovesSessionAndIsIdempotent(t *testing.T) {
	obs := &countingObserver{}
	st := NewStore(WithObserver(obs))
	s, _ := st.Resolve("", "a")
	s.Close()
	s.Close()
	assert.True(t, s.IsExpired())
	assert.Equal(t, 0, st.Count())
	assert.EqualValues(t, 1, obs.created.Load())
	assert.EqualValues(t, 1, obs.evicted.Load())

	fresh, created := st.Resolve(s.ID(), "a")
	assert.True(t, created)
	assert.NotEqual(t, s.ID(), fresh.ID())
}

func TestRemoveLeavesReplacementAlone(t *testing.T) {
	ids := []string{"dup", "dup", "other"}
	var i int
	st := NewStore(WithIDGenerator(func() (string, error) { id := ids[i]; i++; return id, nil }))

	a, _ := st.Resolve("", "x")
	require.Equal(t, "dup", a.ID())
	st.Remove(a)

	b, _ := st.Resolve("", "x")
	require.Equal(t, "dup", b.ID())
	st.Remove(a)
	got, ok := st.Lookup("dup")
	require.True(t, ok)
	assert.Same(t, b, got)
}

func TestIDGenerationRetriesOnCollisionAndError(t *testing.T) {
	calls := 0
	gen := func() (string, error) {
		calls++
		switch calls {
		case 1:
			return "taken", nil
		case 2:
			return "", errors.New("entropy exhausted")
		case 3:
			return "taken", nil
		default:
			return "free", nil
		}
	}
	st := NewStore(WithIDGenerator(gen))
	first, _ := st.Resolve("", "a")
	require.Equal(t, "taken", first.ID())

	second, _ := st.Resolve("", "a")
	assert.Equal(t, "free", second.ID())
	assert.Equal(t, 4, calls)
}

func TestIDGeneratorFallsBackAfterRepeatedFailure(t *testing.T) {
	st := NewStore(WithIDGenerator(func() (string, error) { return "", errors.New("broken") }))
	s, created := st.Resolve("", "a")
	assert.True(t, created)
	assert.NotEmpty(t, s.ID())
}

func TestConcurrentCreationProducesDistinctIDs(t *testing.T) {
	st := NewStore()
	const workers = 1000

	var wg sync.WaitGroup
	ids := make([]string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, created := st.Resolve("", "10.0.0.1")
			if created {
				ids[i] = s.ID()
			}
		}(i)
	}
	wg.Wait()

	seen := make(map[string]struct{}, workers)
	for _, id := range ids {
		require.NotEmpty(t, id)
		_, dup := seen[id]
		require.False(t, dup, "duplicate id %q", id)
		seen[id] = struct{}{}
	}
	assert.Equal(t, workers, st.Count())
}

func TestSweepAfterMassInsertEmptiesStore(t *testing.T) {
	clk := newFakeClock()
	obs := &countingObserver{}
	st := NewStore(WithClock(clk.Now), WithTimeout(time.Minute), WithObserver(obs))

	var wg sync.WaitGroup
	for i := 0; i < 1000; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			st.Resolve("", "a")
		}()
	}
	wg.Wait()
	require.Equal(t, 1000, len(st.All()))

	clk.Advance(time.Hour)
	assert.Equal(t, 1000, st.Sweep())
	assert.Equal(t, 0, st.Count())
	assert.EqualValues(t, 1000, obs.created.Load())
	assert.EqualValues(t, 1000, obs.evicted.Load())
}

func TestSweepConcurrentWithResolveAndMutation(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now), WithTimeout(time.Second))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(3)
		go func() {
			defer wg.Done()
			s, _ := st.Resolve("", "a")
			s.SetProperty("k", "v")
			_ = s.Property("k", "")
		}()
		go func() {
			defer wg.Done()
			clk.Advance(100 * time.Millisecond)
			st.Sweep()
		}()
		go func() {
			defer wg.Done()
			for _, s := range st.All() {
				_ = s.Properties()
				_ = s.LastActivity()
			}
		}()
	}
	wg.Wait()
	clk.Advance(time.Minute)
	st.Sweep()
	assert.Equal(t, 0, st.Count())
}

func TestAllReturnsSnapshot(t *testing.T) {
	st := NewStore()
	st.Resolve("", "a")
	snap := st.All()
	st.Resolve("", "b")
	assert.Len(t, snap, 1)
	assert.Len(t, st.All(), 2)
}

func TestRunSweepsUntilCancelled(t *testing.T) {
	clk := newFakeClock()
	st := NewStore(WithClock(clk.Now), WithTimeout(time.Minute))
	st.Resolve("", "a")
	clk.Advance(time.Hour)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		st.Run(ctx, time.Millisecond)
		close(done)
	}()

	require.Eventually(t, func() bool {
		st.mu.Lock()
		defer st.mu.Unlock()
		return len(st.sessions) == 0
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
