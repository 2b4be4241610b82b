package notify

import (
	"bytes"
	"context"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqCounter struct {
	mu     sync.Mutex
	counts []int
	errs   map[int]error
	calls  int
	gate   chan struct{}
}

func (s *seqCounter) CountLeads(ctx context.Context) (int, error) {
	s.mu.Lock()
	i := s.calls
	s.calls++
	gate := s.gate
	s.mu.Unlock()

	if gate != nil {
		<-gate
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.errs[i]; err != nil {
		return 0, err
	}
	if i >= len(s.counts) {
		return s.counts[len(s.counts)-1], nil
	}
	return s.counts[i], nil
}

func (s *seqCounter) Calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func quiet() *log.Logger { return log.New(&bytes.Buffer{}, "", 0) }

// lockedBuffer is safe to read while a poll goroutine logs into it.
type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func TestObserveStateMachine(t *testing.T) {
	var raises []Baseline
	n := New(&seqCounter{}, true, Options{
		Logger:  quiet(),
		OnRaise: func(b Baseline) { raises = append(raises, b) },
	})
	require.Equal(t, Armed, n.Snapshot().State)

	n.Observe(40)
	s := n.Snapshot()
	assert.Equal(t, Baselined, s.State)
	assert.Equal(t, 40, s.LastObservedCount)
	assert.False(t, s.Visible, "first observation is never new")
	assert.Empty(t, raises)

	n.Observe(43)
	s = n.Snapshot()
	assert.Equal(t, Raised, s.State)
	assert.Equal(t, 3, s.PendingDelta)
	assert.Equal(t, 43, s.LastObservedCount)
	assert.True(t, s.Visible)
	require.Len(t, raises, 1)
	assert.Equal(t, 3, raises[0].PendingDelta)

	n.Dismiss()
	n.Observe(43)
	s = n.Snapshot()
	assert.Equal(t, Dismissed, s.State)
	assert.False(t, s.Visible)

	n.Observe(45)
	s = n.Snapshot()
	assert.Equal(t, Raised, s.State)
	assert.Equal(t, 2, s.PendingDelta)
	assert.Equal(t, 45, s.LastObservedCount)
	assert.True(t, s.Visible)
	assert.Len(t, raises, 2)
}

func TestRaisedStaysVisibleAndReRaises(t *testing.T) {
	n := New(&seqCounter{}, true, Options{Logger: quiet()})
	n.Observe(10)
	n.Observe(12)

	n.Observe(12)
	assert.True(t, n.Snapshot().Visible, "polling alone never hides the signal")

	n.Observe(15)
	s := n.Snapshot()
	assert.Equal(t, 3, s.PendingDelta, "a further increase overwrites the delta")
	assert.Equal(t, 15, s.LastObservedCount)

	n.Observe(11)
	s = n.Snapshot()
	assert.True(t, s.Visible)
	assert.Equal(t, 11, s.LastObservedCount, "baseline follows decreases too")

	n.Observe(12)
	assert.Equal(t, 1, n.Snapshot().PendingDelta)
}

func TestInactiveNotifierNeverPolls(t *testing.T) {
	c := &seqCounter{counts: []int{5}}
	n := New(c, false, Options{Interval: time.Millisecond, Logger: quiet()})

	assert.False(t, n.Start(context.Background()))
	n.Observe(5)
	n.Observe(9)
	n.Dismiss()

	time.Sleep(10 * time.Millisecond)
	assert.Zero(t, c.Calls())
	s := n.Snapshot()
	assert.Equal(t, Inactive, s.State)
	assert.False(t, s.Visible)
	assert.Zero(t, s.LastObservedCount)
}

func TestPollingRaisesAndStops(t *testing.T) {
	c := &seqCounter{counts: []int{40, 43}}
	raised := make(chan Baseline, 4)
	n := New(c, true, Options{
		Interval: 5 * time.Millisecond,
		Logger:   quiet(),
		OnRaise:  func(b Baseline) { raised <- b },
	})

	require.True(t, n.Start(context.Background()))
	assert.False(t, n.Start(context.Background()), "already running")

	select {
	case b := <-raised:
		assert.Equal(t, 3, b.PendingDelta)
		assert.Equal(t, 43, b.LastObservedCount)
	case <-time.After(time.Second):
		t.Fatal("no raise")
	}

	n.Stop()
	assert.False(t, n.Running())
	calls := c.Calls()
	time.Sleep(25 * time.Millisecond)
	assert.LessOrEqual(t, c.Calls(), calls+1, "at most the tick already in flight")
}

func TestPollErrorsAreSwallowed(t *testing.T) {
	c := &seqCounter{
		counts: []int{40, 0, 41},
		errs:   map[int]error{1: errors.New("connection reset")},
	}
	var out lockedBuffer
	n := New(c, true, Options{Interval: 2 * time.Millisecond, Logger: log.New(&out, "", 0)})
	require.True(t, n.Start(context.Background()))
	defer n.Stop()

	require.Eventually(t, func() bool { return n.Snapshot().Visible }, time.Second, time.Millisecond)
	s := n.Snapshot()
	assert.Equal(t, 1, s.PendingDelta, "the failed tick left the baseline at 40")
	assert.Equal(t, 41, s.LastObservedCount)
	assert.Contains(t, out.String(), "[notify] error: connection reset")
}

func TestResultAfterStopIsDropped(t *testing.T) {
	gate := make(chan struct{})
	c := &seqCounter{counts: []int{40}, gate: gate}
	n := New(c, true, Options{Interval: time.Hour, Logger: quiet()})

	require.True(t, n.Start(context.Background()))
	require.Eventually(t, func() bool { return c.Calls() == 1 }, time.Second, time.Millisecond)

	n.Stop()
	close(gate)
	time.Sleep(10 * time.Millisecond)

	s := n.Snapshot()
	assert.Equal(t, Armed, s.State, "a poll that lands after Stop must not baseline")
	assert.Zero(t, s.LastObservedCount)
}

func TestRestartRearms(t *testing.T) {
	c := &seqCounter{counts: []int{7}}
	n := New(c, true, Options{Interval: time.Hour, Logger: quiet()})
	n.Observe(3)
	n.Observe(5)
	require.True(t, n.Snapshot().Visible)

	require.True(t, n.Start(context.Background()))
	defer n.Stop()
	require.Eventually(t, func() bool { return n.Snapshot().State == Baselined }, time.Second, time.Millisecond)
	s := n.Snapshot()
	assert.Equal(t, 7, s.LastObservedCount)
	assert.False(t, s.Visible)
}

func TestStateText(t *testing.T) {
	b, err := Raised.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "raised", string(b))
	assert.Equal(t, "unknown", State(99).String())
}
