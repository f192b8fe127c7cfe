package emp

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestObserverSetReplaceByName(t *testing.T) {
	t.Parallel()
	s := newObserverSet()

	var first, second int
	s.add("ui", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { first++ }))
	s.add("ui", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { second++ }))
	require.Equal(t, 1, s.len())

	s.notify("p", SessionProperties{}, PlaybackProperties{})
	require.Equal(t, 0, first)
	require.Equal(t, 1, second)
}

func TestObserverRemovedDuringNotification(t *testing.T) {
	t.Parallel()
	s := newObserverSet()

	calls := map[string]int{}
	// Whichever observer runs first removes the other; the other must not
	// be called afterwards.
	s.add("a", ObserverFunc(func(string, SessionProperties, PlaybackProperties) {
		calls["a"]++
		s.remove("b")
	}))
	s.add("b", ObserverFunc(func(string, SessionProperties, PlaybackProperties) {
		calls["b"]++
		s.remove("a")
	}))

	s.notify("p", SessionProperties{}, PlaybackProperties{})
	require.Equal(t, 1, calls["a"]+calls["b"])
	require.Equal(t, 0, s.len())
}

func TestObserverPanicDoesNotStopFanOut(t *testing.T) {
	t.Parallel()
	s := newObserverSet()

	var mu sync.Mutex
	got := 0
	s.add("bad", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { panic("boom") }))
	s.add("good", ObserverFunc(func(string, SessionProperties, PlaybackProperties) {
		mu.Lock()
		got++
		mu.Unlock()
	}))

	require.NotPanics(t, func() {
		s.notify("p", SessionProperties{}, PlaybackProperties{})
	})
	require.Equal(t, 1, got)
}

func TestObserverSetClear(t *testing.T) {
	t.Parallel()
	s := newObserverSet()
	called := false
	s.add("a", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { called = true }))
	require.True(t, s.remove("a"))
	require.False(t, s.remove("a"))

	s.add("b", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { called = true }))
	s.clear()
	s.notify("p", SessionProperties{}, PlaybackProperties{})
	require.False(t, called)
	require.Equal(t, 0, s.len())
}

func TestObserverRemovedWhileNotifying(t *testing.T) {
	t.Parallel()
	s := newObserverSet()
	var calls atomic.Int64
	s.add("ui", ObserverFunc(func(string, SessionProperties, PlaybackProperties) { calls.Add(1) }))

	stop := make(chan struct{})
	finished := make(chan struct{})
	go func() {
		defer close(finished)
		for {
			select {
			case <-stop:
				return
			default:
				s.notify("p", SessionProperties{}, PlaybackProperties{})
			}
		}
	}()

	require.Eventually(t, func() bool { return calls.Load() > 0 }, 2*time.Second, time.Millisecond)
	require.True(t, s.remove("ui"))
	atRemoval := calls.Load()
	time.Sleep(10 * time.Millisecond)
	close(stop)
	<-finished

	// Only a call already under way when remove returned may land.
	require.LessOrEqual(t, calls.Load()-atRemoval, int64(1))
}
