package emp

import (
	"sync"
	"time"
)

// activityTracker holds the current activity of the player in focus and
// lets callers wait for it to reach a value.
type activityTracker struct {
	mu      sync.Mutex
	current PlayerActivity
	changed chan struct{} // closed and replaced on every change
}

func newActivityTracker() *activityTracker {
	return &activityTracker{
		current: ActivityIdle,
		changed: make(chan struct{}),
	}
}

func (t *activityTracker) get() PlayerActivity {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// set stores a and reports whether the value changed.
func (t *activityTracker) set(a PlayerActivity) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == a {
		return false
	}
	t.current = a
	close(t.changed)
	t.changed = make(chan struct{})
	return true
}

// wait blocks until the activity equals want or the timeout expires.
// It reports whether want was reached.
func (t *activityTracker) wait(timeout time.Duration, want PlayerActivity) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		t.mu.Lock()
		if t.current == want {
			t.mu.Unlock()
			return true
		}
		ch := t.changed
		t.mu.Unlock()

		select {
		case <-ch:
		case <-timer.C:
			return t.get() == want
		}
	}
}
