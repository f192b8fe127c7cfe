package emp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestActivityTrackerSet(t *testing.T) {
	t.Parallel()
	tr := newActivityTracker()
	require.Equal(t, ActivityIdle, tr.get())
	require.True(t, tr.set(ActivityPlaying))
	require.False(t, tr.set(ActivityPlaying))
	require.Equal(t, ActivityPlaying, tr.get())
}

func TestActivityTrackerWaitSeesIntermediateChanges(t *testing.T) {
	t.Parallel()
	tr := newActivityTracker()

	go func() {
		for _, a := range []PlayerActivity{ActivityPlaying, ActivityBufferUnderrun, ActivityPlaying, ActivityFinished} {
			time.Sleep(5 * time.Millisecond)
			tr.set(a)
		}
	}()
	require.True(t, tr.wait(2*time.Second, ActivityFinished))
	require.False(t, tr.wait(10*time.Millisecond, ActivityStopped))
}

func TestParseActivity(t *testing.T) {
	t.Parallel()
	tests := map[string]PlayerActivity{
		"Playing":         ActivityPlaying,
		"PAUSED":          ActivityPaused,
		"stopped":         ActivityStopped,
		"BUFFER_UNDERRUN": ActivityBufferUnderrun,
		"FINISHED":        ActivityFinished,
		"":                ActivityIdle,
		"nonsense":        ActivityIdle,
	}
	for in, want := range tests {
		require.Equal(t, want, ParseActivity(in), in)
	}
	b, err := ActivityBufferUnderrun.MarshalText()
	require.NoError(t, err)
	require.Equal(t, "BUFFER_UNDERRUN", string(b))
	require.Equal(t, "UNKNOWN", PlayerActivity(42).String())
}
