package emp

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExecutorRunsInOrder(t *testing.T) {
	t.Parallel()
	e := newExecutor()

	var (
		mu  sync.Mutex
		got []int
	)
	for i := 0; i < 100; i++ {
		i := i
		require.NoError(t, e.submit(func() {
			mu.Lock()
			got = append(got, i)
			mu.Unlock()
		}))
	}
	require.NoError(t, e.close(context.Background(), nil))

	require.Len(t, got, 100)
	for i, v := range got {
		require.Equal(t, i, v)
	}
}

func TestExecutorTaskMaySubmit(t *testing.T) {
	t.Parallel()
	e := newExecutor()

	done := make(chan struct{})
	require.NoError(t, e.submit(func() {
		if err := e.submit(func() { close(done) }); err != nil {
			t.Error(err)
		}
	}))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("nested task never ran")
	}
	require.NoError(t, e.close(context.Background(), nil))
}

func TestExecutorClose(t *testing.T) {
	t.Parallel()
	e := newExecutor()

	ran := false
	lastRan := false
	require.NoError(t, e.submit(func() { ran = true }))
	require.NoError(t, e.close(context.Background(), func() { lastRan = ran }))
	require.True(t, lastRan)
	require.True(t, e.isClosed())

	require.ErrorIs(t, e.submit(func() {}), ErrShutdown)
	require.ErrorIs(t, e.call(context.Background(), func() {}), ErrShutdown)
	require.ErrorIs(t, e.close(context.Background(), nil), ErrShutdown)
}

func TestExecutorCallHonorsContext(t *testing.T) {
	t.Parallel()
	e := newExecutor()
	block := make(chan struct{})
	require.NoError(t, e.submit(func() { <-block }))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, e.call(ctx, func() {}), context.DeadlineExceeded)

	close(block)
	require.NoError(t, e.close(context.Background(), nil))
}
