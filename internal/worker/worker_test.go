package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunner_RecoversAndWaits(t *testing.T) {
	r := NewRunner(context.Background())
	var done atomic.Int32

	assert.True(t, r.Go("panics", func(context.Context) { panic("boom") }))
	assert.True(t, r.Go("waits for cancel", func(ctx context.Context) {
		<-ctx.Done()
		done.Add(1)
	}))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))
	assert.Equal(t, int32(1), done.Load())

	ran := false
	assert.False(t, r.Run("after shutdown", func(context.Context) { ran = true }))
	assert.False(t, r.Go("after shutdown", func(context.Context) { ran = true }))
	assert.False(t, ran)
}

func TestRunner_AcceptedWorkRunsAfterCancel(t *testing.T) {
	for i := 0; i < 50; i++ {
		r := NewRunner(context.Background())
		var sawCancel atomic.Bool
		require.True(t, r.Go("late", func(ctx context.Context) {
			<-ctx.Done()
			sawCancel.Store(true)
		}))
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		require.NoError(t, r.Shutdown(ctx))
		cancel()
		assert.True(t, sawCancel.Load(), "iteration %d", i)
	}
}

func TestRunner_ShutdownDeadline(t *testing.T) {
	r := NewRunner(context.Background())
	release := make(chan struct{})
	defer close(release)
	r.Go("stuck", func(context.Context) { <-release })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Shutdown(ctx), context.DeadlineExceeded)
}

func TestScheduler(t *testing.T) {
	r := NewRunner(context.Background())
	s := NewScheduler(r)

	assert.Error(t, s.AddJob("bad", "every now and then", func(context.Context) {}))

	var ticks atomic.Int32
	require.NoError(t, s.AddJob("tick", "@every 1s", func(context.Context) { ticks.Add(1) }))
	require.NoError(t, s.AddJob("daily", "@every 24h", func(context.Context) {}))
	assert.Equal(t, []string{"daily", "tick"}, s.Jobs())

	s.Start()
	defer s.Stop()
	assert.Eventually(t, func() bool { return ticks.Load() > 0 }, 3*time.Second, 50*time.Millisecond)
}
