package workers

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/media-relay/config"
)

func newScheduler(limit int) *Scheduler {
	return NewScheduler(&config.RelayConfig{MaxConcurrent: limit}, zerolog.Nop())
}

func TestScheduler_BoundsConcurrency(t *testing.T) {
	const n = 3
	s := newScheduler(n)

	var current, peak atomic.Int32
	tasks := make([]*Task, 0, 3*n)

	for i := 0; i < 3*n; i++ {
		tasks = append(tasks, s.Submit(context.Background(), "item", func(ctx context.Context) error {
			c := current.Add(1)
			for {
				p := peak.Load()
				if c <= p || peak.CompareAndSwap(p, c) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			current.Add(-1)
			return nil
		}))
	}

	for _, task := range tasks {
		require.NoError(t, task.Wait(context.Background()))
	}

	require.LessOrEqual(t, peak.Load(), int32(n))
	require.Equal(t, 0, s.Stats().Running)
	require.Equal(t, 0, s.Stats().Queued)
}

func TestScheduler_PropagatesError(t *testing.T) {
	s := newScheduler(1)
	boom := errors.New("boom")

	task := s.Submit(context.Background(), "item", func(context.Context) error { return boom })

	require.ErrorIs(t, task.Err(), boom)
}

func TestScheduler_CancelAll(t *testing.T) {
	s := newScheduler(2)

	started := make(chan struct{}, 2)
	var cleaned atomic.Int32

	tasks := make([]*Task, 0, 5)
	for i := 0; i < 5; i++ {
		tasks = append(tasks, s.Submit(context.Background(), "item", func(ctx context.Context) error {
			defer cleaned.Add(1)
			started <- struct{}{}
			<-ctx.Done()
			return ctx.Err()
		}))
	}

	<-started
	<-started

	jobCtx, finish := s.Attach(context.Background(), "batch")
	defer finish()

	st := s.Stats()
	require.Equal(t, 2, st.Running)
	require.Equal(t, 3, st.Queued)
	require.Equal(t, 1, st.Attached)

	require.Equal(t, 6, s.CancelAll())

	for _, task := range tasks {
		require.ErrorIs(t, task.Err(), context.Canceled)
	}
	require.Error(t, jobCtx.Err(), "attached job must see cancellation")
	require.Equal(t, int32(2), cleaned.Load(), "only started tasks run their body")
}

func TestScheduler_CancelAllEmpty(t *testing.T) {
	s := newScheduler(1)
	require.Equal(t, 0, s.CancelAll())
}

func TestScheduler_StopRejectsNewWork(t *testing.T) {
	s := newScheduler(1)
	require.NoError(t, s.Stop(context.Background()))

	task := s.Submit(context.Background(), "late", func(context.Context) error { return nil })
	require.ErrorIs(t, task.Err(), ErrStopped)
}

func TestScheduler_ConcurrentSubmit(t *testing.T) {
	s := newScheduler(4)

	var wg sync.WaitGroup
	var ran atomic.Int32
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			task := s.Submit(context.Background(), "item", func(context.Context) error {
				ran.Add(1)
				return nil
			})
			_ = task.Err()
		}()
	}
	wg.Wait()

	require.Equal(t, int32(20), ran.Load())
}
