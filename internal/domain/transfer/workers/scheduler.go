package workers

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/Conte777/media-relay/config"
	"github.com/Conte777/media-relay/internal/domain/transfer/entities"
	"github.com/Conte777/media-relay/internal/infrastructure/metrics"
)

// ErrStopped is returned by tasks submitted after Stop
var ErrStopped = errors.New("scheduler stopped")

// Func is one gated unit of work
type Func func(ctx context.Context) error

// Task is a handle to submitted work
type Task struct {
	ID    string
	Label string

	cancel context.CancelFunc
	done   chan struct{}
	err    error
	gated  bool
}

// Done is closed when the task has finished and released its permit
func (t *Task) Done() <-chan struct{} {
	return t.done
}

// Err returns the task result; valid after Done is closed
func (t *Task) Err() error {
	<-t.done
	return t.err
}

// Wait blocks until the task finishes or ctx is cancelled
func (t *Task) Wait(ctx context.Context) error {
	select {
	case <-t.done:
		return t.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Cancel requests cancellation of this task only
func (t *Task) Cancel() {
	t.cancel()
}

// Scheduler bounds the number of relay pipelines running at once
// and keeps a registry of everything that cancel-all should stop.
type Scheduler struct {
	limit   int
	sem     *semaphore.Weighted
	metrics *metrics.Metrics
	logger  zerolog.Logger

	mu      sync.Mutex
	tasks   map[string]*Task
	running int
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a scheduler with cfg.MaxConcurrent permits
func NewScheduler(cfg *config.RelayConfig, logger zerolog.Logger) *Scheduler {
	limit := cfg.MaxConcurrent
	if limit <= 0 {
		limit = 1
	}

	return &Scheduler{
		limit:   limit,
		sem:     semaphore.NewWeighted(int64(limit)),
		metrics: metrics.GetDefaultMetrics(),
		logger:  logger.With().Str("component", "scheduler").Logger(),
		tasks:   make(map[string]*Task),
	}
}

// Submit registers fn and runs it once a permit is free.
// The permit is released and the task deregistered on every exit path.
func (s *Scheduler) Submit(ctx context.Context, label string, fn Func) *Task {
	taskCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:     uuid.NewString(),
		Label:  label,
		cancel: cancel,
		done:   make(chan struct{}),
		gated:  true,
	}

	if !s.register(task) {
		cancel()
		task.err = ErrStopped
		close(task.done)
		return task
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer close(task.done)
		defer s.deregister(task)
		defer cancel()

		if err := s.sem.Acquire(taskCtx, 1); err != nil {
			task.err = err
			return
		}
		defer s.sem.Release(1)

		// a permit freed by a cancelled sibling must not start cancelled work
		if err := taskCtx.Err(); err != nil {
			task.err = err
			return
		}

		s.setRunning(1)
		defer s.setRunning(-1)

		task.err = fn(taskCtx)
	}()

	return task
}

// Attach registers an ungated job, such as a batch waiting between windows,
// so that CancelAll reaches it. The returned func must be called when the job ends.
func (s *Scheduler) Attach(ctx context.Context, label string) (context.Context, func()) {
	jobCtx, cancel := context.WithCancel(ctx)
	task := &Task{
		ID:     uuid.NewString(),
		Label:  label,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	if !s.register(task) {
		cancel()
		return jobCtx, func() {}
	}

	var once sync.Once
	return jobCtx, func() {
		once.Do(func() {
			s.deregister(task)
			cancel()
			close(task.done)
		})
	}
}

// CancelAll cancels every registered task and returns how many were cancelled
func (s *Scheduler) CancelAll() int {
	s.mu.Lock()
	tasks := make([]*Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		tasks = append(tasks, t)
	}
	s.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
	}

	if len(tasks) > 0 {
		s.metrics.RecordCancelled(len(tasks))
		s.logger.Info().Int("count", len(tasks)).Msg("Cancelled all tasks")
	}

	return len(tasks)
}

// Stats returns running, queued and attached counts
func (s *Scheduler) Stats() entities.Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := entities.Stats{Limit: s.limit, Running: s.running}
	for _, t := range s.tasks {
		if t.gated {
			st.Queued++
		} else {
			st.Attached++
		}
	}
	st.Queued -= s.running

	return st
}

// Stop cancels everything and waits for gated tasks to finish cleanup
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	s.CancelAll()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) register(t *Task) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return false
	}
	s.tasks[t.ID] = t
	return true
}

func (s *Scheduler) deregister(t *Task) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.tasks, t.ID)
}

func (s *Scheduler) setRunning(delta int) {
	s.mu.Lock()
	s.running += delta
	n := s.running
	s.mu.Unlock()

	s.metrics.UpdateRunning(n)
}
