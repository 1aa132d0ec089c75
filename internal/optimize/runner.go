package optimize

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInFlight is returned when the design already has a running job.
	ErrInFlight = errors.New("optimization already in progress")
	// ErrTimeout is the failure recorded for a job that ran out of time.
	ErrTimeout = errors.New("optimization timed out")
	// ErrCanceled is recorded for jobs stopped by Shutdown.
	ErrCanceled = errors.New("optimization canceled")
	// ErrClosed is returned by Start after Shutdown.
	ErrClosed = errors.New("runner is shut down")
)

type State string

const (
	StateQueued    State = "queued"
	StateRunning   State = "running"
	StateSucceeded State = "succeeded"
	StateFailed    State = "failed"
)

// Job is a snapshot of one optimization run.
type Job struct {
	ID         string     `json:"id"`
	DesignID   int64      `json:"designId"`
	State      State      `json:"state"`
	Error      string     `json:"error,omitempty"`
	Retryable  bool       `json:"retryable"`
	CreatedAt  time.Time  `json:"createdAt"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`
}

// Done reports whether the job reached a final state.
func (j Job) Done() bool {
	return j.State == StateSucceeded || j.State == StateFailed
}

// Task is the work of one job. It must return once ctx is done.
type Task func(ctx context.Context) error

// Runner executes at most one task per design at a time, each bounded by
// a timeout. The last job of every design stays queryable.
type Runner struct {
	log     *slog.Logger
	timeout time.Duration

	mu     sync.Mutex
	jobs   map[int64]*Job
	closed bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewRunner(log *slog.Logger, timeout time.Duration) *Runner {
	ctx, cancel := context.WithCancel(context.Background())
	return &Runner{
		log:     log,
		timeout: timeout,
		jobs:    make(map[int64]*Job),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start launches task for designID in the background.
func (r *Runner) Start(designID int64, task Task) (Job, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return Job{}, ErrClosed
	}
	if j, ok := r.jobs[designID]; ok && !j.Done() {
		return *j, ErrInFlight
	}

	job := &Job{
		ID:        uuid.NewString(),
		DesignID:  designID,
		State:     StateQueued,
		CreatedAt: time.Now(),
	}
	r.jobs[designID] = job

	r.wg.Add(1)
	go r.run(job, task)

	return *job, nil
}

func (r *Runner) run(job *Job, task Task) {
	const op = "optimize.Runner.run"
	defer r.wg.Done()

	log := r.log.With(
		slog.String("op", op),
		slog.String("job_id", job.ID),
		slog.Int64("design_id", job.DesignID),
	)

	ctx := r.ctx
	var cancel context.CancelFunc
	if r.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
	} else {
		ctx, cancel = context.WithCancel(ctx)
	}
	defer cancel()

	r.setState(job, StateRunning, nil)

	err := r.safeRun(ctx, task)
	switch {
	case err == nil:
		r.setState(job, StateSucceeded, nil)
		log.Info("optimization finished")
	case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
		r.setState(job, StateFailed, ErrTimeout)
		log.Warn("optimization timed out", slog.Duration("timeout", r.timeout))
	case errors.Is(err, context.Canceled) || r.ctx.Err() != nil:
		r.setState(job, StateFailed, ErrCanceled)
		log.Warn("optimization canceled")
	default:
		r.setState(job, StateFailed, err)
		log.Error("optimization failed", slog.String("error", err.Error()))
	}
}

func (r *Runner) safeRun(ctx context.Context, task Task) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("optimizer panic: %v", p)
		}
	}()
	return task(ctx)
}

func (r *Runner) setState(job *Job, state State, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	job.State = state
	if err != nil {
		job.Error = err.Error()
		job.Retryable = true
	}
	if job.Done() {
		now := time.Now()
		job.FinishedAt = &now
	}
}

// Status returns the last job of the design.
func (r *Runner) Status(designID int64) (Job, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	j, ok := r.jobs[designID]
	if !ok {
		return Job{}, false
	}
	return *j, true
}

// Shutdown cancels running jobs and waits for them to return or for ctx.
func (r *Runner) Shutdown(ctx context.Context) error {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.cancel()

	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
