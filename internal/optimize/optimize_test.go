package optimize

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doe-studio/internal/doe"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func loadParams(t *testing.T, raw doe.Raw) doe.Params {
	t.Helper()
	p, _, issues := doe.Load(raw)
	require.Empty(t, issues)
	return p
}

func TestStub_Deterministic(t *testing.T) {
	p := loadParams(t, doe.Raw{"mode": "2d_spot_projector", "arrayRows": "5", "arrayCols": "5"})
	s := NewStub(64)

	a, err := s.Optimize(context.Background(), p)
	require.NoError(t, err)
	b, err := s.Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a.PhaseMap, 64)
	assert.Len(t, a.PhaseMap[0], 64)
	assert.Len(t, a.TargetIntensity, 5)
	assert.Len(t, a.ActualIntensity[0], 5)
	assert.Len(t, a.OrderEnergies, 11)
}

func TestStub_ValuesInRange(t *testing.T) {
	p := loadParams(t, doe.Raw{"mode": "1d_splitter", "splitterCount": "7", "deviceShape": "square"})
	res, err := NewStub(32).Optimize(context.Background(), p)
	require.NoError(t, err)

	for _, row := range res.PhaseMap {
		for _, v := range row {
			assert.GreaterOrEqual(t, v, 0)
			assert.LessOrEqual(t, v, 255)
		}
	}
	assert.GreaterOrEqual(t, res.Efficiency.TotalEfficiency, 0.0)
	assert.LessOrEqual(t, res.Efficiency.TotalEfficiency, 1.0+1e-9)
	assert.GreaterOrEqual(t, res.Efficiency.ZerothOrderLeakage, 0.0)
	assert.Len(t, res.TargetIntensity, 1)
	assert.Len(t, res.TargetIntensity[0], 7)
}

func TestStub_BinaryRecipeQuantizes(t *testing.T) {
	p := loadParams(t, doe.Raw{
		"mode":               "prism",
		"fabricationEnabled": true,
		"fabricationRecipe":  "binary",
	})
	res, err := NewStub(32).Optimize(context.Background(), p)
	require.NoError(t, err)

	assert.Equal(t, 2, res.PhaseLevels)
	for _, row := range res.PhaseMap {
		for _, v := range row {
			assert.Contains(t, []int{0, 255}, v)
		}
	}
}

func TestStub_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := loadParams(t, doe.Raw{})
	_, err := NewStub(64).Optimize(ctx, p)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestQuantize(t *testing.T) {
	assert.Equal(t, 0, quantize(10, 4))
	assert.Equal(t, 85, quantize(70, 4))
	assert.Equal(t, 255, quantize(255, 4))
	assert.Equal(t, 123, quantize(123, 0))
	assert.Equal(t, 123, quantize(123, 256))
}

func waitDone(t *testing.T, r *Runner, id int64) Job {
	t.Helper()
	var job Job
	require.Eventually(t, func() bool {
		j, ok := r.Status(id)
		job = j
		return ok && j.Done()
	}, 2*time.Second, 5*time.Millisecond)
	return job
}

func TestRunner_Succeeds(t *testing.T) {
	r := NewRunner(discardLogger(), time.Second)

	job, err := r.Start(1, func(ctx context.Context) error { return nil })
	require.NoError(t, err)
	assert.NotEmpty(t, job.ID)

	done := waitDone(t, r, 1)
	assert.Equal(t, job.ID, done.ID)
	assert.Equal(t, StateSucceeded, done.State)
	assert.False(t, done.Retryable)
	assert.NotNil(t, done.FinishedAt)
}

func TestRunner_SingleFlightPerDesign(t *testing.T) {
	r := NewRunner(discardLogger(), time.Second)
	release := make(chan struct{})

	_, err := r.Start(7, func(ctx context.Context) error {
		<-release
		return nil
	})
	require.NoError(t, err)

	_, err = r.Start(7, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrInFlight)

	// другой дизайн не блокируется
	_, err = r.Start(8, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)

	close(release)
	waitDone(t, r, 7)

	_, err = r.Start(7, func(ctx context.Context) error { return nil })
	assert.NoError(t, err)
	waitDone(t, r, 7)
}

func TestRunner_TimeoutIsRetryable(t *testing.T) {
	r := NewRunner(discardLogger(), 20*time.Millisecond)

	_, err := r.Start(3, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	job := waitDone(t, r, 3)
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, ErrTimeout.Error(), job.Error)
	assert.True(t, job.Retryable)
}

func TestRunner_TaskError(t *testing.T) {
	r := NewRunner(discardLogger(), time.Second)

	_, err := r.Start(4, func(ctx context.Context) error { return errors.New("boom") })
	require.NoError(t, err)

	job := waitDone(t, r, 4)
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, "boom", job.Error)
}

func TestRunner_Panic(t *testing.T) {
	r := NewRunner(discardLogger(), time.Second)

	_, err := r.Start(5, func(ctx context.Context) error { panic("bad grid") })
	require.NoError(t, err)

	job := waitDone(t, r, 5)
	assert.Equal(t, StateFailed, job.State)
	assert.Contains(t, job.Error, "bad grid")
}

func TestRunner_ShutdownCancelsJobs(t *testing.T) {
	r := NewRunner(discardLogger(), time.Minute)
	started := make(chan struct{})

	_, err := r.Start(9, func(ctx context.Context) error {
		close(started)
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)
	<-started

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, r.Shutdown(ctx))

	job, ok := r.Status(9)
	require.True(t, ok)
	assert.Equal(t, StateFailed, job.State)
	assert.Equal(t, ErrCanceled.Error(), job.Error)

	_, err = r.Start(10, func(ctx context.Context) error { return nil })
	assert.ErrorIs(t, err, ErrClosed)
}

func TestRunner_UnknownDesign(t *testing.T) {
	r := NewRunner(discardLogger(), time.Second)
	_, ok := r.Status(42)
	assert.False(t, ok)
}
