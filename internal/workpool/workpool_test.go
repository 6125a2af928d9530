package workpool

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/huangsam/triad/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func value(v int) func(context.Context) (int, error) {
	return func(context.Context) (int, error) { return v, nil }
}

func TestRun_Statuses(t *testing.T) {
	tasks := []Task[int]{
		{Name: "ok", Run: value(7)},
		{Name: "fails", Run: func(context.Context) (int, error) { return 3, errors.New("boom") }},
		{Name: "slow", Run: func(ctx context.Context) (int, error) {
			<-ctx.Done()
			return 99, ctx.Err()
		}},
		{Name: "panics", Run: func(context.Context) (int, error) { panic("kaboom") }},
	}

	results := Run(context.Background(), tasks, Options{Limit: 4, Timeout: 50 * time.Millisecond})
	require.Len(t, results, 4)

	assert.Equal(t, "ok", results[0].Name)
	assert.Equal(t, schema.StatusCompleted, results[0].Status)
	assert.Equal(t, 7, results[0].Value)
	assert.NoError(t, results[0].Err)

	assert.Equal(t, schema.StatusErrored, results[1].Status)
	assert.EqualError(t, results[1].Err, "boom")
	assert.Zero(t, results[1].Value, "values of failed tasks are discarded")

	assert.Equal(t, schema.StatusTimedOut, results[2].Status)
	assert.ErrorIs(t, results[2].Err, ErrTimedOut)
	assert.Zero(t, results[2].Value, "partial results of timed out tasks are discarded")

	assert.Equal(t, schema.StatusErrored, results[3].Status)
	assert.ErrorContains(t, results[3].Err, "panic: kaboom")
}

func TestRun_TaskIgnoringContextStillTimesOut(t *testing.T) {
	release := make(chan struct{})
	tasks := []Task[int]{{Name: "stuck", Run: func(context.Context) (int, error) {
		<-release
		return 1, nil
	}}}

	results := Run(context.Background(), tasks, Options{Timeout: 20 * time.Millisecond})
	close(release)

	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusTimedOut, results[0].Status)
	assert.Zero(t, results[0].Value)
}

func TestRun_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tasks := []Task[int]{{Name: "waits", Run: func(ctx context.Context) (int, error) {
		<-ctx.Done()
		return 0, ctx.Err()
	}}}
	results := Run(ctx, tasks, Options{Timeout: time.Second})
	require.Len(t, results, 1)
	assert.Equal(t, schema.StatusErrored, results[0].Status)
	assert.ErrorIs(t, results[0].Err, context.Canceled)
}

func TestRun_RespectsLimit(t *testing.T) {
	var running, peak atomic.Int32
	var mu sync.Mutex
	task := func(context.Context) (int, error) {
		n := running.Add(1)
		mu.Lock()
		if n > peak.Load() {
			peak.Store(n)
		}
		mu.Unlock()
		time.Sleep(5 * time.Millisecond)
		running.Add(-1)
		return 1, nil
	}

	tasks := make([]Task[int], 8)
	for i := range tasks {
		tasks[i] = Task[int]{Name: "t", Run: task}
	}

	results := Run(context.Background(), tasks, Options{Limit: 2})
	assert.Len(t, results, 8)
	assert.LessOrEqual(t, peak.Load(), int32(2))

	peak.Store(0)
	Run(context.Background(), tasks, Options{Limit: 0})
	assert.Equal(t, int32(1), peak.Load(), "a limit below one runs tasks sequentially")
}

func TestRun_Empty(t *testing.T) {
	assert.Empty(t, Run[int](context.Background(), nil, Options{Limit: 2}))
}

type countingProgress struct {
	mu    sync.Mutex
	count int
	names []string
}

func (p *countingProgress) Increment(n int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.count += n
}

func (p *countingProgress) Describe(d string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.names = append(p.names, d)
}

func (p *countingProgress) Complete() {}

func TestRun_Progress(t *testing.T) {
	progress := &countingProgress{}
	tasks := []Task[int]{{Name: "a", Run: value(1)}, {Name: "b", Run: value(2)}}
	Run(context.Background(), tasks, Options{Limit: 2, Progress: progress})
	assert.Equal(t, 2, progress.count)
	assert.ElementsMatch(t, []string{"a", "b"}, progress.names)
}

func TestNewProgress_DisabledIsNoOp(t *testing.T) {
	p := NewProgress(false, "agents", 3)
	assert.IsType(t, noOpProgress{}, p)
	p.Increment(1)
	p.Describe("x")
	p.Complete()
}

func TestBarProgress_WritesToWriter(t *testing.T) {
	var buf bytes.Buffer
	p := newBarProgress(&buf, "agents", 2)
	p.Describe("security")
	p.Increment(2)
	p.Complete()
	assert.NotEmpty(t, buf.String())
}
