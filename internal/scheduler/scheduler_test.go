package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arrmate/arrmate/internal/testutil"
)

func newScheduler(t *testing.T) *Scheduler {
	t.Helper()
	s, err := New(testutil.NewTestLogger(t))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Stop() })
	return s
}

func TestRegisterTask(t *testing.T) {
	s := newScheduler(t)
	noop := func(context.Context) error { return nil }

	require.NoError(t, s.RegisterTask(TaskConfig{ID: "b", Name: "B", Interval: time.Hour, Func: noop}))
	require.NoError(t, s.RegisterTask(TaskConfig{ID: "a", Name: "A", Cron: "0 2 * * *", Func: noop}))

	assert.ErrorIs(t, s.RegisterTask(TaskConfig{ID: "a", Interval: time.Hour, Func: noop}), ErrDuplicateTask)
	assert.ErrorIs(t, s.RegisterTask(TaskConfig{ID: "c", Func: noop}), ErrNoSchedule)

	tasks := s.ListTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "a", tasks[0].ID)
	assert.Equal(t, "0 2 * * *", tasks[0].Cron)
	assert.Equal(t, "1h0m0s", tasks[1].Interval)

	_, err := s.GetTask("missing")
	assert.ErrorIs(t, err, ErrTaskNotFound)
}

func TestRunNow(t *testing.T) {
	s := newScheduler(t)
	var runs atomic.Int32
	done := make(chan struct{}, 1)

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "cleanup",
		Name:     "Cleanup",
		Interval: time.Hour,
		Func: func(context.Context) error {
			runs.Add(1)
			done <- struct{}{}
			return errors.New("disk full")
		},
	}))
	require.NoError(t, s.Start())
	require.NoError(t, s.RunNow("cleanup"))

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("task did not run")
	}

	require.Eventually(t, func() bool {
		info, err := s.GetTask("cleanup")
		return err == nil && info.LastRun != nil && !info.Running
	}, 2*time.Second, 10*time.Millisecond)

	info, _ := s.GetTask("cleanup")
	assert.Equal(t, "disk full", info.LastError)
	assert.Equal(t, int32(1), runs.Load())
	assert.ErrorIs(t, s.RunNow("missing"), ErrTaskNotFound)
}

func TestStopCancelsRunningTask(t *testing.T) {
	s, err := New(testutil.NopLogger())
	require.NoError(t, err)

	started := make(chan struct{})
	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:         "slow",
		Interval:   time.Hour,
		RunOnStart: true,
		Func: func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		},
	}))
	require.NoError(t, s.Start())
	<-started

	stopped := make(chan struct{})
	go func() {
		_ = s.Stop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Stop did not return")
	}
}

func TestRegisterTask_NameDefaultsToID(t *testing.T) {
	s := newScheduler(t)

	require.NoError(t, s.RegisterTask(TaskConfig{
		ID:       "unnamed",
		Interval: time.Hour,
		Func:     func(ctx context.Context) error { return nil },
	}))

	info, err := s.GetTask("unnamed")
	require.NoError(t, err)
	assert.Equal(t, "unnamed", info.Name)
}
