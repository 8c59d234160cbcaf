package tasks_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/dalemusser/stratassr/internal/app/system/dbconn"
	"github.com/dalemusser/stratassr/internal/app/system/tasks"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func mustRegister(t *testing.T, r *tasks.Runner, job tasks.Job) {
	t.Helper()
	if err := r.Register(job); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
}

func TestRunner_StartAndStop(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	ran := make(chan struct{}, 1)
	mustRegister(t, runner, tasks.Job{
		Name:     "test-job",
		Interval: 100 * time.Millisecond,
		Run: func(ctx context.Context) error {
			select {
			case ran <- struct{}{}:
			default:
			}
			return nil
		},
	})

	runner.Start(context.Background())
	<-ran

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := runner.Stop(ctx); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRunner_Register_Validates(t *testing.T) {
	runner := tasks.New(zap.NewNop())
	if err := runner.Register(tasks.Job{Name: "x", Run: func(context.Context) error { return nil }}); err == nil {
		t.Error("Register() with zero interval should fail")
	}
	if err := runner.Register(tasks.Job{Interval: time.Second}); err == nil {
		t.Error("Register() without name and run should fail")
	}
}

func TestRunner_StopWithTimeout(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	inJob := make(chan struct{})
	release := make(chan struct{})
	mustRegister(t, runner, tasks.Job{
		Name:     "slow-job",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			close(inJob)
			<-release // ignores ctx
			return nil
		},
	})

	runner.Start(context.Background())
	<-inJob

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if err := runner.Stop(ctx); err != context.DeadlineExceeded {
		t.Errorf("Stop() = %v, want %v", err, context.DeadlineExceeded)
	}
	if got := runner.Running(); len(got) != 1 || got[0] != "slow-job" {
		t.Errorf("Running() = %v, want [slow-job]", got)
	}

	close(release)
	if err := runner.Stop(context.Background()); err != nil {
		t.Errorf("second Stop() error = %v", err)
	}
}

func TestRunner_ParentCancellationStopsJobs(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	stopped := make(chan struct{})
	mustRegister(t, runner, tasks.Job{
		Name:     "context-aware-job",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			<-ctx.Done()
			close(stopped)
			return ctx.Err()
		},
	})

	parent, cancelParent := context.WithCancel(context.Background())
	runner.Start(parent)
	cancelParent()

	select {
	case <-stopped:
	case <-time.After(time.Second):
		t.Fatal("job context was not cancelled")
	}
	if err := runner.Stop(context.Background()); err != nil {
		t.Errorf("Stop() error = %v", err)
	}
}

func TestRunner_RunOnce(t *testing.T) {
	runner := tasks.New(zap.NewNop())

	var runCount atomic.Int32
	mustRegister(t, runner, tasks.Job{
		Name:     "manual-job",
		Interval: time.Hour,
		Run: func(ctx context.Context) error {
			runCount.Add(1)
			return nil
		},
	})

	if err := runner.RunOnce(context.Background(), "manual-job"); err != nil {
		t.Errorf("RunOnce() error = %v", err)
	}
	if runCount.Load() != 1 {
		t.Errorf("run count = %d, want 1", runCount.Load())
	}
	if err := runner.RunOnce(context.Background(), "nope"); !errors.Is(err, tasks.ErrUnknownJob) {
		t.Errorf("RunOnce(nope) = %v, want ErrUnknownJob", err)
	}
}

func TestConnectionWatchJob_LogsTransitions(t *testing.T) {
	mr := miniredis.RunT(t)

	rdb := dbconn.NewRedis(dbconn.RedisConfig{Addr: mr.Addr()})
	defer rdb.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := rdb.Connect(ctx).Wait(ctx); err != nil {
		t.Fatalf("Connect() error = %v", err)
	}

	core, logs := observer.New(zap.InfoLevel)
	watch := tasks.NewWatch()
	runner := tasks.New(zap.NewNop())
	mustRegister(t, runner, tasks.ConnectionWatchJob(watch,
		map[string]tasks.Pinger{"redis": rdb}, time.Hour, zap.New(core)))

	run := func() {
		t.Helper()
		if err := runner.RunOnce(ctx, "connection-watch"); err != nil {
			t.Fatalf("RunOnce() error = %v", err)
		}
	}

	run()
	run()
	if n := logs.FilterMessage("backend available").Len(); n != 1 {
		t.Errorf("available logs = %d, want 1", n)
	}

	mr.SetError("LOADING")
	run()
	if up, checked := watch.Status("redis"); up || !checked {
		t.Errorf("Status() = (%v, %v), want (false, true)", up, checked)
	}
	if n := logs.FilterMessage("backend unavailable").Len(); n != 1 {
		t.Errorf("unavailable logs = %d, want 1", n)
	}

	mr.SetError("")
	run()
	if up, _ := watch.Status("redis"); !up {
		t.Error("Status() up = false after recovery")
	}
	if n := logs.FilterMessage("backend available").Len(); n != 2 {
		t.Errorf("available logs = %d, want 2", n)
	}
}
