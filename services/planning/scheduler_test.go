package planning

import (
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"go.viam.com/test"

	"github.com/openav/naviplan/logging"
)

func TestSchedulerRunsUntilStopped(t *testing.T) {
	logger := logging.NewTestLogger(t)
	runs := make(chan struct{}, 100)
	var active, maxActive atomic.Int32
	sched := NewScheduler(clock.New(), 5*time.Millisecond, func(ctx context.Context) {
		n := active.Inc()
		if n > maxActive.Load() {
			maxActive.Store(n)
		}
		time.Sleep(time.Millisecond)
		active.Dec()
		runs <- struct{}{}
	}, logger)

	test.That(t, sched.Start(), test.ShouldBeNil)
	test.That(t, sched.Start(), test.ShouldEqual, ErrAlreadyRunning)
	test.That(t, sched.Running(), test.ShouldBeTrue)
	for i := 0; i < 3; i++ {
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatal("scheduler did not run")
		}
	}

	sched.Stop()
	sched.Stop()
	test.That(t, sched.Running(), test.ShouldBeFalse)
	test.That(t, maxActive.Load(), test.ShouldEqual, 1)

	ticks := sched.Stats().Ticks
	test.That(t, ticks, test.ShouldBeGreaterThanOrEqualTo, 3)
	time.Sleep(20 * time.Millisecond)
	test.That(t, sched.Stats().Ticks, test.ShouldEqual, ticks)

	// A stopped scheduler can be started again.
	test.That(t, sched.Start(), test.ShouldBeNil)
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not restart")
	}
	sched.Stop()
}

func TestSchedulerSkipsOverruns(t *testing.T) {
	logger, observed := logging.NewObservedTestLogger(t)
	mock := clock.NewMock()
	ran := make(chan struct{})
	sched := NewScheduler(mock, 10*time.Millisecond, func(ctx context.Context) {
		// Simulate a cycle that takes three and a half periods.
		mock.Add(35 * time.Millisecond)
		ran <- struct{}{}
	}, logger)

	test.That(t, sched.Start(), test.ShouldBeNil)
	// Give the loop time to create its ticker on the mock clock before advancing it.
	time.Sleep(10 * time.Millisecond)
	mock.Add(10 * time.Millisecond)
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("scheduler did not run")
	}
	// Stop waits for the loop to record the overrun of the run above before returning.
	go func() {
		for range ran {
		}
	}()
	sched.Stop()
	close(ran)

	test.That(t, sched.Stats().Overruns, test.ShouldBeGreaterThanOrEqualTo, 3)
	test.That(t, observed.FilterMessageSnippet("overran").Len(), test.ShouldBeGreaterThanOrEqualTo, 1)
}
