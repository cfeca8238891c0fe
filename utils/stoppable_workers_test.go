package utils

import (
	"context"
	"testing"

	"go.uber.org/atomic"
	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	started := make(chan struct{}, 2)
	var stopped atomic.Int32
	worker := func(ctx context.Context) {
		started <- struct{}{}
		<-ctx.Done()
		stopped.Inc()
	}

	workers := NewStoppableWorkers(worker)
	test.That(t, workers.AddWorkers(worker), test.ShouldBeTrue)
	<-started
	<-started

	workers.Stop()
	test.That(t, stopped.Load(), test.ShouldEqual, 2)
	test.That(t, workers.Context().Err(), test.ShouldNotBeNil)

	test.That(t, workers.AddWorkers(worker), test.ShouldBeFalse)
	workers.Stop()
}

func TestStoppableWorkersParentContext(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	workers := NewStoppableWorkersWithContext(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	workers.Stop()
}

func TestFlushChan(t *testing.T) {
	c := make(chan int, 3)
	c <- 1
	c <- 2
	FlushChan(c)
	test.That(t, len(c), test.ShouldEqual, 0)
}
