package utils

import (
	"context"
	"sync/atomic"
	"testing"

	"go.viam.com/test"
)

func TestStoppableWorkers(t *testing.T) {
	var started atomic.Int32
	var stopped atomic.Int32
	worker := func(ctx context.Context) {
		started.Add(1)
		<-ctx.Done()
		stopped.Add(1)
	}

	sw := NewStoppableWorkers(context.Background(), worker, worker)
	sw.Add(worker)
	sw.Stop()

	test.That(t, started.Load(), test.ShouldEqual, 3)
	test.That(t, stopped.Load(), test.ShouldEqual, 3)
	test.That(t, sw.Context().Err(), test.ShouldNotBeNil)

	// Nothing starts once stopped.
	sw.Add(worker)
	test.That(t, started.Load(), test.ShouldEqual, 3)
}

func TestStoppableWorkersParentCancel(t *testing.T) {
	parent, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	sw := NewStoppableWorkers(parent, func(ctx context.Context) {
		<-ctx.Done()
		close(done)
	})
	cancel()
	<-done
	sw.Stop()
}

func TestStoppableWorkersPanic(t *testing.T) {
	sw := NewStoppableWorkers(context.Background(), func(ctx context.Context) {
		panic("boom")
	})
	// Stop must still return.
	sw.Stop()
}
