package viewcache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerRunsImmediatelyAndOnCadence(t *testing.T) {
	var ticks atomic.Int64
	poller := StartPoller(context.Background(), 10*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})
	defer poller.Stop()

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 {
		if time.Now().After(deadline) {
			t.Fatalf("poller only ran %d times within a second", ticks.Load())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestPollerStopReleasesWork(t *testing.T) {
	var ticks atomic.Int64
	poller := StartPoller(context.Background(), 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	time.Sleep(20 * time.Millisecond)
	poller.Stop()
	after := ticks.Load()
	if after == 0 {
		t.Fatal("poller never ran")
	}

	time.Sleep(30 * time.Millisecond)
	if ticks.Load() != after {
		t.Fatalf("poller kept running after Stop: %d -> %d", after, ticks.Load())
	}
}

func TestPollerStopsWithParentContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var ticks atomic.Int64
	poller := StartPoller(ctx, 5*time.Millisecond, func(context.Context) {
		ticks.Add(1)
	})

	cancel()
	// Stop still returns promptly after the parent context is gone.
	done := make(chan struct{})
	go func() {
		poller.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Stop did not return after parent cancellation")
	}
}
