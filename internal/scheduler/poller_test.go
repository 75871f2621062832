package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestPollerTicksImmediatelyAndStops(t *testing.T) {
	var ticks atomic.Int32
	p := NewPoller("test", time.Hour, nil, func(ctx context.Context) {
		ticks.Add(1)
	})

	p.Start()
	p.Stop()

	if got := ticks.Load(); got != 1 {
		t.Fatalf("ticks = %d, want the immediate tick only", got)
	}

	// Restart works after a stop.
	p.Start()
	p.Stop()
	if got := ticks.Load(); got != 2 {
		t.Fatalf("ticks after restart = %d, want 2", got)
	}
}

func TestPollerStopWaitsForInFlightTick(t *testing.T) {
	release := make(chan struct{})
	var done atomic.Bool
	p := NewPoller("test", time.Hour, nil, func(ctx context.Context) {
		<-release
		done.Store(true)
	})

	p.Start()
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	p.Stop()

	if !done.Load() {
		t.Fatal("Stop returned before the in-flight tick completed")
	}
}

func TestPollerStopLeavesInFlightContextLive(t *testing.T) {
	release := make(chan struct{})
	var ctxErr error
	p := NewPoller("test", time.Hour, nil, func(ctx context.Context) {
		// By the time release closes, Stop is already underway; the tick's
		// context must still be live so its calendar and DB calls finish.
		<-release
		ctxErr = ctx.Err()
	})

	p.Start()
	go func() {
		time.Sleep(10 * time.Millisecond)
		close(release)
	}()
	p.Stop()

	if ctxErr != nil {
		t.Fatalf("tick context cancelled during Stop: %v", ctxErr)
	}
}

func TestPollerStartIsIdempotent(t *testing.T) {
	var ticks atomic.Int32
	p := NewPoller("test", time.Hour, nil, func(ctx context.Context) {
		ticks.Add(1)
	})

	p.Start()
	p.Start()
	p.Stop()

	if got := ticks.Load(); got != 1 {
		t.Fatalf("double Start ran %d immediate ticks, want 1", got)
	}
}
