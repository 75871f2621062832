// Package scheduler runs the two background pollers: reminder dispatch and
// calendar reconciliation. Each is an explicit object with a start/stop
// lifecycle; there is no package-level timer state.
package scheduler

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Poller drives a tick function on a fixed interval. Stop prevents the next
// tick from being scheduled; an in-flight tick always runs to completion.
// Ticks may overlap other pollers and request handling; tick functions own
// their error handling and must never panic the loop.
type Poller struct {
	name     string
	interval time.Duration
	tick     func(ctx context.Context)
	log      *slog.Logger

	mu      sync.Mutex
	stop    chan struct{}
	wg      sync.WaitGroup
	running bool
}

func NewPoller(name string, interval time.Duration, log *slog.Logger, tick func(ctx context.Context)) *Poller {
	if log == nil {
		log = slog.Default()
	}
	return &Poller{name: name, interval: interval, tick: tick, log: log}
}

func (p *Poller) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.running {
		return
	}
	p.running = true

	// Stop closes this channel rather than cancelling the tick context, so
	// a tick already underway finishes its I/O.
	stop := make(chan struct{})
	p.stop = stop

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.log.Info("poller started", "poller", p.name, "interval", p.interval)

		t := time.NewTicker(p.interval)
		defer t.Stop()

		ctx := context.Background()

		// kick immediately
		p.tick(ctx)

		for {
			select {
			case <-stop:
				p.log.Info("poller stopped", "poller", p.name)
				return
			case <-t.C:
				p.tick(ctx)
			}
		}
	}()
}

func (p *Poller) Stop() {
	p.mu.Lock()
	if !p.running {
		p.mu.Unlock()
		return
	}
	p.running = false
	close(p.stop)
	p.mu.Unlock()

	p.wg.Wait()
}
