package viewcache

import (
	"context"
	"time"
)

// Poller runs a refresh function on a fixed cadence until stopped. It is
// the server-side half of the polling contract; stopping it releases the
// goroutine and timer so a navigated-away viewer leaks no recurring work.
type Poller struct {
	cancel context.CancelFunc
	done   chan struct{}
}

// StartPoller invokes fn immediately, then every interval, until the
// parent context is canceled or Stop is called.
func StartPoller(ctx context.Context, interval time.Duration, fn func(context.Context)) *Poller {
	ctx, cancel := context.WithCancel(ctx)
	p := &Poller{cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(p.done)
		fn(ctx)

		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				fn(ctx)
			}
		}
	}()
	return p
}

// Stop cancels the loop and waits for the in-flight refresh to return.
func (p *Poller) Stop() {
	p.cancel()
	<-p.done
}
