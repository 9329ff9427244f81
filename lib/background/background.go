// Package background runs periodic jobs bound to a context.
package background

import (
	"context"
	"sync"
	"time"
)

// Repeat calls do every interval until ctx is done or cancel is called.
// cancel blocks until a call in progress has returned.
func Repeat(ctx context.Context, interval time.Duration, do func(context.Context)) (cancel func()) {
	ctx, stop := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				do(ctx)
			case <-ctx.Done():
				return
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			stop()
			<-done
		})
	}
}
