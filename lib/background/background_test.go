package background_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/frankframework/frankflow/lib/background"
)

func TestRepeat(t *testing.T) {
	t.Parallel()

	var calls int64
	cancel := background.Repeat(context.Background(), time.Millisecond, func(ctx context.Context) {
		atomic.AddInt64(&calls, 1)
	})
	assert.Eventually(t, func() bool {
		return atomic.LoadInt64(&calls) >= 3
	}, 5*time.Second, time.Millisecond)

	cancel()
	cancel()
	n := atomic.LoadInt64(&calls)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, n, atomic.LoadInt64(&calls))
}

func TestRepeatStopsWithContext(t *testing.T) {
	t.Parallel()

	ctx, cancelCtx := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	cancel := background.Repeat(ctx, time.Hour, func(ctx context.Context) {})
	go func() {
		cancel()
		close(stopped)
	}()
	cancelCtx()

	select {
	case <-stopped:
	case <-time.After(5 * time.Second):
		t.Fatal("Repeat did not stop")
	}
}
