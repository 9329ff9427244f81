// Package xhttp implements http helpers.
package xhttp

import (
	"context"
	"net"
	"net/http"
	"time"

	"cdr.dev/slog"
	"oss.terrastruct.com/xcontext"

	"github.com/frankframework/frankflow/lib/log"
)

func NewServer(ctx context.Context, h http.Handler) *http.Server {
	return &http.Server{
		MaxHeaderBytes: 1 << 18, // 262,144B
		ReadTimeout:    time.Minute,
		WriteTimeout:   time.Minute,
		IdleTimeout:    time.Hour,
		ErrorLog:       log.Stdlib(ctx, slog.LevelWarn),
		Handler:        http.MaxBytesHandler(h, 1<<22), // 4,194,304B
	}
}

// Serve serves l until ctx is done, then shuts s down gracefully within shutdownTimeout.
func Serve(ctx context.Context, shutdownTimeout time.Duration, s *http.Server, l net.Listener) error {
	s.BaseContext = func(net.Listener) context.Context {
		return ctx
	}

	done := make(chan error, 1)
	go func() {
		done <- s.Serve(l)
	}()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		ctx = xcontext.WithoutCancel(ctx)
		ctx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return s.Shutdown(ctx)
	}
}
