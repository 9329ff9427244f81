package xhttp

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"runtime/debug"
	"time"

	"cdr.dev/slog"
	"golang.org/x/text/message"

	"github.com/frankframework/frankflow/lib/log"
)

type ResponseWriter interface {
	http.ResponseWriter
	http.Hijacker
	http.Flusher
	writtenResponseWriter
}

var _ ResponseWriter = &responseWriter{}

type responseWriter struct {
	rw http.ResponseWriter

	written bool
	status  int
	length  int
}

func (rw *responseWriter) Header() http.Header {
	return rw.rw.Header()
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.written {
		rw.written = true
		rw.status = statusCode
	}
	rw.rw.WriteHeader(statusCode)
}

func (rw *responseWriter) Write(p []byte) (int, error) {
	if !rw.written && len(p) > 0 {
		rw.written = true
		if rw.status == 0 {
			rw.status = http.StatusOK
		}
	}
	rw.length += len(p)
	return rw.rw.Write(p)
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := rw.rw.(http.Hijacker)
	if !ok {
		return nil, nil, fmt.Errorf("underlying response writer does not implement http.Hijacker: %T", rw.rw)
	}
	return hj.Hijack()
}

func (rw *responseWriter) Flush() {
	f, ok := rw.rw.(http.Flusher)
	if !ok {
		return
	}
	f.Flush()
}

func (rw *responseWriter) Written() bool {
	return rw.written
}

// Log logs every request with the logger of loggerCtx, which it also makes available to
// handlers through the request context. Panics are logged and answered with a 500.
func Log(loggerCtx context.Context, next http.Handler) http.Handler {
	englishPrinter := message.NewPrinter(message.MatchLanguage("en"))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r = r.WithContext(log.Fork(r.Context(), loggerCtx))
		ctx := r.Context()

		rw := &responseWriter{
			rw: w,
		}
		defer func() {
			rec := recover()
			if rec != nil {
				log.Error(ctx, "caught panic", slog.F("panic", fmt.Sprintf("%#v", rec)), slog.F("stack", string(debug.Stack())))
				if !rw.Written() {
					JSON(rw, r, http.StatusInternalServerError, map[string]interface{}{
						"error": http.StatusText(http.StatusInternalServerError),
					})
				}
			}
		}()

		start := time.Now()
		next.ServeHTTP(rw, r)
		dur := time.Since(start)

		fields := []slog.Field{
			slog.F("method", r.Method),
			slog.F("url", r.URL.String()),
			slog.F("duration", dur),
		}
		if !rw.Written() {
			_, err := rw.Write(nil)
			if errors.Is(err, http.ErrHijacked) {
				log.Debug(ctx, "hijacked", fields...)
				return
			}
			log.Warn(ctx, "no response written", fields...)
			return
		}

		fields = append(fields,
			slog.F("status", rw.status),
			slog.F("length", englishPrinter.Sprintf("%dB", rw.length)),
		)
		if rw.status >= 500 {
			// The handler already logged the cause.
			log.Warn(ctx, "request failed", fields...)
			return
		}
		log.Debug(ctx, "request", fields...)
	})
}
