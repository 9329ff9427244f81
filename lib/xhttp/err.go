package xhttp

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"cdr.dev/slog"

	"github.com/frankframework/frankflow/lib/log"
)

// Error is an error with the status code and response body it is served with.
type Error struct {
	Code int
	Resp interface{}
	Err  error
}

var _ interface {
	Is(error) bool
	Unwrap() error
} = Error{}

// Errorf creates a new error with code, resp, msg and v.
//
// When returned from a HandlerFunc, it is logged at the level of code and written to the
// connection.
func Errorf(code int, resp interface{}, msg string, v ...interface{}) error {
	return ErrorWrap(code, resp, fmt.Errorf(msg, v...))
}

// ErrorWrap wraps err with the code and resp for HandlerFunc.
func ErrorWrap(code int, resp interface{}, err error) error {
	if resp == nil {
		resp = http.StatusText(code)
	}
	return Error{code, resp, err}
}

func (e Error) Unwrap() error {
	return e.Err
}

func (e Error) Is(err error) bool {
	e2, ok := err.(Error)
	if !ok {
		return false
	}
	return e.Code == e2.Code && e.Resp == e2.Resp && errors.Is(e.Err, e2.Err)
}

func (e Error) Error() string {
	return fmt.Sprintf("http error with code %v and resp %#v: %v", e.Code, e.Resp, e.Err)
}

// HandlerFunc is like http.HandlerFunc but returns an error.
type HandlerFunc func(w http.ResponseWriter, r *http.Request) error

// Handle adapts h into an http.HandlerFunc for routers like chi.
//
// Errors created with Errorf or ErrorWrap are written as {"error": resp} with their code,
// 4xx logged as warnings. Any other error is a 500.
func Handle(h HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		err := h(w, r)
		if err != nil {
			handleError(w, r, err)
		}
	}
}

func handleError(w http.ResponseWriter, r *http.Request, err error) {
	ctx := r.Context()

	var herr Error
	if !errors.As(err, &herr) {
		herr = ErrorWrap(http.StatusInternalServerError, nil, err).(Error)
	}
	if herr.Code < 400 || 600 <= herr.Code {
		log.Error(ctx, "unexpected error status code", slog.F("code", herr.Code), slog.F("resp", herr.Resp))
		herr.Code = http.StatusInternalServerError
		herr.Resp = http.StatusText(herr.Code)
	}

	if herr.Code < 500 {
		log.Warn(ctx, "error handling http request", slog.Error(err))
	} else {
		log.Error(ctx, "error handling http request", slog.Error(err))
	}

	ww, ok := w.(writtenResponseWriter)
	if ok && ww.Written() {
		// Too late, the response is on its way.
		return
	}

	JSON(w, r, herr.Code, map[string]interface{}{
		"error": herr.Resp,
	})
}

type writtenResponseWriter interface {
	Written() bool
}

// JSON writes v as the response with code. A nil v writes the status text.
func JSON(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	if v == nil {
		v = map[string]interface{}{
			"status": http.StatusText(code),
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		log.Error(r.Context(), "json marshal error", slog.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_, _ = w.Write(b)
}

// DecodeJSON decodes the request body into v. Malformed bodies are a 400.
func DecodeJSON(r *http.Request, v interface{}) error {
	d := json.NewDecoder(r.Body)
	d.DisallowUnknownFields()
	err := d.Decode(v)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Errorf(http.StatusBadRequest, "empty request body", "empty request body")
		}
		return ErrorWrap(http.StatusBadRequest, fmt.Sprintf("malformed request body: %v", err), err)
	}
	return nil
}
