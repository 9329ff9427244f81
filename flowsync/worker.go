package flowsync

import (
	"context"
	"strings"
	"sync"

	"cdr.dev/slog"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/lib/log"
)

// Result is the outcome of parsing one version of the text.
type Result struct {
	Text      string                     `json:"-"`
	Structure *flowast.Structure         `json:"structure"`
	Errors    []flowparser.XMLParseError `json:"errors"`
}

// Worker parses text in the background. When texts are posted faster than they can be
// parsed, only the latest one is parsed.
type Worker struct {
	path string
	opts *flowparser.ParseOptions
	sink func(ctx context.Context, r Result)

	parseCh chan struct{}

	mu      sync.Mutex
	text    string
	posted  int
	parsed  int
	changed chan struct{}
}

// NewWorker returns a worker delivering results to sink. Call Run to start it.
func NewWorker(path string, opts *flowparser.ParseOptions, sink func(ctx context.Context, r Result)) *Worker {
	return &Worker{
		path:    path,
		opts:    opts,
		sink:    sink,
		parseCh: make(chan struct{}, 1),
		changed: make(chan struct{}),
	}
}

// Post schedules text to be parsed.
func (w *Worker) Post(text string) {
	w.mu.Lock()
	w.text = text
	w.posted++
	w.mu.Unlock()

	select {
	case w.parseCh <- struct{}{}:
	default:
	}
}

// Run parses posted texts until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.parseCh:
		}

		w.mu.Lock()
		text, gen := w.text, w.posted
		w.mu.Unlock()

		r := w.parse(ctx, text)
		w.sink(ctx, r)

		w.mu.Lock()
		w.parsed = gen
		close(w.changed)
		w.changed = make(chan struct{})
		w.mu.Unlock()
	}
}

func (w *Worker) parse(ctx context.Context, text string) Result {
	opts := &flowparser.ParseOptions{}
	if w.opts != nil {
		opts.UTF16Pos = w.opts.UTF16Pos
	}
	s, err := flowparser.Parse(w.path, strings.NewReader(text), opts)
	errs := flowparser.Errors(ctx, err)
	if len(errs) > 0 {
		log.Debug(ctx, "parsed with errors", slog.F("path", w.path), slog.F("errors", len(errs)))
	}
	return Result{
		Text:      text,
		Structure: s,
		Errors:    errs,
	}
}

// Wait blocks until every text posted so far has been parsed and delivered.
func (w *Worker) Wait(ctx context.Context) error {
	for {
		w.mu.Lock()
		done := w.parsed >= w.posted
		ch := w.changed
		w.mu.Unlock()
		if done {
			return nil
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ch:
		}
	}
}
