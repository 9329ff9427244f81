package flowlib

import (
	"context"
	"errors"
	"sync"
	"time"

	"cdr.dev/slog"
	"oss.terrastruct.com/xdefer"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/flowsettings"
	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/log"
	"github.com/frankframework/frankflow/lib/textbuf"
)

type EditorOptions struct {
	UTF16    bool
	Strategy flowlayouts.Strategy
	Settings flowsync.Settings
	Prompt   flowsync.ForwardNamePrompt
	Panner   flowsync.Panner
}

// Editor is an open configuration file: its text, the structure parsed from it in the
// background and the diagram generated from that.
type Editor struct {
	Buffer  *textbuf.Buffer
	Service *flowsync.Service
	// Session is nil for editors not backed by a FileStore.
	Session *flowsync.Session

	worker *flowsync.Worker
	layout *flowlayouts.Layouter

	mu              sync.Mutex
	result          flowsync.Result
	graph           *flowgraph.Graph
	graphOf         *flowast.Structure
	flowNeedsUpdate bool

	cancel context.CancelFunc
	done   chan struct{}
}

// NewEditor opens text that is not backed by a file store.
func NewEditor(ctx context.Context, path, text string, opts *EditorOptions) *Editor {
	e := newEditor(path, opts)
	e.init(ctx, text, opts)
	e.worker.Post(text)
	e.start(ctx)
	return e
}

// OpenEditor opens path of configuration from store.
func OpenEditor(ctx context.Context, store flowsync.FileStore, configuration, path string, opts *EditorOptions) (_ *Editor, err error) {
	defer xdefer.Errorf(&err, "failed to open editor")

	e := newEditor(path, opts)
	e.Session = flowsync.NewSession(store, e.worker)
	_, err = e.Session.SwitchToFile(ctx, configuration, path)
	if err != nil {
		return nil, err
	}
	f, err := e.Session.Current(ctx)
	if err != nil {
		return nil, err
	}
	e.init(ctx, f.XML, opts)
	e.start(ctx)
	return e, nil
}

func newEditor(path string, opts *EditorOptions) *Editor {
	if opts == nil {
		opts = &EditorOptions{}
	}
	e := &Editor{
		layout:          flowlayouts.New(opts.Strategy),
		flowNeedsUpdate: true,
		done:            make(chan struct{}),
	}
	e.worker = flowsync.NewWorker(path, &flowparser.ParseOptions{UTF16Pos: opts.UTF16}, e.onResult)
	return e
}

func (e *Editor) init(ctx context.Context, text string, opts *EditorOptions) {
	if opts == nil {
		opts = &EditorOptions{}
	}
	e.Buffer = textbuf.NewWithOptions(text, &textbuf.Options{UTF16: opts.UTF16})
	e.Service = flowsync.New(e.Buffer, &flowsync.Options{
		Settings:  opts.Settings,
		Prompt:    opts.Prompt,
		Panner:    opts.Panner,
		Positions: e.position,
		OnRefresh: func(ctx context.Context) {
			e.setFlowNeedsUpdate(ctx)
		},
	})
	e.Buffer.OnChange(e.onChange)
}

func (e *Editor) start(ctx context.Context) {
	ctx, e.cancel = context.WithCancel(ctx)
	go func() {
		defer close(e.done)
		err := e.worker.Run(ctx)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Warn(ctx, "parse worker stopped", slog.Error(err))
		}
	}()
}

// Close stops the background parser.
func (e *Editor) Close() {
	e.cancel()
	<-e.done
}

func (e *Editor) onChange(ctx context.Context, c textbuf.Change) {
	if c.FlowUpdate {
		e.setFlowNeedsUpdate(ctx)
	}
	if e.Session == nil {
		e.worker.Post(c.Text)
		return
	}
	err := e.Session.UpdateText(ctx, c.Text)
	if err != nil {
		log.Warn(ctx, "failed to update session", slog.Error(err))
	}
}

func (e *Editor) onResult(ctx context.Context, r flowsync.Result) {
	e.mu.Lock()
	e.result = r
	e.mu.Unlock()

	if e.Session != nil {
		e.Session.OnResult(ctx, r)
	}
	e.Service.OnStructure(ctx, r.Structure)
}

func (e *Editor) setFlowNeedsUpdate(ctx context.Context) {
	e.mu.Lock()
	e.flowNeedsUpdate = true
	e.mu.Unlock()
	if e.Session != nil {
		e.Session.SetFlowNeedsUpdate(ctx, true)
	}
}

// FlowNeedsUpdate reports whether the text changed in a way the last graph returned by
// Graph does not show.
func (e *Editor) FlowNeedsUpdate() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.flowNeedsUpdate
}

// Settle waits until the text has been parsed and every queued edit has been applied.
func (e *Editor) Settle(ctx context.Context) error {
	for {
		err := e.worker.Wait(ctx)
		if err != nil {
			return err
		}
		attrs, structural := e.Service.Pending()
		if !e.Service.Waiting() && attrs == 0 && structural == 0 {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Millisecond):
		}
	}
}

func (e *Editor) Text() string {
	return e.Buffer.Text()
}

func (e *Editor) Structure() *flowast.Structure {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Structure
}

// FlowSettings decodes the flow settings of the current structure.
func (e *Editor) FlowSettings() flowsettings.Settings {
	st := e.Structure()
	if st == nil {
		return flowsettings.Settings{}
	}
	return flowsettings.FromConfiguration(st.Configuration)
}

// Errors returns the coalesced errors of the last parse.
func (e *Editor) Errors() []flowparser.XMLParseError {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.result.Errors
}

// Graph returns the laid out diagram of the current structure.
func (e *Editor) Graph(ctx context.Context) (*flowgraph.Graph, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := e.result.Structure
	if st == nil {
		return nil, errors.New("not parsed yet")
	}
	if e.graph == nil || e.graphOf != st {
		g := flowgraph.Generate(st, flowgraph.FirstPipe(st))
		err := e.layout.Layout(ctx, g)
		if err != nil {
			return nil, err
		}
		e.graph = g
		e.graphOf = st
	}
	e.flowNeedsUpdate = false
	if e.Session != nil {
		e.Session.SetFlowNeedsUpdate(ctx, false)
	}
	return e.graph.Copy(), nil
}

func (e *Editor) position(uid string) (flowast.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.graph == nil {
		return flowast.Point{}, false
	}
	n, ok := e.graph.Node(uid)
	if !ok || !n.Positioned() {
		return flowast.Point{}, false
	}
	return flowast.Point{X: n.Left, Y: n.Top}, true
}

// Save writes the text to the file store.
func (e *Editor) Save(ctx context.Context) error {
	if e.Session == nil {
		return errors.New("editor has no file store")
	}
	return e.Session.Save(ctx)
}

// Undo reverts the last change of the text. It reports false when there is none.
func (e *Editor) Undo(ctx context.Context) bool {
	return e.Buffer.Undo(ctx)
}

// Redo reapplies the last undone change.
func (e *Editor) Redo(ctx context.Context) bool {
	return e.Buffer.Redo(ctx)
}
