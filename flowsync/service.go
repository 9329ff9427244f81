// Package flowsync keeps the flow diagram and the configuration text in sync.
//
// The Service is a single-flight state machine. Once it submits a batch of edits to the
// text buffer it waits for the structure parsed from the edited text before planning the
// next batch, so no batch is ever planned against positions that are about to change.
// Edits requested in the meantime are queued and flushed together.
package flowsync

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"cdr.dev/slog"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowformat"
	"github.com/frankframework/frankflow/floworacle"
	"github.com/frankframework/frankflow/lib/log"
)

// TextBuffer is the editor holding the configuration text.
type TextBuffer interface {
	// ApplyEdits applies ops atomically as a single undo step. The text is parsed again
	// afterwards and flowUpdate tells the receiver of the structure whether the diagram
	// must be regenerated.
	ApplyEdits(ctx context.Context, batchID string, ops []flowast.EditOperation, flowUpdate bool) error
	GetTextInRange(flowast.Range) string
	SetPosition(flowast.Position)
	HighlightText(flowast.Range)
}

// ForwardNamePrompt asks the user for the name of a new forward when the source pipe
// already has a success forward. The answer is delivered to Service.CreateForwardName.
type ForwardNamePrompt interface {
	PromptForwardName(ctx context.Context, source *flowast.Node, targetID string)
}

// Panner moves the diagram view.
type Panner interface {
	PanTo(ctx context.Context, uid string, p flowast.Point)
}

type Settings struct {
	// AutomaticPan pans the diagram to a node when it is selected in the text.
	AutomaticPan bool `json:"automaticPan"`
}

type ChangedAttribute = floworacle.ChangedAttribute

// PlanFunc plans a batch against a structure and the text it was parsed from.
type PlanFunc func(s *flowast.Structure, text floworacle.TextReader) (*flowast.Batch, error)

type Options struct {
	Settings Settings
	Prompt   ForwardNamePrompt
	Panner   Panner
	// Positions returns the laid out position of nodes without flow:x and flow:y.
	Positions func(uid string) (flowast.Point, bool)
	// OnRefresh is called when a structural edit had nothing to change in the text but the
	// diagram must be regenerated anyway.
	OnRefresh func(ctx context.Context)
}

type deferredOp struct {
	name string
	plan PlanFunc
}

type Service struct {
	buf  TextBuffer
	opts Options

	mu        sync.Mutex
	structure *flowast.Structure
	waiting   bool
	queue     *editQueue
	deferred  []deferredOp
}

func New(buf TextBuffer, opts *Options) *Service {
	if opts == nil {
		opts = &Options{}
	}
	return &Service{
		buf:   buf,
		opts:  *opts,
		queue: newEditQueue(),
	}
}

// Structure returns the current structure snapshot.
func (s *Service) Structure() *flowast.Structure {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.structure
}

// Waiting reports whether a submitted batch has not been parsed yet.
func (s *Service) Waiting() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.waiting
}

// Pending returns the number of queued attribute changes and deferred structural edits.
func (s *Service) Pending() (attrs, structural int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.queue.len(), len(s.deferred)
}

// OnStructure receives every structure parsed from the text. A structure different from
// the current one replaces it, ends the wait and flushes whatever was queued.
func (s *Service) OnStructure(ctx context.Context, st *flowast.Structure) {
	s.mu.Lock()
	if st == nil || st == s.structure {
		s.mu.Unlock()
		return
	}
	s.structure = st
	s.waiting = false
	s.mu.Unlock()

	err := s.TryFlush(ctx)
	if err != nil {
		log.Warn(ctx, "failed to flush queued edits", slog.Error(err))
	}
}

// RequestAttributeEdits queues changes to the attributes of the node identified by uid
// and flushes if no batch is in flight.
func (s *Service) RequestAttributeEdits(ctx context.Context, uid string, changes []ChangedAttribute, flowUpdate bool) error {
	if len(changes) == 0 {
		return nil
	}
	s.mu.Lock()
	s.queue.add(uid, changes, flowUpdate)
	s.mu.Unlock()
	return s.TryFlush(ctx)
}

// EditNodePositions queues the canvas position of a node. The diagram is not regenerated
// as it already shows the node at p.
func (s *Service) EditNodePositions(ctx context.Context, uid string, p flowast.Point) error {
	return s.RequestAttributeEdits(ctx, uid, []ChangedAttribute{
		{Name: "flow:y", Value: flowformat.FormatNumber(p.Y)},
		{Name: "flow:x", Value: flowformat.FormatNumber(p.X)},
	}, false)
}

// TryFlush submits the next batch unless one is in flight. Queued attribute edits go
// first, deferred structural edits follow one per round trip.
func (s *Service) TryFlush(ctx context.Context) error {
	var refresh bool
	var b *flowast.Batch

	s.mu.Lock()
	for b == nil && !s.waiting && s.structure != nil {
		next, ok := s.nextLocked(ctx)
		if !ok {
			break
		}
		if next.Empty() {
			refresh = refresh || (next != nil && next.Refresh)
			continue
		}
		b = next
		s.waiting = true
	}
	s.mu.Unlock()

	if refresh {
		s.refresh(ctx)
	}
	if b == nil {
		return nil
	}
	return s.apply(ctx, b)
}

// nextLocked plans the next batch. ok is false when nothing is queued. Queued edits whose
// target has vanished are dropped.
func (s *Service) nextLocked(ctx context.Context) (_ *flowast.Batch, ok bool) {
	if !s.queue.empty() {
		return s.planQueueLocked(ctx), true
	}
	if len(s.deferred) == 0 {
		return nil, false
	}
	op := s.deferred[0]
	s.deferred = s.deferred[1:]

	b, err := op.plan(s.structure, s.buf)
	if err != nil {
		if floworacle.IsNotFound(err) {
			log.Debug(ctx, "dropped stale edit", slog.F("op", op.name), slog.Error(err))
		} else {
			log.Warn(ctx, "failed to plan deferred edit", slog.F("op", op.name), slog.Error(err))
		}
		return nil, true
	}
	return b, true
}

func (s *Service) planQueueLocked(ctx context.Context) *flowast.Batch {
	nodes, flowUpdate := s.queue.drain()
	b := flowast.NewBatch(flowUpdate)
	for _, pn := range nodes {
		n, ok := s.structure.Node(pn.uid)
		if !ok {
			log.Debug(ctx, "dropped attribute edits of missing node", slog.F("uid", pn.uid), slog.F("attributes", len(pn.attrs)))
			continue
		}
		for _, c := range pn.attrs {
			b.Add(floworacle.PlanNodeAttributeEdit(n, c))
		}
	}
	return b
}

// Submit runs plan against the current structure and applies the batch. While a batch is
// in flight plan is deferred until the next structure arrives and nil is returned.
func (s *Service) Submit(ctx context.Context, name string, plan PlanFunc) error {
	s.mu.Lock()
	if s.waiting {
		s.deferred = append(s.deferred, deferredOp{name: name, plan: plan})
		s.mu.Unlock()
		log.Debug(ctx, "deferred edit", slog.F("op", name))
		return nil
	}
	if s.structure == nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to %s: no structure", name)
	}
	b, err := plan(s.structure, s.buf)
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if !b.Empty() {
		s.waiting = true
	}
	s.mu.Unlock()

	if b.Empty() {
		if b != nil && b.Refresh {
			s.refresh(ctx)
		}
		return nil
	}
	return s.apply(ctx, b)
}

func (s *Service) apply(ctx context.Context, b *flowast.Batch) error {
	log.Debug(ctx, "applying batch", slog.F("id", b.ID), slog.F("ops", len(b.Ops)), slog.F("flowUpdate", b.FlowUpdate))
	err := s.buf.ApplyEdits(ctx, b.ID, b.Ops, b.FlowUpdate)
	if err != nil {
		// Nothing was applied so no structure will follow.
		s.mu.Lock()
		s.waiting = false
		s.mu.Unlock()
		return err
	}
	if b.Refresh {
		s.refresh(ctx)
	}
	return nil
}

func (s *Service) refresh(ctx context.Context) {
	log.Debug(ctx, "flow needs update")
	if s.opts.OnRefresh != nil {
		s.opts.OnRefresh(ctx)
	}
}

var errNoStructure = errors.New("no structure")

func (s *Service) current() (*flowast.Structure, error) {
	st := s.Structure()
	if st == nil {
		return nil, errNoStructure
	}
	return st, nil
}
