// Package textbuf implements an in memory text buffer addressed by line and column.
//
// Edits arrive in batches. A batch is validated as a whole and applied atomically as one
// undo step, after which change listeners are notified once.
package textbuf

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"go.uber.org/multierr"

	"github.com/frankframework/frankflow/flowast"
)

// Change describes a batch that was applied to the buffer.
type Change struct {
	BatchID string
	Text    string
	// FlowUpdate is set when the diagram must be regenerated from the new text.
	FlowUpdate bool
}

type Listener func(ctx context.Context, c Change)

type Buffer struct {
	mu sync.Mutex

	text       string
	lineStarts []int
	// utf16 makes columns count UTF-16 code units instead of runes.
	utf16 bool

	history   *History
	cursor    flowast.Position
	highlight flowast.Range

	listeners []Listener
}

type Options struct {
	// UTF16 must match the column convention of the parser producing positions for the buffer.
	UTF16 bool
}

func New(text string) *Buffer {
	return NewWithOptions(text, nil)
}

func NewWithOptions(text string, opts *Options) *Buffer {
	if opts == nil {
		opts = &Options{}
	}
	b := &Buffer{
		history: NewHistory(0),
		cursor:  flowast.Pos(1, 1),
		utf16:   opts.UTF16,
	}
	b.setText(text)
	b.history.Save(text)
	return b
}

// OnChange registers l to be called after every applied batch, undo and SetText.
func (b *Buffer) OnChange(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

func (b *Buffer) Text() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.text
}

// LineCount returns the number of lines. An empty buffer has one line.
func (b *Buffer) LineCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.lineStarts)
}

func (b *Buffer) setText(text string) {
	b.text = text
	b.lineStarts = b.lineStarts[:0]
	b.lineStarts = append(b.lineStarts, 0)
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			b.lineStarts = append(b.lineStarts, i+1)
		}
	}
}

// SetText replaces the whole text as though typed by the user.
func (b *Buffer) SetText(ctx context.Context, text string) {
	b.mu.Lock()
	b.setText(text)
	b.history.Save(text)
	listeners := b.listeners
	b.mu.Unlock()

	b.notify(ctx, listeners, Change{Text: text, FlowUpdate: true})
}

// offset converts p into a byte offset. Out of range lines and columns are clamped like
// text editors do.
func (b *Buffer) offset(p flowast.Position) int {
	p = p.Normalize()
	if p.Line < 1 {
		return 0
	}
	if p.Line > len(b.lineStarts) {
		return len(b.text)
	}
	start := b.lineStarts[p.Line-1]
	end := len(b.text)
	if p.Line < len(b.lineStarts) {
		end = b.lineStarts[p.Line] - 1
	}
	i := start
	for col := flowast.Pos(p.Line, 1); col.Column < p.Column && i < end; {
		r, size := utf8.DecodeRuneInString(b.text[i:end])
		col = col.Advance(r, b.utf16)
		i += size
	}
	return i
}

// Offset converts p into a byte offset into Text.
func (b *Buffer) Offset(p flowast.Position) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.offset(p)
}

// PositionAt converts a byte offset into a position.
func (b *Buffer) PositionAt(offset int) flowast.Position {
	b.mu.Lock()
	defer b.mu.Unlock()

	if offset < 0 {
		offset = 0
	}
	if offset > len(b.text) {
		offset = len(b.text)
	}
	line := sort.Search(len(b.lineStarts), func(i int) bool {
		return b.lineStarts[i] > offset
	})
	start := b.lineStarts[line-1]
	return flowast.Pos(line, 1).AdvanceString(b.text[start:offset], b.utf16)
}

func (b *Buffer) GetTextInRange(r flowast.Range) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	start, end := b.offset(r.Start), b.offset(r.End)
	if end < start {
		return ""
	}
	return b.text[start:end]
}

func (b *Buffer) validate(ops []flowast.EditOperation) error {
	var err error
	for i, op := range ops {
		if op.Range.End.Before(op.Range.Start) {
			err = multierr.Append(err, fmt.Errorf("edit %d: range %s ends before it starts", i, op.Range))
		}
		if op.Range.Start.Line < 0 || op.Range.End.Line > len(b.lineStarts)+1 {
			err = multierr.Append(err, fmt.Errorf("edit %d: range %s outside of lines 1-%d", i, op.Range, len(b.lineStarts)))
		}
		if i > 0 && ops[i-1].Range.Overlaps(op.Range) {
			err = multierr.Append(err, fmt.Errorf("edit %d: range %s overlaps %s", i, op.Range, ops[i-1].Range))
		}
	}
	return err
}

// ApplyEdits applies ops as a single transaction. Every range refers to the text before
// the batch. Nothing is applied if any operation is invalid.
func (b *Buffer) ApplyEdits(ctx context.Context, batchID string, ops []flowast.EditOperation, flowUpdate bool) error {
	if len(ops) == 0 {
		return nil
	}

	sorted := make([]flowast.EditOperation, len(ops))
	copy(sorted, ops)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Range.Start.Before(sorted[j].Range.Start)
	})

	b.mu.Lock()
	err := b.validate(sorted)
	if err != nil {
		b.mu.Unlock()
		return fmt.Errorf("failed to apply batch %s: %w", batchID, err)
	}

	var sb strings.Builder
	prev := 0
	for _, op := range sorted {
		start, end := b.offset(op.Range.Start), b.offset(op.Range.End)
		if start < prev {
			start = prev
		}
		sb.WriteString(b.text[prev:start])
		sb.WriteString(op.Text)
		if end > prev {
			prev = end
		} else {
			prev = start
		}
	}
	sb.WriteString(b.text[prev:])

	text := sb.String()
	b.setText(text)
	b.history.Save(text)
	listeners := b.listeners
	b.mu.Unlock()

	b.notify(ctx, listeners, Change{BatchID: batchID, Text: text, FlowUpdate: flowUpdate})
	return nil
}

// Apply applies a batch. See ApplyEdits.
func (b *Buffer) Apply(ctx context.Context, batch *flowast.Batch) error {
	if batch.Empty() {
		return nil
	}
	return b.ApplyEdits(ctx, batch.ID, batch.Ops, batch.FlowUpdate)
}

// Undo reverts the last batch or SetText. It reports false when there is nothing to undo.
func (b *Buffer) Undo(ctx context.Context) bool {
	return b.travel(ctx, b.history.Undo)
}

// Redo reapplies the last undone change.
func (b *Buffer) Redo(ctx context.Context) bool {
	return b.travel(ctx, b.history.Redo)
}

func (b *Buffer) travel(ctx context.Context, move func() (string, bool)) bool {
	b.mu.Lock()
	text, ok := move()
	if !ok {
		b.mu.Unlock()
		return false
	}
	b.setText(text)
	listeners := b.listeners
	b.mu.Unlock()

	b.notify(ctx, listeners, Change{Text: text, FlowUpdate: true})
	return true
}

func (b *Buffer) notify(ctx context.Context, listeners []Listener, c Change) {
	for _, l := range listeners {
		l(ctx, c)
	}
}

// SetPosition moves the cursor.
func (b *Buffer) SetPosition(p flowast.Position) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cursor = p
}

func (b *Buffer) Position() flowast.Position {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cursor
}

// HighlightText marks r. The zero Range clears the highlight.
func (b *Buffer) HighlightText(r flowast.Range) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.highlight = r
}

func (b *Buffer) Highlight() flowast.Range {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.highlight
}
