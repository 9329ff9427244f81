package flowast

import (
	"fmt"
	"sort"

	"github.com/google/uuid"
)

// EditOperation replaces the text in Range with Text.
//
// Insertions use an empty Range and deletions an empty Text.
type EditOperation struct {
	Range Range  `json:"range"`
	Text  string `json:"text"`
}

func Insert(p Position, text string) EditOperation {
	return EditOperation{Range: EmptyAt(p), Text: text}
}

func Delete(r Range) EditOperation {
	return EditOperation{Range: r}
}

func Replace(r Range, text string) EditOperation {
	return EditOperation{Range: r, Text: text}
}

func (op EditOperation) IsDelete() bool {
	return op.Text == "" && !op.Range.Empty()
}

// IsNoop reports whether applying op would leave the text untouched.
func (op EditOperation) IsNoop() bool {
	return op.Text == "" && op.Range.Empty()
}

func (op EditOperation) String() string {
	return fmt.Sprintf("%s %q", op.Range, op.Text)
}

// Batch is a group of edits applied as one transaction: one undo step and at most one
// re-parse.
type Batch struct {
	ID  string          `json:"id"`
	Ops []EditOperation `json:"ops"`
	// FlowUpdate requests regeneration of the flow diagram once the batch has been parsed.
	FlowUpdate bool `json:"flowUpdate"`
	// Refresh is set when nothing could be changed in the text but the file must still be
	// considered out of date by the diagram.
	Refresh bool `json:"refresh,omitempty"`
}

func NewBatch(flowUpdate bool, ops ...EditOperation) *Batch {
	b := &Batch{
		ID:         uuid.NewString(),
		FlowUpdate: flowUpdate,
	}
	b.Add(ops...)
	return b
}

// Add appends ops and keeps the batch free of overlapping ranges.
func (b *Batch) Add(ops ...EditOperation) {
	b.Ops = MergeEdits(append(b.Ops, ops...))
}

// Concat adds the operations of b2 to b. FlowUpdate and Refresh are or'ed.
func (b *Batch) Concat(b2 *Batch) {
	if b2 == nil {
		return
	}
	b.Add(b2.Ops...)
	b.FlowUpdate = b.FlowUpdate || b2.FlowUpdate
	b.Refresh = b.Refresh || b2.Refresh
}

func (b *Batch) Empty() bool {
	return b == nil || len(b.Ops) == 0
}

// MergeEdits sorts ops by position and merges deletions that overlap or touch into one
// wider deletion. Operations fully contained in a deletion are dropped and no-ops are
// removed. The input slice is not modified.
func MergeEdits(ops []EditOperation) []EditOperation {
	sorted := make([]EditOperation, 0, len(ops))
	for _, op := range ops {
		if !op.IsNoop() {
			sorted = append(sorted, op)
		}
	}
	sort.SliceStable(sorted, func(i, j int) bool {
		if !sorted[i].Range.Start.Equal(sorted[j].Range.Start) {
			return sorted[i].Range.Start.Before(sorted[j].Range.Start)
		}
		return sorted[i].Range.End.Before(sorted[j].Range.End)
	})

	var merged []EditOperation
	for _, op := range sorted {
		if len(merged) == 0 {
			merged = append(merged, op)
			continue
		}
		last := &merged[len(merged)-1]
		if !last.IsDelete() {
			merged = append(merged, op)
			continue
		}
		if op.IsDelete() && !last.Range.End.Before(op.Range.Start) {
			if last.Range.End.Before(op.Range.End) {
				last.Range.End = op.Range.End
			}
			continue
		}
		if last.Range.Contains(op.Range) && op.Range.Start.Before(last.Range.End) && last.Range.Start.Before(op.Range.Start) {
			continue
		}
		merged = append(merged, op)
	}
	return merged
}
