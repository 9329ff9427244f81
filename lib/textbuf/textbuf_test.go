package textbuf_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/lib/textbuf"
)

func TestPositions(t *testing.T) {
	t.Parallel()

	b := textbuf.New("ab\nçd\n")
	assert.Equal(t, 3, b.LineCount())
	assert.Equal(t, 0, b.Offset(flowast.Pos(1, 1)))
	assert.Equal(t, 0, b.Offset(flowast.Pos(1, 0)))
	assert.Equal(t, 2, b.Offset(flowast.Pos(1, 99)))
	assert.Equal(t, 5, b.Offset(flowast.Pos(2, 2)))
	assert.Equal(t, 7, b.Offset(flowast.Pos(9, 1)))

	assert.Equal(t, flowast.Pos(2, 2), b.PositionAt(5))
	assert.Equal(t, flowast.Pos(3, 1), b.PositionAt(7))

	assert.Equal(t, "b\nç", b.GetTextInRange(flowast.Span(1, 2, 2, 2)))
	assert.Equal(t, "çd\n", b.GetTextInRange(flowast.Lines(2, 3)))
	assert.Equal(t, "", b.GetTextInRange(flowast.Span(2, 2, 1, 1)))
}

func TestPositionsUTF16(t *testing.T) {
	t.Parallel()

	b := textbuf.NewWithOptions("a😀b\n", &textbuf.Options{UTF16: true})
	assert.Equal(t, 5, b.Offset(flowast.Pos(1, 4)))
	assert.Equal(t, flowast.Pos(1, 4), b.PositionAt(5))
	assert.Equal(t, "😀", b.GetTextInRange(flowast.Span(1, 2, 1, 4)))

	require.NoError(t, b.ApplyEdits(context.Background(), "", []flowast.EditOperation{
		flowast.Replace(flowast.Span(1, 4, 1, 5), "c"),
	}, false))
	assert.Equal(t, "a😀c\n", b.Text())

	runes := textbuf.New("a😀b\n")
	assert.Equal(t, 5, runes.Offset(flowast.Pos(1, 3)))
	assert.Equal(t, flowast.Pos(1, 3), runes.PositionAt(5))
}

func TestApplyEdits(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		text string
		ops  []flowast.EditOperation
		exp  string
	}{
		{
			name: "insert",
			text: "<a>\n</a>\n",
			ops:  []flowast.EditOperation{flowast.Insert(flowast.LineStart(2), "\t<b/>\n")},
			exp:  "<a>\n\t<b/>\n</a>\n",
		},
		{
			name: "ranges_refer_to_original_text",
			text: "one two three",
			ops: []flowast.EditOperation{
				flowast.Replace(flowast.Span(1, 9, 1, 14), "3"),
				flowast.Delete(flowast.Span(1, 1, 1, 5)),
			},
			exp: "two 3",
		},
		{
			name: "two_inserts_at_same_position_keep_order",
			text: "x",
			ops: []flowast.EditOperation{
				flowast.Insert(flowast.Pos(1, 2), "1"),
				flowast.Insert(flowast.Pos(1, 2), "2"),
			},
			exp: "x12",
		},
		{
			name: "delete_lines",
			text: "a\nb\nc\n",
			ops:  []flowast.EditOperation{flowast.Delete(flowast.Lines(2, 3))},
			exp:  "a\nc\n",
		},
		{
			name: "delete_last_line",
			text: "a\nb",
			ops:  []flowast.EditOperation{flowast.Delete(flowast.Lines(2, 3))},
			exp:  "a\n",
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			b := textbuf.New(tc.text)
			err := b.ApplyEdits(context.Background(), "", tc.ops, false)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, b.Text())
		})
	}
}

func TestApplyEditsInvalid(t *testing.T) {
	t.Parallel()

	b := textbuf.New("abc\n")
	err := b.ApplyEdits(context.Background(), "x", []flowast.EditOperation{
		flowast.Delete(flowast.Span(1, 1, 1, 3)),
		flowast.Delete(flowast.Span(1, 2, 1, 4)),
		flowast.Delete(flowast.Span(1, 3, 1, 2)),
	}, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "overlaps")
	assert.Contains(t, err.Error(), "ends before it starts")
	assert.Equal(t, "abc\n", b.Text())
}

func TestUndoRedo(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	b := textbuf.New("a")

	var changes []textbuf.Change
	b.OnChange(func(ctx context.Context, c textbuf.Change) {
		changes = append(changes, c)
	})

	assert.False(t, b.Undo(ctx))

	batch := flowast.NewBatch(true, flowast.Insert(flowast.Pos(1, 2), "b"))
	require.NoError(t, b.Apply(ctx, batch))
	require.NoError(t, b.Apply(ctx, flowast.NewBatch(false, flowast.Insert(flowast.Pos(1, 3), "c"))))
	assert.Equal(t, "abc", b.Text())

	require.Len(t, changes, 2)
	assert.Equal(t, batch.ID, changes[0].BatchID)
	assert.True(t, changes[0].FlowUpdate)
	assert.False(t, changes[1].FlowUpdate)

	assert.True(t, b.Undo(ctx))
	assert.Equal(t, "ab", b.Text())
	assert.True(t, b.Undo(ctx))
	assert.Equal(t, "a", b.Text())
	assert.False(t, b.Undo(ctx))

	assert.True(t, b.Redo(ctx))
	assert.Equal(t, "ab", b.Text())

	b.SetText(ctx, "z")
	assert.False(t, b.Redo(ctx))
	assert.True(t, b.Undo(ctx))
	assert.Equal(t, "ab", b.Text())
	assert.Len(t, changes, 7)
}

func TestHistoryLimit(t *testing.T) {
	t.Parallel()

	h := textbuf.NewHistory(2)
	h.Save("1")
	h.Save("2")
	h.Save("2")
	h.Save("3")

	s, ok := h.Undo()
	assert.True(t, ok)
	assert.Equal(t, "2", s)
	_, ok = h.Undo()
	assert.False(t, ok)
}

func TestCursor(t *testing.T) {
	t.Parallel()

	b := textbuf.New("a\nb\n")
	assert.Equal(t, flowast.Pos(1, 1), b.Position())
	b.SetPosition(flowast.Pos(2, 1))
	assert.Equal(t, flowast.Pos(2, 1), b.Position())

	b.HighlightText(flowast.Lines(1, 2))
	assert.Equal(t, flowast.Lines(1, 2), b.Highlight())
	b.HighlightText(flowast.Range{})
	assert.True(t, b.Highlight().Empty())
}
