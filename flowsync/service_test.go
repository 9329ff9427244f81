package flowsync_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowparser"
	"github.com/frankframework/frankflow/flowsync"
	"github.com/frankframework/frankflow/lib/log"
	"github.com/frankframework/frankflow/lib/textbuf"
)

const chainConfig = `<Configuration>
	<Adapter name="a">
		<Pipeline firstPipe="Echo">
			<EchoPipe name="Echo">
				<Forward name="success" path="Pipe" />
			</EchoPipe>
			<EchoPipe name="Pipe" />
			<Exits>
				<Exit path="READY" state="success" />
			</Exits>
		</Pipeline>
	</Adapter>
</Configuration>
`

// recordingBuffer applies batches to a textbuf.Buffer without parsing, so tests decide
// when the next structure arrives.
type recordingBuffer struct {
	*textbuf.Buffer
	batches [][]flowast.EditOperation
	err     error
}

func (b *recordingBuffer) ApplyEdits(ctx context.Context, id string, ops []flowast.EditOperation, flowUpdate bool) error {
	if b.err != nil {
		return b.err
	}
	b.batches = append(b.batches, ops)
	return b.Buffer.ApplyEdits(ctx, id, ops, flowUpdate)
}

func newService(t *testing.T, text string, opts *flowsync.Options) (context.Context, *flowsync.Service, *recordingBuffer) {
	ctx := log.WithTB(context.Background(), t, nil)
	buf := &recordingBuffer{Buffer: textbuf.New(text)}
	svc := flowsync.New(buf, opts)
	reparse(t, ctx, svc, buf)
	return ctx, svc, buf
}

func reparse(t *testing.T, ctx context.Context, svc *flowsync.Service, buf *recordingBuffer) {
	s, err := flowparser.ParseString("config.xml", buf.Text())
	require.NoError(t, err)
	svc.OnStructure(ctx, s)
}

func TestSingleFlight(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)

	err := svc.RequestAttributeEdits(ctx, "EchoPipe(Pipe)", []flowsync.ChangedAttribute{{Name: "x", Value: "1"}}, false)
	require.NoError(t, err)
	assert.Len(t, buf.batches, 1)
	assert.True(t, svc.Waiting())

	requests := []struct {
		uid  string
		name string
		val  string
	}{
		{"EchoPipe(Echo)", "a", "1"},
		{"EchoPipe(Echo)", "b", "2"},
		{"EchoPipe(Pipe)", "x", "3"},
		{"EchoPipe(Echo)", "a", "5"},
	}
	for _, r := range requests {
		err = svc.RequestAttributeEdits(ctx, r.uid, []flowsync.ChangedAttribute{{Name: r.name, Value: r.val}}, true)
		require.NoError(t, err)
	}
	assert.Len(t, buf.batches, 1)
	attrs, _ := svc.Pending()
	assert.Equal(t, 3, attrs)

	reparse(t, ctx, svc, buf)
	require.Len(t, buf.batches, 2)
	assert.Len(t, buf.batches[1], 3)
	assert.True(t, svc.Waiting())

	text := buf.Text()
	assert.Contains(t, text, `<EchoPipe name="Echo" a="5" b="2">`)
	assert.Contains(t, text, `<EchoPipe name="Pipe" x="3" />`)

	reparse(t, ctx, svc, buf)
	assert.False(t, svc.Waiting())
	assert.Len(t, buf.batches, 2)
}

func TestSameStructureIsIgnored(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)
	st := svc.Structure()

	err := svc.EditNodePositions(ctx, "EchoPipe(Pipe)", flowast.Point{X: 10, Y: 20.5})
	require.NoError(t, err)
	assert.Contains(t, buf.Text(), `<EchoPipe name="Pipe" flow:y="20.5" flow:x="10" />`)

	svc.OnStructure(ctx, st)
	assert.True(t, svc.Waiting())
}

func TestDeferredStructuralEdits(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)

	require.NoError(t, svc.AddPipe(ctx, "EchoPipe", "Log"))
	require.Len(t, buf.batches, 1)

	require.NoError(t, svc.AddPipe(ctx, "EchoPipe", "Log"))
	require.NoError(t, svc.RequestAttributeEdits(ctx, "EchoPipe(Log)", []flowsync.ChangedAttribute{{Name: "active", Value: "false"}}, true))
	attrs, structural := svc.Pending()
	assert.Equal(t, 1, attrs)
	assert.Equal(t, 1, structural)

	reparse(t, ctx, svc, buf)
	require.Len(t, buf.batches, 2)
	assert.Contains(t, buf.Text(), `<EchoPipe name="Log" active="false" />`)

	reparse(t, ctx, svc, buf)
	require.Len(t, buf.batches, 3)
	assert.Contains(t, buf.Text(), `<EchoPipe name="Log1" />`)

	reparse(t, ctx, svc, buf)
	assert.False(t, svc.Waiting())
}

func TestStaleEditsAreDropped(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)

	require.NoError(t, svc.DeleteNode(ctx, "EchoPipe(Pipe)", false))
	require.NoError(t, svc.RequestAttributeEdits(ctx, "EchoPipe(Pipe)", []flowsync.ChangedAttribute{{Name: "x", Value: "1"}}, true))
	require.NoError(t, svc.DeleteConnection(ctx, "EchoPipe(Echo)", "EchoPipe(Pipe)"))

	reparse(t, ctx, svc, buf)
	assert.Len(t, buf.batches, 1)
	assert.False(t, svc.Waiting())
	attrs, structural := svc.Pending()
	assert.Zero(t, attrs)
	assert.Zero(t, structural)

	err := svc.DeleteNode(ctx, "EchoPipe(Pipe)", false)
	assert.Error(t, err)
}

func TestRemoveAbsentFirstPipeRefreshes(t *testing.T) {
	t.Parallel()

	refreshed := 0
	ctx, svc, buf := newService(t, strings.Replace(chainConfig, ` firstPipe="Echo"`, "", 1), &flowsync.Options{
		OnRefresh: func(ctx context.Context) {
			refreshed++
		},
	})

	require.NoError(t, svc.RemoveFirstPipe(ctx))
	assert.Equal(t, 1, refreshed)
	assert.Empty(t, buf.batches)
	assert.False(t, svc.Waiting())
}

func TestRejectedBatchEndsWait(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)
	buf.err = errors.New("stale range")

	err := svc.AddPipe(ctx, "EchoPipe", "Log")
	assert.EqualError(t, err, "stale range")
	assert.False(t, svc.Waiting())
}

type prompt struct {
	source   *flowast.Node
	targetID string
}

func (p *prompt) PromptForwardName(ctx context.Context, source *flowast.Node, targetID string) {
	p.source = source
	p.targetID = targetID
}

func TestAddConnectionPromptsForName(t *testing.T) {
	t.Parallel()

	p := &prompt{}
	ctx, svc, buf := newService(t, chainConfig, &flowsync.Options{Prompt: p})

	require.NoError(t, svc.AddConnection(ctx, "EchoPipe(Echo)", "Exit(READY)"))
	assert.Empty(t, buf.batches)
	require.NotNil(t, p.source)
	assert.Equal(t, "EchoPipe(Echo)", p.source.UID)
	assert.Equal(t, "Exit(READY)", p.targetID)

	require.NoError(t, svc.CreateForwardName(ctx, p.source, p.targetID, "failure"))
	assert.Contains(t, buf.Text(), "\t\t\t\t<Forward name=\"failure\" path=\"READY\" />\n\t\t\t</EchoPipe>")
}

func TestAddConnectionWithoutPrompt(t *testing.T) {
	t.Parallel()

	ctx, svc, buf := newService(t, chainConfig, nil)

	require.NoError(t, svc.AddConnection(ctx, "EchoPipe(Echo)", "Exit(READY)"))
	assert.Contains(t, buf.Text(), `<Forward name="success1" path="READY" />`)

	reparse(t, ctx, svc, buf)
	require.NoError(t, svc.AddConnection(ctx, "EchoPipe(Pipe)", "Exit(READY)"))
	assert.Contains(t, buf.Text(), "<EchoPipe name=\"Pipe\">\n\t\t\t\t<Forward name=\"success\" path=\"READY\" />")

	err := svc.AddConnection(ctx, "Exit(READY)", "EchoPipe(Pipe)")
	assert.Error(t, err)
}

type panner struct {
	uid string
	p   flowast.Point
}

func (p *panner) PanTo(ctx context.Context, uid string, pt flowast.Point) {
	p.uid = uid
	p.p = pt
}

func TestSelection(t *testing.T) {
	t.Parallel()

	pn := &panner{}
	ctx, svc, buf := newService(t, chainConfig, &flowsync.Options{
		Settings: flowsync.Settings{AutomaticPan: true},
		Panner:   pn,
		Positions: func(uid string) (flowast.Point, bool) {
			return flowast.Point{X: 300, Y: 200}, uid == "EchoPipe(Echo)"
		},
	})

	n, err := svc.SelectNodeByPosition(ctx, flowast.Pos(5, 3))
	require.NoError(t, err)
	assert.Equal(t, "EchoPipe(Echo)", n.UID)
	assert.Equal(t, flowast.Span(4, 4, 6, 15), buf.Highlight())
	assert.Equal(t, "EchoPipe(Echo)", pn.uid)
	assert.Equal(t, flowast.Point{X: 300, Y: 200}, pn.p)

	n, err = svc.SelectNodeByID(ctx, "Exit(READY)")
	require.NoError(t, err)
	assert.Equal(t, flowast.Pos(9, 5), buf.Position())
	assert.Equal(t, 9, n.Line)

	_, err = svc.SelectNodeByPosition(ctx, flowast.Pos(1, 1))
	assert.Error(t, err)
}
