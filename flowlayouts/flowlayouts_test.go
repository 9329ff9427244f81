package flowlayouts_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts"
)

func graph(ids ...string) *flowgraph.Graph {
	g := flowgraph.New()
	for _, id := range ids {
		g.Add(flowgraph.Node{ID: id, Variant: flowgraph.VariantPipe})
	}
	for i := 1; i < len(ids); i++ {
		g.Forwards = append(g.Forwards, flowgraph.Forward{Source: ids[i-1], Destination: ids[i]})
	}
	return g
}

func TestParseStrategy(t *testing.T) {
	t.Parallel()

	s, err := flowlayouts.ParseStrategy("bfs")
	require.NoError(t, err)
	assert.Equal(t, flowlayouts.StrategyBFS, s)

	_, err = flowlayouts.ParseStrategy("dagre")
	assert.Error(t, err)
}

func TestAuto(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	l := flowlayouts.New("")

	g := graph("a", "b")
	require.NoError(t, l.Layout(ctx, g))
	first := g.Positions()
	assert.Equal(t, flowast.Point{X: 400, Y: 100}, first["a"])
	assert.Equal(t, flowast.Point{X: 400, Y: 300}, first["b"])

	// Breadth first would put c at the top. Rows keep a and b in place and stack c.
	g = graph("c", "a", "b")
	require.NoError(t, l.Layout(ctx, g))
	pos := g.Positions()
	assert.Equal(t, first["a"], pos["a"])
	assert.Equal(t, first["b"], pos["b"])
	assert.Equal(t, flowast.Point{X: 400, Y: 100}, pos["c"])

	l.Reset()
	g = graph("c", "a", "b")
	require.NoError(t, l.Layout(ctx, g))
	assert.Equal(t, flowast.Point{X: 400, Y: 500}, g.Positions()["b"])
}
