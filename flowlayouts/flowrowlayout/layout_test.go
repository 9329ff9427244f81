package flowrowlayout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts/flowrowlayout"
)

func graph(nodes ...flowgraph.Node) *flowgraph.Graph {
	g := flowgraph.New()
	for _, n := range nodes {
		g.Add(n)
	}
	return g
}

func TestLayout(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name  string
		nodes []flowgraph.Node
		exp   map[string]flowast.Point
	}{
		{
			name: "columns",
			nodes: []flowgraph.Node{
				{ID: "r", Variant: flowgraph.VariantReceiver},
				{ID: "a", Variant: flowgraph.VariantPipe},
				{ID: "b", Variant: flowgraph.VariantSender},
				{ID: "e", Variant: flowgraph.VariantExit},
			},
			exp: map[string]flowast.Point{
				"r": {X: 100, Y: 100},
				"a": {X: 400, Y: 100},
				"b": {X: 400, Y: 300},
				"e": {X: 700, Y: 100},
			},
		},
		{
			name: "below_positioned",
			nodes: []flowgraph.Node{
				{ID: "a", Variant: flowgraph.VariantPipe},
				{ID: "p", Variant: flowgraph.VariantPipe, Left: 50, Top: 500},
				{ID: "e", Variant: flowgraph.VariantExit},
			},
			exp: map[string]flowast.Point{
				"a": {X: 400, Y: 700},
				"p": {X: 50, Y: 500},
				"e": {X: 700, Y: 100},
			},
		},
		{
			name: "left_only_counts_as_positioned",
			nodes: []flowgraph.Node{
				{ID: "a", Variant: flowgraph.VariantPipe, Left: 10},
			},
			exp: map[string]flowast.Point{
				"a": {X: 10, Y: 0},
			},
		},
	}

	for _, tc := range testCases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			g := graph(tc.nodes...)
			err := flowrowlayout.New().Layout(context.Background(), g)
			require.NoError(t, err)
			assert.Equal(t, tc.exp, g.Positions())
		})
	}
}

func TestLayoutIsStable(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	e := flowrowlayout.New()
	g := graph(
		flowgraph.Node{ID: "a", Variant: flowgraph.VariantPipe},
		flowgraph.Node{ID: "b", Variant: flowgraph.VariantPipe},
	)
	require.NoError(t, e.Layout(ctx, g))
	first := g.Positions()
	require.NoError(t, e.Layout(ctx, g))
	assert.Equal(t, first, g.Positions())

	// A new structure yields unplaced nodes again. Known nodes keep their place.
	g2 := graph(
		flowgraph.Node{ID: "c", Variant: flowgraph.VariantPipe},
		flowgraph.Node{ID: "b", Variant: flowgraph.VariantPipe},
		flowgraph.Node{ID: "a", Variant: flowgraph.VariantPipe},
	)
	require.NoError(t, e.Layout(ctx, g2))
	pos := g2.Positions()
	assert.Equal(t, first["a"], pos["a"])
	assert.Equal(t, first["b"], pos["b"])
	assert.Equal(t, flowast.Point{X: 400, Y: 100}, pos["c"])

	p, ok := e.Cached("c")
	assert.True(t, ok)
	assert.Equal(t, pos["c"], p)
}

func TestPosition(t *testing.T) {
	t.Parallel()

	left, top := flowrowlayout.Position(0, 1, 1)
	assert.Equal(t, 100.0, left)
	assert.Equal(t, 100.0, top)

	left, top = flowrowlayout.Position(600, 3, 3)
	assert.Equal(t, 700.0, left)
	assert.Equal(t, 600.0+200+300, top)
}
