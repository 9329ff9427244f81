package flowbfslayout_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts/flowbfslayout"
)

func chain() *flowgraph.Graph {
	g := flowgraph.New()
	g.Add(flowgraph.Node{ID: "r", Variant: flowgraph.VariantReceiver})
	g.Add(flowgraph.Node{ID: "echo", Variant: flowgraph.VariantPipe})
	g.Add(flowgraph.Node{ID: "send", Variant: flowgraph.VariantSender})
	g.Add(flowgraph.Node{ID: "log", Variant: flowgraph.VariantPipe})
	g.Add(flowgraph.Node{ID: "exit", Variant: flowgraph.VariantExit})
	g.Add(flowgraph.Node{ID: "error", Variant: flowgraph.VariantExit})
	g.Forwards = []flowgraph.Forward{
		{Source: "r", Destination: "send"},
		{Source: "send", Destination: "echo"},
		{Source: "send", Destination: "log"},
		{Source: "echo", Destination: "exit"},
		{Source: "log", Destination: "log"},
		{Source: "log", Destination: "missing"},
	}
	return g
}

func TestLevels(t *testing.T) {
	t.Parallel()

	assert.Equal(t, []int{0, 2, 1, 2, 3, 0}, flowbfslayout.Levels(chain()))

	g := flowgraph.New()
	g.Add(flowgraph.Node{ID: "a"})
	g.Add(flowgraph.Node{ID: "b"})
	g.Forwards = []flowgraph.Forward{
		{Source: "a", Destination: "b"},
		{Source: "b", Destination: "a"},
	}
	assert.Equal(t, []int{0, 1}, flowbfslayout.Levels(g))
}

func TestLayout(t *testing.T) {
	t.Parallel()

	g := chain()
	require.NoError(t, flowbfslayout.Layout(context.Background(), g))
	assert.Equal(t, map[string]flowast.Point{
		"r":     {X: 100, Y: 100},
		"send":  {X: 400, Y: 300},
		"echo":  {X: 400, Y: 500},
		"log":   {X: 700, Y: 500},
		"exit":  {X: 800, Y: 700},
		"error": {X: 1100, Y: 700},
	}, g.Positions())
}

func TestLayoutKeepsPositions(t *testing.T) {
	t.Parallel()

	g := chain()
	g.Place("log", 50, 1000)
	g.Place("error", 5, 5)
	require.NoError(t, flowbfslayout.Layout(context.Background(), g))

	pos := g.Positions()
	assert.Equal(t, flowast.Point{X: 50, Y: 1000}, pos["log"])
	assert.Equal(t, flowast.Point{X: 5, Y: 5}, pos["error"])
	assert.Equal(t, flowast.Point{X: 800, Y: 1200}, pos["exit"])
}
