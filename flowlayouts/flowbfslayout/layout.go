// Package flowbfslayout lays out a flow breadth first along its forwards: every level of
// the traversal is a row of the diagram.
//
// Receivers and exits are then moved to fixed bands on the left and at the bottom so they
// stay anchored wherever the traversal put them.
package flowbfslayout

import (
	"context"
	"math"

	"gonum.org/v1/gonum/graph"
	"gonum.org/v1/gonum/graph/simple"
	"gonum.org/v1/gonum/graph/traverse"

	"github.com/frankframework/frankflow/flowgraph"
)

const (
	leftMargin    = 100
	topMargin     = 100
	nodeHeight    = 100
	nodeWidth     = 200
	columnSpacing = 300
	rowSpacing    = 200

	// pipesLeft is where the first column of pipes starts, right of the receiver band.
	pipesLeft = leftMargin + nodeWidth + leftMargin
	// exitsLeft is where the exit band starts.
	exitsLeft = 800
)

// Layout places every node of g without a position.
func Layout(ctx context.Context, g *flowgraph.Graph) error {
	levels := Levels(g)

	perLevel := make(map[int]int)
	exitTop := 0.
	receiverTop := float64(topMargin)
	exitLeft := float64(exitsLeft)

	var exits []string
	for i, n := range g.Nodes {
		if n.Positioned() {
			if n.Variant != flowgraph.VariantReceiver && n.Variant != flowgraph.VariantExit {
				exitTop = math.Max(exitTop, n.Top)
			}
			continue
		}
		switch n.Variant {
		case flowgraph.VariantReceiver:
			g.Place(n.ID, leftMargin, receiverTop)
			receiverTop += nodeHeight + topMargin
		case flowgraph.VariantExit:
			exits = append(exits, n.ID)
		default:
			level := levels[i]
			col := perLevel[level]
			perLevel[level]++

			left := float64(pipesLeft + col*columnSpacing)
			top := float64(topMargin + level*rowSpacing)
			g.Place(n.ID, left, top)
			exitTop = math.Max(exitTop, top)
		}
	}

	for _, id := range exits {
		g.Place(id, exitLeft, exitTop+rowSpacing)
		exitLeft += nodeWidth + leftMargin
	}
	return nil
}

// Levels returns the breadth first depth of every node of g, by index into g.Nodes.
// Traversal starts at nodes without incoming forwards, in order. Nodes only reachable
// through cycles start a traversal of their own.
func Levels(g *flowgraph.Graph) []int {
	dg := simple.NewDirectedGraph()
	ids := make(map[string]int64, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[n.ID] = int64(i)
		dg.AddNode(simple.Node(i))
	}
	for _, f := range g.Forwards {
		src, ok := ids[f.Source]
		if !ok {
			continue
		}
		dst, ok := ids[f.Destination]
		if !ok || src == dst {
			continue
		}
		dg.SetEdge(dg.NewEdge(simple.Node(src), simple.Node(dst)))
	}

	levels := make([]int, len(g.Nodes))
	var bf traverse.BreadthFirst
	walk := func(from int64) {
		bf.Walk(dg, simple.Node(from), func(n graph.Node, d int) bool {
			levels[n.ID()] = d
			return false
		})
	}
	for i := range g.Nodes {
		if dg.To(int64(i)).Len() == 0 {
			walk(int64(i))
		}
	}
	for i := range g.Nodes {
		if !bf.Visited(simple.Node(i)) {
			walk(int64(i))
		}
	}
	return levels
}
