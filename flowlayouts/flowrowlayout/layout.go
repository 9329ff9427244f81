// Package flowrowlayout places nodes in three columns by role: receivers, pipes and exits.
//
// Nodes that already have a position keep it. New nodes are stacked below the lowest
// positioned node of their column.
package flowrowlayout

import (
	"context"
	"sync"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
)

const (
	leftMargin = 100
	topMargin  = 100
	nodeHeight = 100
	nodeWidth  = 200
)

// Column returns the 1 based column n is placed in.
func Column(n flowgraph.Node) int {
	switch n.Variant {
	case flowgraph.VariantReceiver:
		return 1
	case flowgraph.VariantExit:
		return 3
	default:
		return 2
	}
}

// Engine remembers the positions it emitted so that nodes keep their place across
// layouts of successive structures.
type Engine struct {
	mu    sync.Mutex
	cache map[string]flowast.Point
}

func New() *Engine {
	return &Engine{
		cache: make(map[string]flowast.Point),
	}
}

// Layout places every node of g without a position.
func (e *Engine) Layout(ctx context.Context, g *flowgraph.Graph) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var rowStart [4]float64
	for _, n := range g.Nodes {
		col := Column(n)
		if n.Top > rowStart[col] {
			rowStart[col] = n.Top + topMargin
		}
	}

	var rows [4]int
	for _, n := range g.Nodes {
		if n.Positioned() {
			continue
		}
		col := Column(n)
		rows[col]++
		if p, ok := e.cache[n.ID]; ok && p.X != 0 && p.Y != 0 {
			g.Place(n.ID, p.X, p.Y)
			continue
		}
		left, top := Position(rowStart[col], rows[col], col)
		g.Place(n.ID, left, top)
	}

	e.remember(g)
	return nil
}

// Position returns the coordinates of row in column, given the top at which the rows of
// the column start.
func Position(rowStart float64, row, column int) (left, top float64) {
	left = float64(nodeWidth*(column-1) + leftMargin*column)
	top = rowStart + float64(nodeHeight*(row-1)+topMargin*row)
	return left, top
}

// Remember replaces the cache with the positions of g, for graphs laid out elsewhere.
func (e *Engine) Remember(g *flowgraph.Graph) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.remember(g)
}

func (e *Engine) remember(g *flowgraph.Graph) {
	e.cache = g.Positions()
}

// Cached returns the last position emitted for the node identified by id.
func (e *Engine) Cached(id string) (flowast.Point, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	p, ok := e.cache[id]
	return p, ok
}
