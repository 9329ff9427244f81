package flowgraph

import "context"

// LayoutGraph places the nodes of a graph that have no position yet.
type LayoutGraph func(context.Context, *Graph) error
