// Package flowlib ties parsing, editing, diagram generation and layout together.
package flowlib

import (
	"context"
	"strings"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts"
	"github.com/frankframework/frankflow/flowparser"
)

type CompileOptions struct {
	UTF16  bool
	Layout flowgraph.LayoutGraph
}

// Compile parses input and returns its laid out diagram. Parse errors are returned as a
// *flowparser.ParseError, in which case the graph is nil.
func Compile(ctx context.Context, path, input string, opts *CompileOptions) (*flowgraph.Graph, *flowast.Structure, error) {
	if opts == nil {
		opts = &CompileOptions{}
	}

	s, err := flowparser.Parse(path, strings.NewReader(input), &flowparser.ParseOptions{
		UTF16Pos: opts.UTF16,
	})
	if err != nil {
		return nil, s, err
	}

	g := flowgraph.Generate(s, flowgraph.FirstPipe(s))
	layout := opts.Layout
	if layout == nil {
		layout = flowlayouts.New(flowlayouts.StrategyAuto).Layout
	}
	err = layout(ctx, g)
	if err != nil {
		return nil, s, err
	}
	return g, s, nil
}
