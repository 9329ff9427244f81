package flowsync

import (
	"context"

	"github.com/frankframework/frankflow/flowast"
	"github.com/frankframework/frankflow/floworacle"
)

// nodeAtLine returns the diagram node whose element contains line.
func nodeAtLine(st *flowast.Structure, line int) (*flowast.Node, bool) {
	for _, nodes := range [][]*flowast.Node{st.Receivers, st.Pipes, st.Exits} {
		for _, n := range nodes {
			if n.ContainsLine(line) {
				return n, true
			}
		}
	}
	return nil, false
}

// SelectNodeByPosition selects the node at the cursor position p. The node is
// highlighted and, with Settings.AutomaticPan, panned to.
func (s *Service) SelectNodeByPosition(ctx context.Context, p flowast.Position) (*flowast.Node, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	n, ok := nodeAtLine(st, p.Line)
	if !ok {
		return nil, floworacle.NotFoundError{Kind: "node", ID: "at line " + p.String()}
	}
	s.buf.HighlightText(nodeRange(n))
	s.pan(ctx, n)
	return n, nil
}

// SelectNodeByID moves the cursor to the node identified by uid and highlights it.
func (s *Service) SelectNodeByID(ctx context.Context, uid string) (*flowast.Node, error) {
	st, err := s.current()
	if err != nil {
		return nil, err
	}
	n, ok := st.Node(uid)
	if !ok {
		return nil, floworacle.NotFoundError{Kind: "node", ID: uid}
	}
	s.buf.SetPosition(flowast.Pos(n.Line, n.Column))
	s.buf.HighlightText(nodeRange(n))
	s.pan(ctx, n)
	return n, nil
}

func nodeRange(n *flowast.Node) flowast.Range {
	return flowast.Span(n.Line, n.Column, n.EndLine, n.EndColumn)
}

func (s *Service) pan(ctx context.Context, n *flowast.Node) {
	if !s.opts.Settings.AutomaticPan || s.opts.Panner == nil {
		return
	}
	if n.Positions != nil {
		s.opts.Panner.PanTo(ctx, n.UID, *n.Positions)
		return
	}
	if s.opts.Positions == nil {
		return
	}
	if p, ok := s.opts.Positions(n.UID); ok {
		s.opts.Panner.PanTo(ctx, n.UID, p)
	}
}
