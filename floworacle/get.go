package floworacle

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/frankframework/frankflow/flowast"
)

// NotFoundError is returned when the target of an operation does not exist in the
// structure, usually because the text changed since the operation was requested.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Kind, e.ID)
}

func IsNotFound(err error) bool {
	var nf NotFoundError
	return errors.As(err, &nf)
}

// TextReader reads the current text of the configuration.
type TextReader interface {
	GetTextInRange(flowast.Range) string
}

// UniqueName returns base if no name in names equals it, or else base with the lowest
// numeric suffix starting at 1 that is free.
func UniqueName(names []string, base string) string {
	used := make(map[string]struct{}, len(names))
	for _, n := range names {
		used[n] = struct{}{}
	}
	if _, ok := used[base]; !ok {
		return base
	}
	for i := 1; ; i++ {
		candidate := base + strconv.Itoa(i)
		if _, ok := used[candidate]; !ok {
			return candidate
		}
	}
}

// UniqueNodeName is UniqueName over the names of nodes.
func UniqueNodeName(nodes []*flowast.Node, base string) string {
	return UniqueName(flowast.Names(nodes), base)
}

func getNode(s *flowast.Structure, uid string) (*flowast.Node, error) {
	n, ok := s.Node(uid)
	if !ok {
		return nil, NotFoundError{Kind: "node", ID: uid}
	}
	return n, nil
}

// GetSourceNode returns the pipe a connection starts from.
func GetSourceNode(s *flowast.Structure, uid string) (*flowast.Node, error) {
	n, ok := s.Pipe(uid)
	if !ok {
		return nil, NotFoundError{Kind: "pipe", ID: uid}
	}
	return n, nil
}

// GetTargetForward returns the forward of the source pipe that points at the target node.
func GetTargetForward(s *flowast.Structure, sourceID, targetID string) (*flowast.Node, error) {
	source, err := GetSourceNode(s, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := getNode(s, targetID)
	if err != nil {
		return nil, err
	}
	f, ok := source.Forward(target.Name)
	if !ok {
		return nil, NotFoundError{Kind: "forward", ID: sourceID + " -> " + targetID}
	}
	return f, nil
}

// ForwardsWithTarget returns every forward in the structure whose path is n's name.
func ForwardsWithTarget(s *flowast.Structure, n *flowast.Node) []*flowast.Node {
	var forwards []*flowast.Node
	for _, cur := range s.Nodes {
		for _, f := range cur.Forwards {
			if f.Attributes.Value("path") == n.Name {
				forwards = append(forwards, f)
			}
		}
	}
	return forwards
}

// HasSuccessForward reports whether a new connection from n needs a forward name other
// than success.
func HasSuccessForward(n *flowast.Node) bool {
	return n.HasForwardNamed("success")
}

// NodeText returns the text of n from the start of its first line through its end.
func NodeText(text TextReader, n *flowast.Node) string {
	return text.GetTextInRange(flowast.Span(n.Line, 0, n.EndLine, n.EndColumn))
}

// NodeLines returns the range of the full lines n occupies.
func NodeLines(n *flowast.Node) flowast.Range {
	return flowast.Lines(n.Line, n.EndLine+1)
}
