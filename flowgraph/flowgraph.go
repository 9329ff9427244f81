// Package flowgraph builds the diagram shown for a configuration: one node per receiver,
// pipe and exit, connected by forwards.
package flowgraph

import (
	"fmt"
	"sort"

	"golang.org/x/exp/maps"

	"github.com/frankframework/frankflow/flowast"
)

type Variant string

const (
	VariantReceiver Variant = "receiver"
	VariantPipe     Variant = "pipe"
	VariantSender   Variant = "sender"
	VariantExit     Variant = "exit"
)

type BadgeStyle string

const (
	BadgeSuccess BadgeStyle = "success"
	BadgeInfo    BadgeStyle = "info"
	BadgeDanger  BadgeStyle = "danger"
)

// Badge summarizes the nested elements of one group.
type Badge struct {
	Title string     `json:"title"`
	Style BadgeStyle `json:"style"`
}

// Node is a box in the diagram. Left and Top are zero for nodes that have not been
// placed yet.
type Node struct {
	ID      string  `json:"id"`
	Name    string  `json:"name"`
	Type    string  `json:"type"`
	Variant Variant `json:"variant"`
	Left    float64 `json:"left"`
	Top     float64 `json:"top"`
	Badges  []Badge `json:"badges,omitempty"`
	// Implicit marks the placeholder exit that does not exist in the text.
	Implicit bool `json:"implicit,omitempty"`
}

// Positioned reports whether n has been placed.
func (n Node) Positioned() bool {
	return n.Left != 0 || n.Top != 0
}

// Place returns a copy of n at left, top.
func (n Node) Place(left, top float64) Node {
	n.Left = left
	n.Top = top
	return n
}

func (n Node) String() string {
	return fmt.Sprintf("%s(%s)@%v,%v", n.Variant, n.Name, n.Left, n.Top)
}

type Forward struct {
	Source      string `json:"source"`
	Destination string `json:"destination"`
	// Name is empty for the implicit connection of a receiver to the first pipe.
	Name string `json:"name,omitempty"`
}

// Graph holds nodes in the order of the structure they were generated from.
type Graph struct {
	Nodes    []Node
	Forwards []Forward

	index map[string]int
}

func New() *Graph {
	return &Graph{
		index: make(map[string]int),
	}
}

// Add appends n, replacing any node with the same ID.
func (g *Graph) Add(n Node) {
	if i, ok := g.index[n.ID]; ok {
		g.Nodes[i] = n
		return
	}
	g.index[n.ID] = len(g.Nodes)
	g.Nodes = append(g.Nodes, n)
}

func (g *Graph) Node(id string) (Node, bool) {
	i, ok := g.index[id]
	if !ok {
		return Node{}, false
	}
	return g.Nodes[i], true
}

// Place moves the node identified by id. It reports false if there is no such node.
func (g *Graph) Place(id string, left, top float64) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	g.Nodes[i] = g.Nodes[i].Place(left, top)
	return true
}

// Positions returns the placement of every node by id.
func (g *Graph) Positions() map[string]flowast.Point {
	m := make(map[string]flowast.Point, len(g.Nodes))
	for _, n := range g.Nodes {
		m[n.ID] = flowast.Point{X: n.Left, Y: n.Top}
	}
	return m
}

// FirstPipe returns the name of the pipe executed first: the firstPipe attribute of the
// pipeline, or else the first pipe in the text.
func FirstPipe(s *flowast.Structure) string {
	if s.FirstPipe != "" {
		return s.FirstPipe
	}
	if len(s.Pipes) > 0 {
		return s.Pipes[0].Name
	}
	return ""
}

// Generate builds the graph of s. Receivers feed the pipe named firstPipe.
//
// A structure with pipes but no exits gets a placeholder exit with ID
// flowast.ImplicitExitID that forwards to unknown paths end at.
func Generate(s *flowast.Structure, firstPipe string) *Graph {
	g := New()

	first, hasFirst := s.PipeNamed(firstPipe)
	for _, r := range s.Receivers {
		g.Add(newNode(r, VariantReceiver, badges(r)))
		if hasFirst {
			g.Forwards = append(g.Forwards, Forward{Source: r.UID, Destination: first.UID})
		}
	}

	for _, p := range s.Pipes {
		v := VariantPipe
		if p.Type == "SenderPipe" {
			v = VariantSender
		}
		g.Add(newNode(p, v, badges(p)))
	}

	for _, e := range s.Exits {
		g.Add(newNode(e, VariantExit, nil))
	}

	implicit := len(s.Exits) == 0 && len(s.Pipes) > 0
	if implicit {
		g.Add(Node{
			ID:       flowast.ImplicitExitID,
			Name:     "READY",
			Type:     "Exit",
			Variant:  VariantExit,
			Implicit: true,
		})
	}

	for _, p := range s.Pipes {
		for _, f := range p.Forwards {
			path := f.Attributes.Value("path")
			dst := flowast.ImplicitExitID
			if target, ok := s.Target(path); ok {
				dst = target.UID
			} else if !implicit {
				continue
			}
			g.Forwards = append(g.Forwards, Forward{
				Source:      p.UID,
				Destination: dst,
				Name:        f.Attributes.Value("name"),
			})
		}
	}
	return g
}

func newNode(n *flowast.Node, v Variant, badges []Badge) Node {
	gn := Node{
		ID:      n.UID,
		Name:    n.Name,
		Type:    n.Type,
		Variant: v,
		Badges:  badges,
	}
	if n.Positions != nil {
		gn.Left = n.Positions.X
		gn.Top = n.Positions.Y
	}
	return gn
}

// badges summarizes the nested elements of n by group, in group order. Forwards are
// drawn as connections instead.
func badges(n *flowast.Node) []Badge {
	groups := maps.Keys(n.NestedElements)
	sort.Strings(groups)

	var bs []Badge
	for _, group := range groups {
		if group == "forward" {
			continue
		}
		elems := n.NestedElements[group]
		if len(elems) == 0 {
			continue
		}
		b := Badge{Style: BadgeDanger}
		switch group {
		case "sender":
			b.Style = BadgeSuccess
		case "listener":
			b.Style = BadgeInfo
		}
		if len(elems) > 1 {
			b.Title = fmt.Sprintf("%d %ss", len(elems), group)
		} else {
			b.Title = elems[0].Type
		}
		bs = append(bs, b)
	}
	return bs
}
