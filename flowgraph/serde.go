package flowgraph

import (
	"encoding/json"
	"fmt"
)

type serializedGraph struct {
	Nodes    []Node    `json:"nodes"`
	Forwards []Forward `json:"forwards"`
}

func (g *Graph) MarshalJSON() ([]byte, error) {
	sg := serializedGraph{
		Nodes:    g.Nodes,
		Forwards: g.Forwards,
	}
	if sg.Nodes == nil {
		sg.Nodes = []Node{}
	}
	if sg.Forwards == nil {
		sg.Forwards = []Forward{}
	}
	return json.Marshal(sg)
}

func (g *Graph) UnmarshalJSON(b []byte) error {
	var sg serializedGraph
	err := json.Unmarshal(b, &sg)
	if err != nil {
		return err
	}

	*g = *New()
	for _, n := range sg.Nodes {
		if _, ok := g.index[n.ID]; ok {
			return fmt.Errorf("duplicate node %q", n.ID)
		}
		g.Add(n)
	}
	for _, f := range sg.Forwards {
		if _, ok := g.index[f.Source]; !ok {
			return fmt.Errorf("forward from unknown node %q", f.Source)
		}
		if _, ok := g.index[f.Destination]; !ok {
			return fmt.Errorf("forward to unknown node %q", f.Destination)
		}
	}
	g.Forwards = sg.Forwards
	return nil
}

// Copy returns a deep copy of g.
func (g *Graph) Copy() *Graph {
	g2 := New()
	for _, n := range g.Nodes {
		n.Badges = append([]Badge(nil), n.Badges...)
		g2.Add(n)
	}
	g2.Forwards = append([]Forward(nil), g.Forwards...)
	return g2
}
