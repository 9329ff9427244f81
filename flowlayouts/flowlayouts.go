// Package flowlayouts chooses how diagrams are laid out.
//
// The first diagram of a file is laid out breadth first along its forwards. Later
// diagrams of the same file use the role columns of flowrowlayout, which keeps nodes where
// they were.
package flowlayouts

import (
	"context"
	"fmt"
	"sync"

	"github.com/frankframework/frankflow/flowgraph"
	"github.com/frankframework/frankflow/flowlayouts/flowbfslayout"
	"github.com/frankframework/frankflow/flowlayouts/flowrowlayout"
)

type Strategy string

const (
	StrategyAuto Strategy = "auto"
	StrategyRows Strategy = "rows"
	StrategyBFS  Strategy = "bfs"
)

var Strategies = []Strategy{StrategyAuto, StrategyRows, StrategyBFS}

func ParseStrategy(s string) (Strategy, error) {
	for _, st := range Strategies {
		if string(st) == s {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown layout %q, expected one of %v", s, Strategies)
}

type Layouter struct {
	strategy Strategy
	rows     *flowrowlayout.Engine

	mu      sync.Mutex
	laidOut bool
}

func New(strategy Strategy) *Layouter {
	if strategy == "" {
		strategy = StrategyAuto
	}
	return &Layouter{
		strategy: strategy,
		rows:     flowrowlayout.New(),
	}
}

// Layout places the nodes of g without a position.
func (l *Layouter) Layout(ctx context.Context, g *flowgraph.Graph) error {
	l.mu.Lock()
	first := !l.laidOut
	l.laidOut = true
	rows := l.rows
	l.mu.Unlock()

	switch l.strategy {
	case StrategyRows:
		return rows.Layout(ctx, g)
	case StrategyBFS:
		return flowbfslayout.Layout(ctx, g)
	}

	if !first {
		return rows.Layout(ctx, g)
	}
	err := flowbfslayout.Layout(ctx, g)
	if err != nil {
		return err
	}
	rows.Remember(g)
	return nil
}

// Reset makes the next layout a first one, as when another file is opened.
func (l *Layouter) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.laidOut = false
	l.rows = flowrowlayout.New()
}
