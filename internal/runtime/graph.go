package runtime

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"pipelined.dev/tensorpipe/mutable"
)

// ErrCycle is returned when graph links form a cycle.
var ErrCycle = errors.New("graph has a cycle")

// Graph is a set of connected nodes and the workers that drive them.
type Graph struct {
	nodes   []*Node
	workers []*worker
}

// Add adds node to the graph.
func (g *Graph) Add(n *Node) {
	g.nodes = append(g.nodes, n)
}

// Nodes returns nodes in order they were added.
func (g *Graph) Nodes() []*Node {
	return g.nodes
}

// Queue returns the input queue of the node. Queue and the worker that
// drives the node are created on the first call, subsequent calls
// return the same queue regardless of arguments.
func (g *Graph) Queue(n *Node, size int, leaky Leaky) *Queue {
	if n.input != nil {
		return n.input
	}
	q := NewQueue(size, leaky)
	q.onDrop = n.Drop
	n.input = q
	g.workers = append(g.workers, &worker{queue: q, node: n})
	return q
}

// Connect links the next output pad of from to input pad of to. If to
// has an input queue, messages are queued, otherwise to is called
// synchronously. Returns the index of the output pad.
func (g *Graph) Connect(from, to *Node, pad int) int {
	var s Sender = direct{to: to, pad: pad}
	if to.input != nil {
		s = queued{q: to.input, pad: pad}
	}
	from.outputs = append(from.outputs, output{Sender: s, to: to, pad: pad})
	to.inputs++
	return len(from.outputs) - 1
}

// Prepare checks that graph has no cycles and computes the contexts
// reachable from every node.
func (g *Graph) Prepare() error {
	const (
		visiting = 1
		done     = 2
	)
	state := make(map[*Node]int, len(g.nodes))
	var visit func(n *Node) error
	visit = func(n *Node) error {
		switch state[n] {
		case visiting:
			return fmt.Errorf("%w: through %q", ErrCycle, n.Name)
		case done:
			return nil
		}
		state[n] = visiting
		n.reach = map[mutable.Context]struct{}{n.Context: {}}
		for _, o := range n.outputs {
			if err := visit(o.to); err != nil {
				return err
			}
			for c := range o.to.reach {
				n.reach[c] = struct{}{}
			}
		}
		state[n] = done
		return nil
	}
	for _, n := range g.nodes {
		if err := visit(n); err != nil {
			return err
		}
	}
	return nil
}

// Reset discards queued messages and resets handlers state. It must not
// be called while graph is running.
func (g *Graph) Reset() {
	for _, n := range g.nodes {
		if n.input != nil {
			n.input.Reset()
		}
		if r, ok := n.handler.(Resetter); ok {
			r.Reset()
		}
	}
}

// Run starts all workers and blocks until context is done or any worker
// fails. The first failure is returned.
func (g *Graph) Run(ctx context.Context) error {
	eg, ctx := errgroup.WithContext(ctx)
	for _, w := range g.workers {
		w := w
		eg.Go(func() error {
			return run(ctx, w)
		})
	}
	return eg.Wait()
}
