package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipelined.dev/tensorpipe/metric"
	"pipelined.dev/tensorpipe/mutable"
	"pipelined.dev/tensorpipe/tensor"
)

type (
	// Handler processes data of a single element.
	Handler interface {
		// Handle is called with data that arrived on input pad in.
		// Results are passed to emit.
		Handle(ctx context.Context, in int, d *tensor.Data, emit Emitter) error
	}

	// Emitter sends handler results downstream.
	Emitter interface {
		// Emit sends data to output pad out.
		Emit(ctx context.Context, out int, d *tensor.Data) error
		// Outputs returns number of output pads.
		Outputs() int
		// Drop records dropped data.
		Drop()
	}

	// EOSHandler is implemented by handlers that react on end of stream.
	// Other handlers forward it to every output.
	EOSHandler interface {
		EOS(ctx context.Context, in int, emit EOSEmitter) error
	}

	// EOSEmitter sends end of stream downstream.
	EOSEmitter interface {
		EmitEOS(ctx context.Context) error
	}

	// Negotiator is implemented by handlers that change or validate
	// infos. Returned nil infos mean that output can't be determined
	// statically. Handlers that don't implement it pass infos through.
	Negotiator interface {
		Negotiate(in int, infos tensor.Infos, out int) (tensor.Infos, error)
	}

	// Reverter is implemented by negotiators that keep negotiated infos.
	// Revert is called when infos of input pad in were rejected
	// downstream.
	Reverter interface {
		Revert(in int)
	}

	// Resetter is implemented by handlers that keep state between
	// buffers. Reset is called before every run.
	Resetter interface {
		Reset()
	}
)

// ElementError is an error of the named element.
type ElementError struct {
	Element string
	Err     error
}

func (e *ElementError) Error() string {
	return fmt.Sprintf("element %q: %v", e.Element, e.Err)
}

// Unwrap returns the element error.
func (e *ElementError) Unwrap() error {
	return e.Err
}

// Node is an element in the graph.
type Node struct {
	mutable.Context
	Name    string
	Kind    string
	handler Handler
	meter   *metric.Meter
	input   *Queue
	inputs  int
	outputs []output
	reach   map[mutable.Context]struct{}
}

type output struct {
	Sender
	to  *Node
	pad int
}

// NewNode creates a graph node. Meter can be nil.
func NewNode(name, kind string, h Handler, meter *metric.Meter) *Node {
	return &Node{
		Context: mutable.Mutable(),
		Name:    name,
		Kind:    kind,
		handler: h,
		meter:   meter,
	}
}

// Handler returns the node handler.
func (n *Node) Handler() Handler {
	return n.handler
}

// Input returns the input queue of the node, if there is one.
func (n *Node) Input() *Queue {
	return n.input
}

// Inputs returns number of connected input pads.
func (n *Node) Inputs() int {
	return n.inputs
}

// Outputs returns number of connected output pads.
func (n *Node) Outputs() int {
	return len(n.outputs)
}

// Reaches reports if node or any node downstream has provided context.
// Valid after graph is prepared.
func (n *Node) Reaches(c mutable.Context) bool {
	_, ok := n.reach[c]
	return ok
}

// Receive handles the message that arrived on m.Pad.
func (n *Node) Receive(ctx context.Context, m Message) error {
	switch {
	case m.Mutations != nil:
		m.Mutations.ApplyTo(n.Context)
		return n.forward(ctx, m.Mutations)
	case m.EOS:
		if h, ok := n.handler.(EOSHandler); ok {
			return n.wrap(h.EOS(ctx, m.Pad, n))
		}
		return n.EmitEOS(ctx)
	case m.Data != nil:
		started := time.Now()
		if err := n.handler.Handle(ctx, m.Pad, m.Data, n); err != nil {
			return n.wrap(err)
		}
		n.meter.Measure(m.Data.Size(), started)
	}
	return nil
}

// Emit sends data to the output pad.
func (n *Node) Emit(ctx context.Context, out int, d *tensor.Data) error {
	if out < 0 || out >= len(n.outputs) {
		return n.wrap(fmt.Errorf("emit to output %d of %d", out, len(n.outputs)))
	}
	return n.outputs[out].Send(ctx, Message{Data: d})
}

// EmitEOS sends end of stream to every output.
func (n *Node) EmitEOS(ctx context.Context) error {
	for _, o := range n.outputs {
		if err := o.Send(ctx, Message{EOS: true}); err != nil {
			return err
		}
	}
	return nil
}

// Drop records dropped data.
func (n *Node) Drop() {
	n.meter.Drop()
}

// forward sends mutations to outputs that reach their contexts. Every
// output gets its own copy.
func (n *Node) forward(ctx context.Context, ms mutable.Mutations) error {
	if len(ms) == 0 {
		return nil
	}
	for _, o := range n.outputs {
		f := ms.Filter(o.to.Reaches)
		if len(f) == 0 {
			continue
		}
		if err := o.Send(ctx, Message{Mutations: f}); err != nil {
			return err
		}
	}
	return nil
}

// Negotiate validates that infos arriving on input pad in are accepted
// by the node and every node downstream.
func (n *Node) Negotiate(in int, infos tensor.Infos) error {
	for i, o := range n.outputs {
		out := infos
		if ng, ok := n.handler.(Negotiator); ok {
			var err error
			if out, err = ng.Negotiate(in, infos, i); err != nil {
				return n.wrap(err)
			}
		}
		if out == nil {
			continue
		}
		if err := o.to.Negotiate(o.pad, out); err != nil {
			if r, ok := n.handler.(Reverter); ok {
				r.Revert(in)
			}
			return err
		}
	}
	if len(n.outputs) == 0 {
		if ng, ok := n.handler.(Negotiator); ok {
			if _, err := ng.Negotiate(in, infos, -1); err != nil {
				return n.wrap(err)
			}
		}
	}
	return nil
}

// wrap attributes the error to the node unless it's already attributed
// to some element downstream.
func (n *Node) wrap(err error) error {
	if err == nil {
		return nil
	}
	var ee *ElementError
	if errors.As(err, &ee) || errors.Is(err, context.Canceled) {
		return err
	}
	return &ElementError{Element: n.Name, Err: err}
}
