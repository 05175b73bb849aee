// Package runtime executes element graphs. Every queue has a worker
// goroutine that pops messages and drives the synchronous chain of
// nodes downstream of it until the next queue.
package runtime

import (
	"context"

	"pipelined.dev/tensorpipe/mutable"
	"pipelined.dev/tensorpipe/tensor"
)

type (
	// Message is a main structure for pipe transport. It carries either
	// data, mutations or end of stream.
	Message struct {
		Data              *tensor.Data
		mutable.Mutations // Mutators for pipe.
		EOS               bool
		Pad               int // Input pad of the receiving node.
	}

	// Sender delivers messages to the input pad of a node.
	Sender interface {
		Send(context.Context, Message) error
	}

	// direct calls the receiving node on the sender goroutine.
	direct struct {
		to  *Node
		pad int
	}

	// queued puts messages into the input queue of the receiving node.
	queued struct {
		q   *Queue
		pad int
	}
)

func (l direct) Send(ctx context.Context, m Message) error {
	m.Pad = l.pad
	return l.to.Receive(ctx, m)
}

func (l queued) Send(ctx context.Context, m Message) error {
	m.Pad = l.pad
	return l.q.Push(ctx, m)
}
