package runtime

import (
	"context"
	"io"
)

// Executor executes a single step of the graph. io.EOF is returned when
// execution is done.
type Executor interface {
	Execute(context.Context) error
}

// worker pops messages of the queue and passes them to the node.
type worker struct {
	queue *Queue
	node  *Node
}

func run(ctx context.Context, e Executor) error {
	var err error
	for err == nil {
		err = e.Execute(ctx)
	}
	if err == io.EOF {
		return nil
	}
	return err
}

// Execute does a single iteration of the worker. io.EOF is returned if
// context is done.
func (w *worker) Execute(ctx context.Context) error {
	m, err := w.queue.Pop(ctx)
	if err != nil || ctx.Err() != nil {
		return io.EOF
	}
	if err := w.node.Receive(ctx, m); err != nil {
		if ctx.Err() != nil {
			return io.EOF
		}
		return err
	}
	return nil
}
