package runtime

import (
	"context"
	"sync"

	"pipelined.dev/tensorpipe/mutable"
)

// Leaky defines what queue does with data when it's full.
type Leaky int

const (
	// NoLeak blocks the sender until there is space.
	NoLeak Leaky = iota
	// LeakUpstream drops new data.
	LeakUpstream
	// LeakDownstream drops the oldest queued data.
	LeakDownstream
)

// Queue is a bounded FIFO of messages. Capacity limits only data
// messages: mutations and end of stream are always accepted, so control
// never deadlocks on a full queue and is never dropped.
type Queue struct {
	size     int
	leaky    Leaky
	onDrop   func()
	notEmpty chan struct{}
	notFull  chan struct{}

	mu    sync.Mutex
	items []Message
	data  int
}

// NewQueue creates a queue with provided capacity of data messages.
// Capacity below one is set to one.
func NewQueue(size int, leaky Leaky) *Queue {
	if size < 1 {
		size = 1
	}
	return &Queue{
		size:     size,
		leaky:    leaky,
		notEmpty: make(chan struct{}, 1),
		notFull:  make(chan struct{}, 1),
	}
}

// Push appends the message. Data blocks on the full queue unless the
// queue is leaky.
func (q *Queue) Push(ctx context.Context, m Message) error {
	for {
		q.mu.Lock()
		if m.Data == nil || q.data < q.size {
			q.append(m)
			q.mu.Unlock()
			return nil
		}
		switch q.leaky {
		case LeakUpstream:
			q.mu.Unlock()
			q.dropped()
			return nil
		case LeakDownstream:
			q.removeOldestData()
			q.append(m)
			q.mu.Unlock()
			q.dropped()
			return nil
		}
		q.mu.Unlock()

		select {
		case <-q.notFull:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// PushMutations puts mutations to the queue in order with data.
func (q *Queue) PushMutations(ctx context.Context, ms mutable.Mutations) error {
	return q.Push(ctx, Message{Mutations: ms})
}

// Pop removes the oldest message. It blocks until the message is
// available or context is done.
func (q *Queue) Pop(ctx context.Context) (Message, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			m := q.items[0]
			q.items[0] = Message{}
			q.items = q.items[1:]
			if m.Data != nil {
				q.data--
				signal(q.notFull)
			}
			q.mu.Unlock()
			return m, nil
		}
		q.mu.Unlock()

		select {
		case <-q.notEmpty:
		case <-ctx.Done():
			return Message{}, ctx.Err()
		}
	}
}

// Len returns number of queued messages.
func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Reset discards queued data. Queued mutations are applied, so control
// requests made before the stop are not lost.
func (q *Queue) Reset() {
	q.mu.Lock()
	defer q.mu.Unlock()
	for _, m := range q.items {
		m.Mutations.Apply()
	}
	q.items = nil
	q.data = 0
	select {
	case <-q.notEmpty:
	default:
	}
	signal(q.notFull)
}

func (q *Queue) append(m Message) {
	q.items = append(q.items, m)
	if m.Data != nil {
		q.data++
	}
	signal(q.notEmpty)
}

func (q *Queue) removeOldestData() {
	for i := range q.items {
		if q.items[i].Data != nil {
			q.items = append(q.items[:i], q.items[i+1:]...)
			q.data--
			return
		}
	}
}

func (q *Queue) dropped() {
	if q.onDrop != nil {
		q.onDrop()
	}
}

func signal(c chan struct{}) {
	select {
	case c <- struct{}{}:
	default:
	}
}
