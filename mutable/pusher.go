package mutable

import (
	"context"
	"errors"
)

// ErrUnknownContext is returned when mutation has no destination.
var ErrUnknownContext = errors.New("unknown mutable context")

type (
	// Pusher allows to push mutations to mutable contexts. A context can
	// be reachable through several destinations, then every destination
	// gets its own copy of mutations.
	Pusher struct {
		destinations map[Context][]Destination
		mutations    map[Destination]Mutations
	}

	// Destination accepts mutations, e.g. the input queue of the source
	// that feeds the mutable element.
	Destination interface {
		PushMutations(context.Context, Mutations) error
	}
)

// NewPusher creates new pusher.
func NewPusher() Pusher {
	return Pusher{
		destinations: make(map[Context][]Destination),
		mutations:    make(map[Destination]Mutations),
	}
}

// AddDestination adds new mapping of mutable context to destination.
func (p Pusher) AddDestination(ctx Context, d Destination) {
	for _, existing := range p.destinations[ctx] {
		if existing == d {
			return
		}
	}
	p.destinations[ctx] = append(p.destinations[ctx], d)
}

// Destinations returns number of destinations of the context.
func (p Pusher) Destinations(ctx Context) int {
	return len(p.destinations[ctx])
}

// Put mutations to the pusher. Returns ErrUnknownContext if any
// mutation context has no destination, nothing is put in this case.
func (p Pusher) Put(mutations ...Mutation) error {
	for _, m := range mutations {
		if _, ok := p.destinations[m.Context]; !ok {
			return ErrUnknownContext
		}
	}
	for _, m := range mutations {
		for _, d := range p.destinations[m.Context] {
			p.mutations[d] = p.mutations[d].Put(m)
		}
	}
	return nil
}

// Push mutations to the destinations. Mutations that were not pushed
// because of error stay in the pusher.
func (p Pusher) Push(ctx context.Context) error {
	for d, ms := range p.mutations {
		if ms == nil {
			continue
		}
		if err := d.PushMutations(ctx, ms); err != nil {
			return err
		}
		delete(p.mutations, d)
	}
	return nil
}
