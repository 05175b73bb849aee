// Package mutable provides in-band control of running elements. A
// mutation is a closure bound to the element's Context. Mutations travel
// with the message flow, so they are applied in order with the data and
// on the goroutine that owns the element.
package mutable

import (
	"sync"

	"github.com/rs/xid"
)

// Context identifies a mutable element. The zero Context is immutable.
type Context xid.ID

// Mutable returns a new unique context.
func Mutable() Context {
	return Context(xid.New())
}

// Immutable returns the zero context.
func Immutable() Context {
	return Context{}
}

// IsMutable returns true if mutations can be bound to the context.
func (c Context) IsMutable() bool {
	return !xid.ID(c).IsNil()
}

// Mutate binds fn to the context. The mutation can be delivered over
// several paths, fn is executed only once.
func (c Context) Mutate(fn func()) Mutation {
	if !c.IsMutable() {
		panic("mutate immutable context")
	}
	var once sync.Once
	return Mutation{
		Context: c,
		apply:   func() { once.Do(fn) },
	}
}

// Mutation is a closure bound to a mutable context.
type Mutation struct {
	Context
	apply func()
}

// Apply executes the mutation.
func (m Mutation) Apply() {
	m.apply()
}

// Mutations groups pending mutations by context. The order of mutations
// within a context is preserved.
type Mutations map[Context][]Mutation

// Put adds the mutation. Nil set is allocated.
func (ms Mutations) Put(m Mutation) Mutations {
	if !m.IsMutable() {
		return ms
	}
	if ms == nil {
		ms = make(Mutations)
	}
	ms[m.Context] = append(ms[m.Context], m)
	return ms
}

// ApplyTo executes and removes mutations of the context.
func (ms Mutations) ApplyTo(c Context) {
	for _, m := range ms[c] {
		m.Apply()
	}
	delete(ms, c)
}

// Apply executes and removes every mutation.
func (ms Mutations) Apply() {
	for c := range ms {
		ms.ApplyTo(c)
	}
}

// Filter returns a new set with mutations of contexts accepted by keep.
// The receiver is not modified, so the result can be handed over to
// another goroutine.
func (ms Mutations) Filter(keep func(Context) bool) Mutations {
	var f Mutations
	for c, s := range ms {
		if !keep(c) {
			continue
		}
		if f == nil {
			f = make(Mutations)
		}
		f[c] = append([]Mutation(nil), s...)
	}
	return f
}
