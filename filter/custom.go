// Package filter provides the process-wide registry of custom filters
// and the inference frameworks that tensor_filter elements resolve
// models with.
package filter

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"pipelined.dev/tensorpipe/tensor"
)

var (
	// ErrNameAlreadyRegistered is returned when custom filter name is in use.
	ErrNameAlreadyRegistered = errors.New("name already registered")
	// ErrNotRegistered is returned when custom filter or framework is absent.
	ErrNotRegistered = errors.New("not registered")
	// ErrInUse is returned when custom filter is referenced by a live
	// pipeline.
	ErrInUse = errors.New("in use")
)

// Func transforms input data into output data. Input always matches the
// registered input infos, output must match the registered output infos.
// Func must not retain input after return.
type Func func(in *tensor.Data) (*tensor.Data, error)

// Custom is a registered custom filter.
type Custom struct {
	name string
	in   tensor.Infos
	out  tensor.Infos
	fn   Func
	refs int
}

var customs = struct {
	sync.RWMutex
	m map[string]*Custom
}{
	m: make(map[string]*Custom),
}

// Register adds custom filter with provided name and contract.
func Register(name string, in, out tensor.Infos, fn Func) (*Custom, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: empty custom filter name", tensor.ErrInvalidDescriptor)
	}
	if fn == nil {
		return nil, fmt.Errorf("custom filter %q: nil function", name)
	}
	if err := in.Validate(); err != nil {
		return nil, fmt.Errorf("custom filter %q input: %w", name, err)
	}
	if err := out.Validate(); err != nil {
		return nil, fmt.Errorf("custom filter %q output: %w", name, err)
	}
	customs.Lock()
	defer customs.Unlock()
	if _, ok := customs.m[name]; ok {
		return nil, fmt.Errorf("custom filter %q: %w", name, ErrNameAlreadyRegistered)
	}
	c := Custom{
		name: name,
		in:   in.Clone(),
		out:  out.Clone(),
		fn:   fn,
	}
	customs.m[name] = &c
	return &c, nil
}

// Unregister removes custom filter. It fails with ErrInUse while any
// live pipeline references the filter.
func Unregister(name string) error {
	customs.Lock()
	defer customs.Unlock()
	return unregister(name, nil)
}

func unregister(name string, expected *Custom) error {
	c, ok := customs.m[name]
	if !ok || (expected != nil && c != expected) {
		return fmt.Errorf("custom filter %q: %w", name, ErrNotRegistered)
	}
	if c.refs > 0 {
		return fmt.Errorf("custom filter %q referenced %d times: %w", name, c.refs, ErrInUse)
	}
	delete(customs.m, name)
	return nil
}

// Registered returns sorted names of registered custom filters.
func Registered() []string {
	customs.RLock()
	defer customs.RUnlock()
	names := make([]string, 0, len(customs.m))
	for name := range customs.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// acquire returns registered filter and increments its references.
func acquire(name string) (*Custom, error) {
	customs.Lock()
	defer customs.Unlock()
	c, ok := customs.m[name]
	if !ok {
		return nil, fmt.Errorf("custom filter %q: %w", name, ErrNotRegistered)
	}
	c.refs++
	return c, nil
}

func release(c *Custom) {
	customs.Lock()
	defer customs.Unlock()
	if c.refs > 0 {
		c.refs--
	}
}

// Close unregisters the filter.
func (c *Custom) Close() error {
	customs.Lock()
	defer customs.Unlock()
	return unregister(c.name, c)
}

// Name returns the registered name.
func (c *Custom) Name() string {
	return c.name
}

// Input returns the registered input infos.
func (c *Custom) Input() tensor.Infos {
	return c.in
}

// Output returns the registered output infos.
func (c *Custom) Output() tensor.Infos {
	return c.out
}

// References returns the number of live references.
func (c *Custom) References() int {
	customs.RLock()
	defer customs.RUnlock()
	return c.refs
}
