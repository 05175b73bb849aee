// Package mock provides mocks for pipeline components and allows to execute integration tests.
package mock

import (
	"sync"
	"time"

	"pipelined.dev/tensorpipe/element"
	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/tensor"
)

// counter counts buffers and bytes.
type counter struct {
	mu      sync.Mutex
	buffers int
	bytes   int
}

func (c *counter) advance(d *tensor.Data) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buffers++
	c.bytes += d.Size()
}

// Count returns number of buffers and bytes.
func (c *counter) Count() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.buffers, c.bytes
}

// Sink records data delivered to sink callback.
type Sink struct {
	counter
	// Clone makes sink keep copies of data instead of references.
	Clone bool
	// OnCall is called with every data after it's recorded.
	OnCall func(*tensor.Data)

	received []*tensor.Data
	notify   chan struct{}
	once     sync.Once
}

func (m *Sink) init() {
	m.once.Do(func() {
		m.notify = make(chan struct{}, 1)
	})
}

// Callback returns the function to register as sink callback.
func (m *Sink) Callback() element.CallbackFunc {
	m.init()
	return func(d *tensor.Data) {
		if m.Clone {
			d = d.Clone()
		}
		m.mu.Lock()
		m.buffers++
		m.bytes += d.Size()
		m.received = append(m.received, d)
		m.mu.Unlock()
		select {
		case m.notify <- struct{}{}:
		default:
		}
		if m.OnCall != nil {
			m.OnCall(d)
		}
	}
}

// Received returns recorded data in order of arrival.
func (m *Sink) Received() []*tensor.Data {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]*tensor.Data(nil), m.received...)
}

// WaitFor blocks until sink recorded n buffers or timeout expired.
// Returns false on timeout.
func (m *Sink) WaitFor(n int, timeout time.Duration) bool {
	m.init()
	t := time.NewTimer(timeout)
	defer t.Stop()
	for {
		if buffers, _ := m.Count(); buffers >= n {
			return true
		}
		select {
		case <-m.notify:
		case <-t.C:
			buffers, _ := m.Count()
			return buffers >= n
		}
	}
}

// Filter is a custom filter that copies input to output, unless Fn is
// provided.
type Filter struct {
	counter
	Name string
	In   tensor.Infos
	Out  tensor.Infos
	// Fn replaces the default copy.
	Fn filter.Func
	// Delay is applied before every invocation.
	Delay       time.Duration
	ErrorOnCall error
}

// Register registers the filter with custom-easy framework.
func (m *Filter) Register() (*filter.Custom, error) {
	out := m.Out
	if out == nil {
		out = m.In
	}
	return filter.Register(m.Name, m.In, out, m.invoke)
}

func (m *Filter) invoke(in *tensor.Data) (*tensor.Data, error) {
	time.Sleep(m.Delay)
	m.advance(in)
	if m.ErrorOnCall != nil {
		return nil, m.ErrorOnCall
	}
	if m.Fn != nil {
		return m.Fn(in)
	}
	return in.Clone(), nil
}

// Data returns data of uint8 tensors, one tensor for each slice.
func Data(tensors ...[]byte) *tensor.Data {
	infos := make(tensor.Infos, len(tensors))
	for i := range tensors {
		infos[i] = tensor.Info{Type: tensor.Uint8, Dimension: tensor.Dimension{uint32(len(tensors[i]))}}
	}
	d, err := tensor.Wrap(infos, tensors...)
	if err != nil {
		panic(err)
	}
	return d
}

// Bytes returns concatenated tensors of data.
func Bytes(d *tensor.Data) []byte {
	var b []byte
	for i := 0; i < d.Count(); i++ {
		t, _ := d.Tensor(i)
		b = append(b, t...)
	}
	return b
}
