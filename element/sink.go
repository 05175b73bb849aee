package element

import (
	"context"
	"sync"
	"sync/atomic"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type (
	// CallbackFunc receives data delivered to the sink. Data must not be
	// modified and must be cloned if retained after return. Callbacks run
	// on a goroutine of their own, so they may pause, stop or close the
	// pipeline. Stopping pipeline doesn't wait for running callbacks.
	CallbackFunc func(d *tensor.Data)

	// CallbackID identifies registered callback.
	CallbackID uint64

	callback struct {
		id CallbackID
		fn CallbackFunc
	}
)

type sinkConfig struct {
	Sync        bool   `mapstructure:"sync"`
	Async       bool   `mapstructure:"async"`
	EmitSignal  bool   `mapstructure:"emit-signal"`
	EmitSignals bool   `mapstructure:"emit-signals"`
	SignalRate  uint   `mapstructure:"signal-rate"`
	Silent      bool   `mapstructure:"silent"`
	QoS         bool   `mapstructure:"qos"`
	MaxLateness int64  `mapstructure:"max-lateness"`
	Location    string `mapstructure:"location"`
}

func defaultSinkConfig() sinkConfig {
	return sinkConfig{
		Async:       true,
		EmitSignal:  true,
		EmitSignals: true,
		Silent:      true,
		MaxLateness: -1,
	}
}

// AppSink delivers data to registered callbacks in registration order.
// Callbacks are stored copy-on-write, so registration doesn't block
// delivery.
type AppSink struct {
	// OnEOS is called when end of stream reaches the sink. It must be
	// set before pipeline starts.
	OnEOS func()

	mu        sync.Mutex
	nextID    CallbackID
	callbacks atomic.Pointer[[]callback]
	received  atomic.Uint64
	emit      bool
}

func newSink(c *sinkConfig) (*Element, error) {
	return &Element{
		Handler: &AppSink{emit: c.EmitSignal && c.EmitSignals},
		Inputs:  singleInput,
	}, nil
}

// Register adds callback and returns its id.
func (s *AppSink) Register(fn CallbackFunc) CallbackID {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	var cbs []callback
	if p := s.callbacks.Load(); p != nil {
		cbs = append(cbs, *p...)
	}
	cbs = append(cbs, callback{id: s.nextID, fn: fn})
	s.callbacks.Store(&cbs)
	return s.nextID
}

// Unregister removes callback. Returns false if callback is not
// registered.
func (s *AppSink) Unregister(id CallbackID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	p := s.callbacks.Load()
	if p == nil {
		return false
	}
	for i, cb := range *p {
		if cb.id == id {
			cbs := make([]callback, 0, len(*p)-1)
			cbs = append(cbs, (*p)[:i]...)
			cbs = append(cbs, (*p)[i+1:]...)
			s.callbacks.Store(&cbs)
			return true
		}
	}
	return false
}

// Callbacks returns number of registered callbacks.
func (s *AppSink) Callbacks() int {
	if p := s.callbacks.Load(); p != nil {
		return len(*p)
	}
	return 0
}

// Received returns number of buffers that reached the sink.
func (s *AppSink) Received() uint64 {
	return s.received.Load()
}

// Handle invokes callbacks unless pipeline is stopping. Next data is
// handled after callbacks return or context is done.
func (s *AppSink) Handle(ctx context.Context, _ int, d *tensor.Data, _ runtime.Emitter) error {
	if ctx.Err() != nil {
		return nil
	}
	s.received.Add(1)
	if !s.emit {
		return nil
	}
	p := s.callbacks.Load()
	if p == nil || len(*p) == 0 {
		return nil
	}
	done := make(chan struct{})
	go func(cbs []callback) {
		defer close(done)
		for _, cb := range cbs {
			if ctx.Err() != nil {
				return
			}
			cb.fn(d)
		}
	}(*p)
	select {
	case <-done:
	case <-ctx.Done():
	}
	return nil
}

func (s *AppSink) EOS(context.Context, int, runtime.EOSEmitter) error {
	if s.OnEOS != nil {
		s.OnEOS()
	}
	return nil
}
