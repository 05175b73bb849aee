// Package single invokes a model on single tensor data without building
// a pipeline.
package single

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"pipelined.dev/tensorpipe/config"
	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/log"
	"pipelined.dev/tensorpipe/tensor"
)

var (
	// ErrTimeout is returned when invocation takes longer than timeout.
	ErrTimeout = errors.New("invoke timeout")
	// ErrClosed is returned when closed single is used.
	ErrClosed = errors.New("single is closed")
)

// Single holds an opened model. Invocations are serialized.
type Single struct {
	model filter.Model
	log   log.Logger

	sem      chan struct{}
	inflight sync.WaitGroup

	mu      sync.Mutex
	timeout time.Duration
	closed  bool
}

// Option provides a way to set functional parameters to single.
type Option func(*Single)

// WithLogger sets logger to single.
func WithLogger(l log.Logger) Option {
	return func(s *Single) {
		s.log = l
	}
}

// WithTimeout sets invocation timeout. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(s *Single) {
		s.timeout = d
	}
}

// Open opens the model with provided framework. Custom-easy models are
// referenced until single is closed. Default timeout is set with
// TENSORPIPE_INVOKE_TIMEOUT environment variable.
func Open(framework, model string, options ...Option) (*Single, error) {
	s := Single{
		sem:     make(chan struct{}, 1),
		timeout: config.InvokeTimeout(),
	}
	for _, option := range options {
		option(&s)
	}
	if s.log == nil {
		s.log = log.GetLogger()
	}
	s.log = s.log.WithFields(logrus.Fields{"framework": framework, "model": model})

	m, err := filter.Open(framework, model, nil)
	if err != nil {
		return nil, err
	}
	s.model = m
	s.log.Debug("single opened")
	return &s, nil
}

// Input returns model input infos.
func (s *Single) Input() tensor.Infos {
	return s.model.Input()
}

// Output returns model output infos.
func (s *Single) Output() tensor.Infos {
	return s.model.Output()
}

// SetTimeout changes invocation timeout. Zero means no timeout.
func (s *Single) SetTimeout(d time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeout = d
}

type result struct {
	data *tensor.Data
	err  error
}

// Invoke invokes the model. Time spent waiting for the previous
// invocation counts towards the timeout. If timeout expires, the
// invocation keeps running in the background and its result is dropped.
func (s *Single) Invoke(ctx context.Context, d *tensor.Data) (*tensor.Data, error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, ErrClosed
	}
	timeout := s.timeout
	s.inflight.Add(1)
	s.mu.Unlock()

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	select {
	case s.sem <- struct{}{}:
	case <-ctx.Done():
		s.inflight.Done()
		return nil, s.interrupted(ctx, timeout)
	}

	results := make(chan result, 1)
	go func() {
		defer s.inflight.Done()
		defer func() { <-s.sem }()
		out, err := s.model.Invoke(d)
		results <- result{data: out, err: err}
	}()
	select {
	case r := <-results:
		return r.data, r.err
	case <-ctx.Done():
		return nil, s.interrupted(ctx, timeout)
	}
}

func (s *Single) interrupted(ctx context.Context, timeout time.Duration) error {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		s.log.WithField("timeout", timeout).Warn("invoke timeout")
		return fmt.Errorf("%w: %v", ErrTimeout, timeout)
	}
	return ctx.Err()
}

// Close waits for running invocation and closes the model. Closing
// closed single does nothing.
func (s *Single) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.inflight.Wait()
	s.log.Debug("single closed")
	return s.model.Close()
}
