package pipe

import (
	"pipelined.dev/tensorpipe/log"
	"pipelined.dev/tensorpipe/metric"
)

// Option provides a way to set functional parameters to pipeline.
type Option func(*Pipeline)

// WithLogger sets logger to pipeline. If this option is not provided,
// log.GetLogger is used.
func WithLogger(l log.Logger) Option {
	return func(p *Pipeline) {
		p.log = l
	}
}

// WithMetrics sets metrics the pipeline elements report to. If this
// option is not provided, metric.Default is used. Nil disables metrics.
func WithMetrics(m *metric.Metrics) Option {
	return func(p *Pipeline) {
		p.metrics = m
	}
}

// WithStateCallback sets the function that is called on every state
// change.
func WithStateCallback(fn StateFunc) Option {
	return func(p *Pipeline) {
		p.onState = fn
	}
}

// WithName sets the name of the pipeline. Name is added to logs.
func WithName(name string) Option {
	return func(p *Pipeline) {
		p.name = name
	}
}
