// Package metric exposes per-element counters of running pipelines as
// prometheus metrics.
package metric

import (
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "tensorpipe"

// Labels of every element metric.
const (
	PipeLabel    = "pipe"
	ElementLabel = "element"
	KindLabel    = "kind"
)

// Metrics is a set of element collectors.
type Metrics struct {
	buffers *prometheus.CounterVec
	bytes   *prometheus.CounterVec
	drops   *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

var (
	defaultOnce    sync.Once
	defaultMetrics *Metrics
)

// New creates metrics and registers them with provided registerer.
func New(reg prometheus.Registerer) (*Metrics, error) {
	labels := []string{PipeLabel, ElementLabel, KindLabel}
	m := Metrics{
		buffers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "buffers_total",
			Help:      "Total number of buffers processed by element",
		}, labels),
		bytes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "bytes_total",
			Help:      "Total number of tensor bytes processed by element",
		}, labels),
		drops: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "drops_total",
			Help:      "Total number of buffers dropped by element",
		}, labels),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "process_seconds",
			Help:      "Time spent by element processing a buffer",
			Buckets:   prometheus.ExponentialBuckets(0.00001, 4, 10),
		}, labels),
	}
	var err error
	if m.buffers, err = register(reg, m.buffers); err != nil {
		return nil, err
	}
	if m.bytes, err = register(reg, m.bytes); err != nil {
		return nil, err
	}
	if m.drops, err = register(reg, m.drops); err != nil {
		return nil, err
	}
	if m.latency, err = register(reg, m.latency); err != nil {
		return nil, err
	}
	return &m, nil
}

// register returns already registered collector if there is one.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// Default returns metrics registered with default prometheus registerer.
func Default() *Metrics {
	defaultOnce.Do(func() {
		m, err := New(prometheus.DefaultRegisterer)
		if err != nil {
			panic(err)
		}
		defaultMetrics = m
	})
	return defaultMetrics
}

// Meter creates new meter for the element. Nil metrics return nil meter,
// which is valid and measures nothing.
func (m *Metrics) Meter(pipe, element, kind string) *Meter {
	if m == nil {
		return nil
	}
	l := prometheus.Labels{PipeLabel: pipe, ElementLabel: element, KindLabel: kind}
	return &Meter{
		buffers: m.buffers.With(l),
		bytes:   m.bytes.With(l),
		drops:   m.drops.With(l),
		latency: m.latency.With(l),
	}
}

// Delete removes all series of the pipeline.
func (m *Metrics) Delete(pipe string) {
	if m == nil {
		return
	}
	l := prometheus.Labels{PipeLabel: pipe}
	m.buffers.DeletePartialMatch(l)
	m.bytes.DeletePartialMatch(l)
	m.drops.DeletePartialMatch(l)
	m.latency.DeletePartialMatch(l)
}

// Meter captures counters of a single element.
type Meter struct {
	buffers prometheus.Counter
	bytes   prometheus.Counter
	drops   prometheus.Counter
	latency prometheus.Observer
}

// Measure records processed buffer of provided size. Processing started
// at provided time.
func (m *Meter) Measure(bytes int, started time.Time) {
	if m == nil {
		return
	}
	m.buffers.Inc()
	m.bytes.Add(float64(bytes))
	m.latency.Observe(time.Since(started).Seconds())
}

// Drop records dropped buffer.
func (m *Meter) Drop() {
	if m == nil {
		return
	}
	m.drops.Inc()
}
