// Package element provides built-in element kinds that pipelines are
// built of. Every kind decodes its description properties into a typed
// configuration and constructs a handler for the runtime.
package element

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"
	"sync"

	"github.com/mitchellh/mapstructure"

	"pipelined.dev/tensorpipe/internal/runtime"
)

// ErrInvalidProperty is returned when element property is unknown or
// has invalid value.
var ErrInvalidProperty = errors.New("invalid property")

// Variant is a role of the element in the graph.
type Variant int

// Element variants.
const (
	Source Variant = iota
	Sink
	Filter
	Tee
	Valve
	OutputSelector
	Mux
	PassThroughTransform
)

var variantNames = map[Variant]string{
	Source:               "source",
	Sink:                 "sink",
	Filter:               "filter",
	Tee:                  "tee",
	Valve:                "valve",
	OutputSelector:       "output-selector",
	Mux:                  "mux",
	PassThroughTransform: "transform",
}

func (v Variant) String() string {
	return variantNames[v]
}

// Request means that element creates pads on request.
const Request = -1

// Pads is the template of element pads on one side.
type Pads struct {
	// Max is the number of pads: 0, 1 or Request.
	Max int
	// Template is the name of the pad. For request pads it has a single
	// %d verb, e.g. src_%d.
	Template string
}

// Name returns the name of n-th pad.
func (p Pads) Name(n int) string {
	if p.Max == Request {
		return fmt.Sprintf(p.Template, n)
	}
	return p.Template
}

// QueueSpec defines input queue of the element.
type QueueSpec struct {
	Size  int
	Leaky runtime.Leaky
}

// Element is a constructed element.
type Element struct {
	Kind    string
	Variant Variant
	runtime.Handler
	Inputs  Pads
	Outputs Pads
	// Queue is set for elements that own an input queue.
	Queue *QueueSpec
	close func() error
}

// Close releases resources held by the element.
func (e *Element) Close() error {
	if e.close == nil {
		return nil
	}
	return e.close()
}

var (
	singleInput   = Pads{Max: 1, Template: "sink"}
	singleOutput  = Pads{Max: 1, Template: "src"}
	requestInput  = Pads{Max: Request, Template: "sink_%d"}
	requestOutput = Pads{Max: Request, Template: "src_%d"}
)

// Factory creates element from description properties.
type Factory func(properties map[string]string) (*Element, error)

// Kind describes element kind.
type Kind struct {
	Name       string
	Variant    Variant
	Properties []string
	Factory    Factory
}

var kinds = struct {
	sync.RWMutex
	m map[string]Kind
}{
	m: make(map[string]Kind),
}

// Register adds element kind.
func Register(k Kind) error {
	kinds.Lock()
	defer kinds.Unlock()
	if _, ok := kinds.m[k.Name]; ok {
		return fmt.Errorf("element kind %q already registered", k.Name)
	}
	kinds.m[k.Name] = k
	return nil
}

// Known reports if element kind is registered.
func Known(kind string) bool {
	kinds.RLock()
	defer kinds.RUnlock()
	_, ok := kinds.m[kind]
	return ok
}

// Kinds returns registered kinds sorted by name.
func Kinds() []Kind {
	kinds.RLock()
	defer kinds.RUnlock()
	ks := make([]Kind, 0, len(kinds.m))
	for _, k := range kinds.m {
		ks = append(ks, k)
	}
	sort.Slice(ks, func(i, j int) bool {
		return ks[i].Name < ks[j].Name
	})
	return ks
}

// New creates element of provided kind. Name property must be removed
// by caller.
func New(kind string, properties map[string]string) (*Element, error) {
	kinds.RLock()
	k, ok := kinds.m[kind]
	kinds.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown element kind %q", kind)
	}
	e, err := k.Factory(properties)
	if err != nil {
		return nil, err
	}
	e.Kind = kind
	e.Variant = k.Variant
	return e, nil
}

// decode decodes properties into config struct. Numbers and booleans
// are converted from strings, unknown properties are rejected.
func decode(properties map[string]string, config any) error {
	d, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		ErrorUnused:      true,
		Result:           config,
	})
	if err != nil {
		return err
	}
	if err := d.Decode(properties); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	return nil
}

// propertyNames returns property names of config struct.
func propertyNames(config any) []string {
	t := reflect.TypeOf(config)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	names := make([]string, 0, t.NumField())
	for i := 0; i < t.NumField(); i++ {
		tag, _, _ := strings.Cut(t.Field(i).Tag.Get("mapstructure"), ",")
		if tag != "" && tag != "-" {
			names = append(names, tag)
		}
	}
	sort.Strings(names)
	return names
}

// kind is a shortcut to describe built-in kind with config type C.
func kind[C any](name string, v Variant, factory func(*C) (*Element, error), defaults func() C) Kind {
	var zero C
	return Kind{
		Name:       name,
		Variant:    v,
		Properties: propertyNames(&zero),
		Factory: func(properties map[string]string) (*Element, error) {
			c := defaults()
			if err := decode(properties, &c); err != nil {
				return nil, fmt.Errorf("%s: %w", name, err)
			}
			return factory(&c)
		},
	}
}

var builtinsOnce sync.Once

// RegisterBuiltins registers built-in element kinds. Subsequent calls do
// nothing.
func RegisterBuiltins() {
	builtinsOnce.Do(func() {
		for _, k := range builtins() {
			if err := Register(k); err != nil {
				panic(err)
			}
		}
	})
}

func builtins() []Kind {
	return []Kind{
		kind("appsrc", Source, newSource, func() sourceConfig { return sourceConfig{} }),
		kind("tensor_sink", Sink, newSink, defaultSinkConfig),
		kind("appsink", Sink, newSink, defaultSinkConfig),
		kind("fakesink", Sink, newSink, defaultSinkConfig),
		kind("tensor_filter", Filter, newFilter, func() filterConfig { return filterConfig{} }),
		kind("tee", Tee, newTee, func() teeConfig { return teeConfig{} }),
		kind("tensor_demux", Tee, newDemux, func() demuxConfig { return demuxConfig{} }),
		kind("valve", Valve, newValve, func() valveConfig { return valveConfig{} }),
		kind("output-selector", OutputSelector, newSelector, func() selectorConfig { return selectorConfig{} }),
		kind("tensor_if", OutputSelector, newCondition, defaultConditionConfig),
		kind("tensor_mux", Mux, newMux, func() muxConfig { return muxConfig{} }),
		kind("join", Mux, newJoin, func() joinConfig { return joinConfig{} }),
		kind("queue", PassThroughTransform, newQueue, defaultQueueConfig),
		kind("capsfilter", PassThroughTransform, newCapsFilter, func() capsConfig { return capsConfig{} }),
		kind("tensor_transform", PassThroughTransform, newTransform, func() transformConfig { return transformConfig{} }),
		kind("identity", PassThroughTransform, newIdentity, func() identityConfig { return identityConfig{} }),
	}
}
