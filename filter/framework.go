package filter

import (
	"fmt"
	"sort"
	"sync"

	"pipelined.dev/tensorpipe/tensor"
)

// CustomEasy is the framework that resolves models in the custom filter
// registry.
const CustomEasy = "custom-easy"

type (
	// Framework opens models of the inference backend.
	Framework interface {
		// Open loads the model. Properties are the element properties
		// that are not consumed by the engine itself.
		Open(model string, properties map[string]string) (Model, error)
	}

	// Model is an opened model. Invoke is called from a single goroutine
	// at a time.
	Model interface {
		Input() tensor.Infos
		Output() tensor.Infos
		Invoke(in *tensor.Data) (*tensor.Data, error)
		Close() error
	}

	// FrameworkFunc is an adapter to use functions as frameworks.
	FrameworkFunc func(model string, properties map[string]string) (Model, error)
)

// Open calls f(model, properties).
func (f FrameworkFunc) Open(model string, properties map[string]string) (Model, error) {
	return f(model, properties)
}

var frameworks = struct {
	sync.RWMutex
	m map[string]Framework
}{
	m: map[string]Framework{
		CustomEasy: FrameworkFunc(openCustom),
	},
}

// RegisterFramework makes framework available for tensor_filter elements
// and single-shot invocations.
func RegisterFramework(name string, f Framework) error {
	frameworks.Lock()
	defer frameworks.Unlock()
	if _, ok := frameworks.m[name]; ok {
		return fmt.Errorf("framework %q: %w", name, ErrNameAlreadyRegistered)
	}
	frameworks.m[name] = f
	return nil
}

// UnregisterFramework removes the framework. Opened models stay valid.
func UnregisterFramework(name string) error {
	frameworks.Lock()
	defer frameworks.Unlock()
	if _, ok := frameworks.m[name]; !ok || name == CustomEasy {
		return fmt.Errorf("framework %q: %w", name, ErrNotRegistered)
	}
	delete(frameworks.m, name)
	return nil
}

// Frameworks returns sorted names of registered frameworks.
func Frameworks() []string {
	frameworks.RLock()
	defer frameworks.RUnlock()
	names := make([]string, 0, len(frameworks.m))
	for name := range frameworks.m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens the model with provided framework. Returned model validates
// input and output of every invocation against the model infos.
func Open(framework, model string, properties map[string]string) (Model, error) {
	frameworks.RLock()
	f, ok := frameworks.m[framework]
	frameworks.RUnlock()
	if !ok {
		return nil, fmt.Errorf("framework %q: %w", framework, ErrNotRegistered)
	}
	m, err := f.Open(model, properties)
	if err != nil {
		return nil, fmt.Errorf("framework %q model %q: %w", framework, model, err)
	}
	in, out := m.Input(), m.Output()
	if err := in.Validate(); err != nil {
		m.Close()
		return nil, fmt.Errorf("model %q input: %w", model, err)
	}
	if err := out.Validate(); err != nil {
		m.Close()
		return nil, fmt.Errorf("model %q output: %w", model, err)
	}
	return &checked{Model: m, name: model}, nil
}

// checked enforces model contract on every invocation.
type checked struct {
	Model
	name string
	once sync.Once
	err  error
}

func (c *checked) Invoke(in *tensor.Data) (*tensor.Data, error) {
	if err := in.Infos().Match(c.Input()); err != nil {
		return nil, fmt.Errorf("model %q input: %w", c.name, err)
	}
	out, err := c.Model.Invoke(in)
	if err != nil {
		return nil, fmt.Errorf("model %q: %w", c.name, err)
	}
	if out == nil {
		return nil, fmt.Errorf("model %q returned no output: %w", c.name, tensor.ErrShapeMismatch)
	}
	if err := out.Infos().Match(c.Output()); err != nil {
		return nil, fmt.Errorf("model %q output: %w", c.name, err)
	}
	return out, nil
}

// Close closes the model once.
func (c *checked) Close() error {
	c.once.Do(func() {
		c.err = c.Model.Close()
	})
	return c.err
}

// customModel is the model of custom-easy framework. It holds a
// reference to the registered filter until closed.
type customModel struct {
	*Custom
}

func openCustom(model string, _ map[string]string) (Model, error) {
	c, err := acquire(model)
	if err != nil {
		return nil, err
	}
	return customModel{Custom: c}, nil
}

func (m customModel) Invoke(in *tensor.Data) (*tensor.Data, error) {
	return m.fn(in)
}

func (m customModel) Close() error {
	release(m.Custom)
	return nil
}
