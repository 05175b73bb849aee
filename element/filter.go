package element

import (
	"context"
	"fmt"
	"strings"

	"pipelined.dev/tensorpipe/filter"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type filterConfig struct {
	Framework   string `mapstructure:"framework"`
	Model       string `mapstructure:"model"`
	Input       string `mapstructure:"input"`
	InputType   string `mapstructure:"inputtype"`
	InputName   string `mapstructure:"inputname"`
	Output      string `mapstructure:"output"`
	OutputType  string `mapstructure:"outputtype"`
	OutputName  string `mapstructure:"outputname"`
	Custom      string `mapstructure:"custom"`
	Accelerator string `mapstructure:"accelerator"`
	Silent      bool   `mapstructure:"silent"`
	Latency     int    `mapstructure:"latency"`
	Throughput  int    `mapstructure:"throughput"`
}

// TensorFilter invokes the model for every buffer.
type TensorFilter struct {
	model filter.Model
}

func newFilter(c *filterConfig) (*Element, error) {
	if c.Framework == "" || c.Model == "" {
		return nil, fmt.Errorf("%w: tensor_filter requires framework and model", ErrInvalidProperty)
	}
	// properties not consumed here are passed to the framework
	props := map[string]string{}
	if c.Custom != "" {
		props["custom"] = c.Custom
	}
	if c.Accelerator != "" {
		props["accelerator"] = c.Accelerator
	}
	m, err := filter.Open(c.Framework, c.Model, props)
	if err != nil {
		return nil, err
	}
	if err := declared(m.Input(), c.Input, c.InputType); err != nil {
		m.Close()
		return nil, fmt.Errorf("tensor_filter %q input: %w", c.Model, err)
	}
	if err := declared(m.Output(), c.Output, c.OutputType); err != nil {
		m.Close()
		return nil, fmt.Errorf("tensor_filter %q output: %w", c.Model, err)
	}
	return &Element{
		Handler: &TensorFilter{model: m},
		Inputs:  singleInput,
		Outputs: singleOutput,
		close:   m.Close,
	}, nil
}

// declared checks infos declared with properties against model infos.
// Dimensions and types can be declared independently.
func declared(model tensor.Infos, dims, types string) error {
	if dims == "" && types == "" {
		return nil
	}
	if dims == "" {
		dims = joinDimensions(model)
	}
	if types == "" {
		types = joinTypes(model)
	}
	infos, err := tensor.ParseInfos(dims, types)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	return infos.Match(model)
}

func joinDimensions(is tensor.Infos) string {
	s := make([]string, len(is))
	for n, i := range is {
		s[n] = i.Dimension.String()
	}
	return strings.Join(s, ",")
}

func joinTypes(is tensor.Infos) string {
	s := make([]string, len(is))
	for n, i := range is {
		s[n] = i.Type.String()
	}
	return strings.Join(s, ",")
}

// Model returns the opened model.
func (f *TensorFilter) Model() filter.Model {
	return f.model
}

func (f *TensorFilter) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	out, err := f.model.Invoke(d)
	if err != nil {
		return err
	}
	return emit.Emit(ctx, 0, out)
}

func (f *TensorFilter) Negotiate(_ int, infos tensor.Infos, _ int) (tensor.Infos, error) {
	if err := infos.Match(f.model.Input()); err != nil {
		return nil, err
	}
	return f.model.Output(), nil
}
