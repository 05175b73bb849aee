package element

import (
	"context"
	"fmt"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/parse"
	"pipelined.dev/tensorpipe/tensor"
)

// Tensor media types.
const (
	MediaTensor  = "other/tensor"
	MediaTensors = "other/tensors"
)

// CapsInfos converts caps string into tensor infos. Nil infos are
// returned for tensor caps without dimension and type, meaning that any
// tensors are accepted.
func CapsInfos(s string) (tensor.Infos, error) {
	c, err := parse.ParseCaps(s)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProperty, err)
	}
	var dims, types string
	switch c.MediaType {
	case MediaTensor:
		dims, types = c.Fields["dimension"], c.Fields["type"]
	case MediaTensors:
		if f := c.Fields["format"]; f != "" && f != "static" {
			return nil, fmt.Errorf("%w: unsupported tensors format %q", ErrInvalidProperty, f)
		}
		dims, types = c.Fields["dimensions"], c.Fields["types"]
	default:
		return nil, fmt.Errorf("%w: unsupported media type %q", ErrInvalidProperty, c.MediaType)
	}
	if dims == "" && types == "" {
		return nil, nil
	}
	infos, err := tensor.ParseInfos(dims, types)
	if err != nil {
		return nil, fmt.Errorf("caps %q: %w", s, err)
	}
	if n := c.Fields["num_tensors"]; n != "" && n != fmt.Sprint(len(infos)) {
		return nil, fmt.Errorf("%w: caps %q declare %s tensors, described %d", tensor.ErrInvalidDescriptor, s, n, len(infos))
	}
	return infos, nil
}

type capsConfig struct {
	Caps string `mapstructure:"caps"`
}

// CapsFilter passes only data matching its caps.
type CapsFilter struct {
	infos tensor.Infos
}

func newCapsFilter(c *capsConfig) (*Element, error) {
	infos, err := CapsInfos(c.Caps)
	if err != nil {
		return nil, err
	}
	return &Element{
		Handler: &CapsFilter{infos: infos},
		Inputs:  singleInput,
		Outputs: singleOutput,
	}, nil
}

// Infos returns the caps infos, nil if any tensors are accepted.
func (f *CapsFilter) Infos() tensor.Infos {
	return f.infos
}

func (f *CapsFilter) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	if f.infos != nil {
		if err := d.Infos().Match(f.infos); err != nil {
			return err
		}
	}
	return emit.Emit(ctx, 0, d)
}

func (f *CapsFilter) Negotiate(_ int, infos tensor.Infos, _ int) (tensor.Infos, error) {
	if f.infos == nil {
		return infos, nil
	}
	if err := infos.Match(f.infos); err != nil {
		return nil, err
	}
	return infos, nil
}
