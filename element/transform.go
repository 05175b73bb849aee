package element

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

// Transform modes.
const (
	ModeTypecast   = "typecast"
	ModeArithmetic = "arithmetic"
	ModeClamp      = "clamp"
)

type transformConfig struct {
	Mode         string `mapstructure:"mode"`
	Option       string `mapstructure:"option"`
	Apply        string `mapstructure:"apply"`
	Acceleration bool   `mapstructure:"acceleration"`
	QoS          bool   `mapstructure:"qos"`
	Silent       bool   `mapstructure:"silent"`
}

type operation struct {
	op    string // add, mul or div
	value float64
}

// Transform converts element values of tensors. Elements are processed
// as float64 and stored with saturation into the output type.
type Transform struct {
	mode     string
	cast     tensor.Type // zero keeps input type
	ops      []operation
	min, max float64
	apply    map[int]bool // nil applies to all tensors
}

func newTransform(c *transformConfig) (*Element, error) {
	t := Transform{mode: c.Mode}
	var err error
	switch c.Mode {
	case ModeTypecast:
		if t.cast, err = tensor.ParseType(c.Option); err != nil {
			return nil, fmt.Errorf("%w: typecast option: %v", ErrInvalidProperty, err)
		}
	case ModeArithmetic:
		err = t.parseArithmetic(c.Option)
	case ModeClamp:
		err = t.parseClamp(c.Option)
	default:
		return nil, fmt.Errorf("%w: unsupported transform mode %q", ErrInvalidProperty, c.Mode)
	}
	if err != nil {
		return nil, err
	}
	if c.Apply != "" {
		t.apply = map[int]bool{}
		for _, s := range strings.Split(c.Apply, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || i < 0 {
				return nil, fmt.Errorf("%w: apply %q", ErrInvalidProperty, c.Apply)
			}
			t.apply[i] = true
		}
	}
	return &Element{
		Handler: &t,
		Inputs:  singleInput,
		Outputs: singleOutput,
	}, nil
}

// parseArithmetic parses option like typecast:float32,add:-127,div:127.5.
func (t *Transform) parseArithmetic(option string) error {
	if option == "" {
		return fmt.Errorf("%w: arithmetic requires option", ErrInvalidProperty)
	}
	for _, part := range strings.Split(option, ",") {
		op, arg, ok := strings.Cut(strings.TrimSpace(part), ":")
		if !ok {
			return fmt.Errorf("%w: arithmetic operation %q", ErrInvalidProperty, part)
		}
		if op == ModeTypecast {
			typ, err := tensor.ParseType(arg)
			if err != nil {
				return fmt.Errorf("%w: %v", ErrInvalidProperty, err)
			}
			t.cast = typ
			continue
		}
		v, err := strconv.ParseFloat(arg, 64)
		if err != nil {
			return fmt.Errorf("%w: arithmetic operand %q", ErrInvalidProperty, arg)
		}
		switch op {
		case "add", "mul":
		case "div":
			if v == 0 {
				return fmt.Errorf("%w: division by zero", ErrInvalidProperty)
			}
		default:
			return fmt.Errorf("%w: arithmetic operation %q", ErrInvalidProperty, op)
		}
		t.ops = append(t.ops, operation{op: op, value: v})
	}
	return nil
}

// parseClamp parses option like 0:255.
func (t *Transform) parseClamp(option string) error {
	lo, hi, ok := strings.Cut(option, ":")
	if !ok {
		return fmt.Errorf("%w: clamp option %q", ErrInvalidProperty, option)
	}
	var err1, err2 error
	t.min, err1 = strconv.ParseFloat(strings.TrimSpace(lo), 64)
	t.max, err2 = strconv.ParseFloat(strings.TrimSpace(hi), 64)
	if err1 != nil || err2 != nil || t.min > t.max {
		return fmt.Errorf("%w: clamp option %q", ErrInvalidProperty, option)
	}
	return nil
}

func (t *Transform) applies(i int) bool {
	return t.apply == nil || t.apply[i]
}

func (t *Transform) outInfos(in tensor.Infos) tensor.Infos {
	out := in.Clone()
	for i := range out {
		if t.applies(i) && t.cast != 0 {
			out[i].Type = t.cast
		}
	}
	return out
}

func (t *Transform) value(v float64) float64 {
	switch t.mode {
	case ModeClamp:
		return math.Min(math.Max(v, t.min), t.max)
	case ModeArithmetic:
		for _, op := range t.ops {
			switch op.op {
			case "add":
				v += op.value
			case "mul":
				v *= op.value
			case "div":
				v /= op.value
			}
		}
	}
	return v
}

func (t *Transform) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	in := d.Infos()
	out := t.outInfos(in)
	buffers := make([][]byte, len(in))
	for i := range in {
		src, err := d.Tensor(i)
		if err != nil {
			return err
		}
		if !t.applies(i) {
			buffers[i] = src
			continue
		}
		dst := make([]byte, out[i].ByteSize())
		for e, n := 0, in[i].Dimension.Elements(); e < n; e++ {
			tensor.SetValue(out[i].Type, dst, e, t.value(tensor.Value(in[i].Type, src, e)))
		}
		buffers[i] = dst
	}
	result, err := tensor.Wrap(out, buffers...)
	if err != nil {
		return err
	}
	return emit.Emit(ctx, 0, result)
}

func (t *Transform) Negotiate(_ int, infos tensor.Infos, _ int) (tensor.Infos, error) {
	return t.outInfos(infos), nil
}
