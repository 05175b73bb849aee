package element

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type conditionConfig struct {
	CompareValue       string `mapstructure:"compared-value"`
	CompareValueOption string `mapstructure:"compared-value-option"`
	SuppliedValue      string `mapstructure:"supplied-value"`
	Operator           string `mapstructure:"operator"`
	Then               string `mapstructure:"then"`
	ThenOption         string `mapstructure:"then-option"`
	Else               string `mapstructure:"else"`
	ElseOption         string `mapstructure:"else-option"`
	Silent             bool   `mapstructure:"silent"`
}

func defaultConditionConfig() conditionConfig {
	return conditionConfig{
		CompareValue: "A_VALUE",
		Operator:     "EQ",
		Then:         "PASSTHROUGH",
		Else:         "SKIP",
	}
}

// Pads of tensor_if.
const (
	ThenPad = "src_0"
	ElsePad = "src_1"
)

// branch is what tensor_if does with data when condition is met or not.
type branch struct {
	skip  bool
	picks []int // nil passes all tensors through
}

// Condition routes data to src_0 if the compared value satisfies the
// operator and to src_1 otherwise.
type Condition struct {
	average  bool
	tensor   int
	index    []uint32 // coordinates of compared element
	operator string
	supplied []float64

	branches [2]branch
	outputs  [2]int // output index of then/else pads, -1 if not linked
	extra    []string
}

// operators maps operator to the number of supplied values.
var operators = map[string]int{
	"EQ":                     1,
	"NEQ":                    1,
	"GT":                     1,
	"GE":                     1,
	"LT":                     1,
	"LE":                     1,
	"RANGE_INCLUSIVE":        2,
	"RANGE_EXCLUSIVE":        2,
	"NOT_IN_RANGE_INCLUSIVE": 2,
	"NOT_IN_RANGE_EXCLUSIVE": 2,
}

func newCondition(c *conditionConfig) (*Element, error) {
	cond := Condition{
		operator: strings.ToUpper(c.Operator),
		outputs:  [2]int{-1, -1},
	}
	switch strings.ToUpper(c.CompareValue) {
	case "A_VALUE":
	case "TENSOR_AVERAGE_VALUE":
		cond.average = true
	default:
		return nil, fmt.Errorf("%w: compared-value %q", ErrInvalidProperty, c.CompareValue)
	}
	if err := cond.parseOption(c.CompareValueOption); err != nil {
		return nil, err
	}
	n, ok := operators[cond.operator]
	if !ok {
		return nil, fmt.Errorf("%w: operator %q", ErrInvalidProperty, c.Operator)
	}
	for _, s := range strings.Split(c.SuppliedValue, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, fmt.Errorf("%w: supplied-value %q", ErrInvalidProperty, c.SuppliedValue)
		}
		cond.supplied = append(cond.supplied, v)
	}
	if len(cond.supplied) != n {
		return nil, fmt.Errorf("%w: operator %s needs %d supplied values", ErrInvalidProperty, cond.operator, n)
	}
	var err error
	if cond.branches[0], err = parseBranch("then", c.Then, c.ThenOption); err != nil {
		return nil, err
	}
	if cond.branches[1], err = parseBranch("else", c.Else, c.ElseOption); err != nil {
		return nil, err
	}
	return &Element{
		Handler: &cond,
		Inputs:  singleInput,
		Outputs: requestOutput,
	}, nil
}

// parseOption parses "0:0:0:0,1": coordinates of compared element and
// tensor index. Average takes only the tensor index.
func (c *Condition) parseOption(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	coords, idx, ok := strings.Cut(s, ",")
	if !ok && c.average {
		coords, idx = "", s
	}
	if !c.average {
		d, err := parseCoordinates(coords)
		if err != nil {
			return fmt.Errorf("%w: compared-value-option %q", ErrInvalidProperty, s)
		}
		c.index = d
	}
	if idx != "" {
		t, err := strconv.Atoi(strings.TrimSpace(idx))
		if err != nil || t < 0 || t >= tensor.SizeLimit {
			return fmt.Errorf("%w: compared-value-option %q", ErrInvalidProperty, s)
		}
		c.tensor = t
	}
	return nil
}

func parseCoordinates(s string) ([]uint32, error) {
	var coords []uint32
	for _, p := range strings.Split(s, ":") {
		v, err := strconv.ParseUint(strings.TrimSpace(p), 10, 32)
		if err != nil {
			return nil, err
		}
		coords = append(coords, uint32(v))
	}
	return coords, nil
}

func parseBranch(name, action, option string) (branch, error) {
	switch strings.ToUpper(action) {
	case "PASSTHROUGH":
		return branch{}, nil
	case "SKIP":
		return branch{skip: true}, nil
	case "TENSORPICK":
		var b branch
		for _, s := range strings.Split(option, ",") {
			i, err := strconv.Atoi(strings.TrimSpace(s))
			if err != nil || i < 0 || i >= tensor.SizeLimit {
				return branch{}, fmt.Errorf("%w: %s-option %q", ErrInvalidProperty, name, option)
			}
			b.picks = append(b.picks, i)
		}
		return b, nil
	}
	return branch{}, fmt.Errorf("%w: %s %q", ErrInvalidProperty, name, action)
}

// SetOutputPads maps src_0 and src_1 to outputs.
func (c *Condition) SetOutputPads(pads []string) {
	c.outputs = [2]int{-1, -1}
	c.extra = nil
	for i, p := range pads {
		switch p {
		case ThenPad:
			c.outputs[0] = i
		case ElsePad:
			c.outputs[1] = i
		default:
			c.extra = append(c.extra, p)
		}
	}
}

// offset returns position of the compared element in the tensor.
func (c *Condition) offset(d tensor.Dimension) (int, error) {
	offset, stride := 0, 1
	for i, v := range c.index {
		size := uint32(1)
		if i < len(d) {
			size = d[i]
		}
		if v >= size {
			return 0, fmt.Errorf("%w: compared element %v of %v", tensor.ErrIndexOutOfRange, c.index, d)
		}
		offset += int(v) * stride
		stride *= int(size)
	}
	return offset, nil
}

func (c *Condition) value(d *tensor.Data) (float64, error) {
	b, err := d.Tensor(c.tensor)
	if err != nil {
		return 0, err
	}
	info := d.Infos()[c.tensor]
	if c.average {
		n := info.Dimension.Elements()
		var sum float64
		for i := 0; i < n; i++ {
			sum += tensor.Value(info.Type, b, i)
		}
		return sum / float64(n), nil
	}
	o, err := c.offset(info.Dimension)
	if err != nil {
		return 0, err
	}
	return tensor.Value(info.Type, b, o), nil
}

func (c *Condition) met(v float64) bool {
	s := c.supplied
	switch c.operator {
	case "EQ":
		return v == s[0]
	case "NEQ":
		return v != s[0]
	case "GT":
		return v > s[0]
	case "GE":
		return v >= s[0]
	case "LT":
		return v < s[0]
	case "LE":
		return v <= s[0]
	case "RANGE_INCLUSIVE":
		return s[0] <= v && v <= s[1]
	case "RANGE_EXCLUSIVE":
		return s[0] < v && v < s[1]
	case "NOT_IN_RANGE_INCLUSIVE":
		return v < s[0] || v > s[1]
	case "NOT_IN_RANGE_EXCLUSIVE":
		return v <= s[0] || v >= s[1]
	}
	return false
}

func (c *Condition) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	v, err := c.value(d)
	if err != nil {
		return err
	}
	i := 1
	if c.met(v) {
		i = 0
	}
	b, out := c.branches[i], c.outputs[i]
	if b.skip || out < 0 {
		return nil
	}
	if b.picks != nil {
		if d, err = d.Pick(b.picks...); err != nil {
			return err
		}
	}
	return emit.Emit(ctx, out, d)
}

func (c *Condition) Negotiate(_ int, infos tensor.Infos, out int) (tensor.Infos, error) {
	if len(c.extra) > 0 {
		return nil, fmt.Errorf("%w: tensor_if has no pads %v", ErrInvalidProperty, c.extra)
	}
	if c.tensor >= len(infos) {
		return nil, fmt.Errorf("%w: compared tensor %d of %d", tensor.ErrIndexOutOfRange, c.tensor, len(infos))
	}
	if !c.average {
		if _, err := c.offset(infos[c.tensor].Dimension); err != nil {
			return nil, err
		}
	}
	for i, o := range c.outputs {
		if o != out || o < 0 {
			continue
		}
		b := c.branches[i]
		if b.skip {
			return nil, nil
		}
		if b.picks == nil {
			return infos, nil
		}
		picked := make(tensor.Infos, 0, len(b.picks))
		for _, p := range b.picks {
			if p >= len(infos) {
				return nil, fmt.Errorf("%w: tensor_if picks tensor %d of %d", tensor.ErrIndexOutOfRange, p, len(infos))
			}
			picked = append(picked, infos[p])
		}
		return picked, nil
	}
	return infos, nil
}
