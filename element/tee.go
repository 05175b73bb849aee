package element

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type teeConfig struct {
	AllowNotLinked bool `mapstructure:"allow-not-linked"`
	Silent         bool `mapstructure:"silent"`
}

// TeeHandler duplicates data reference to every output.
type TeeHandler struct{}

func newTee(*teeConfig) (*Element, error) {
	return &Element{
		Handler: TeeHandler{},
		Inputs:  singleInput,
		Outputs: requestOutput,
	}, nil
}

func (TeeHandler) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	for i := 0; i < emit.Outputs(); i++ {
		if err := emit.Emit(ctx, i, d); err != nil {
			return err
		}
	}
	return nil
}

type demuxConfig struct {
	TensorPick string `mapstructure:"tensorpick"`
	Silent     bool   `mapstructure:"silent"`
}

// Demux splits tensors of data to outputs. Without picks output i gets
// tensor i.
type Demux struct {
	picks [][]int
}

func newDemux(c *demuxConfig) (*Element, error) {
	picks, err := parsePicks(c.TensorPick)
	if err != nil {
		return nil, err
	}
	return &Element{
		Handler: &Demux{picks: picks},
		Inputs:  singleInput,
		Outputs: requestOutput,
	}, nil
}

// parsePicks parses tensorpick property: outputs are separated with
// commas, tensors of a single output with colons, e.g. "0,1:2".
func parsePicks(s string) ([][]int, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	var picks [][]int
	for _, out := range strings.Split(s, ",") {
		var pick []int
		for _, idx := range strings.Split(out, ":") {
			i, err := strconv.Atoi(strings.TrimSpace(idx))
			if err != nil || i < 0 || i >= tensor.SizeLimit {
				return nil, fmt.Errorf("%w: tensorpick %q", ErrInvalidProperty, s)
			}
			pick = append(pick, i)
		}
		picks = append(picks, pick)
	}
	return picks, nil
}

func (d *Demux) pick(out int) []int {
	if out < len(d.picks) {
		return d.picks[out]
	}
	return []int{out}
}

func (d *Demux) Handle(ctx context.Context, _ int, data *tensor.Data, emit runtime.Emitter) error {
	for i := 0; i < emit.Outputs(); i++ {
		p, err := data.Pick(d.pick(i)...)
		if err != nil {
			return err
		}
		if err := emit.Emit(ctx, i, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Demux) Negotiate(_ int, infos tensor.Infos, out int) (tensor.Infos, error) {
	picked := make(tensor.Infos, 0, len(d.pick(out)))
	for _, i := range d.pick(out) {
		if i >= len(infos) {
			return nil, fmt.Errorf("%w: output %d picks tensor %d of %d", tensor.ErrIndexOutOfRange, out, i, len(infos))
		}
		picked = append(picked, infos[i])
	}
	return picked, nil
}
