package element

import (
	"context"
	"sync/atomic"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type selectorConfig struct {
	PadNegotiationMode string `mapstructure:"pad-negotiation-mode"`
	ResendLatest       bool   `mapstructure:"resend-latest"`
	Silent             bool   `mapstructure:"silent"`
}

// Selector forwards data to the active output pad only. The first
// declared pad is active by default.
type Selector struct {
	pads   []string
	active atomic.Int32
}

func newSelector(*selectorConfig) (*Element, error) {
	return &Element{
		Handler: &Selector{},
		Inputs:  singleInput,
		Outputs: requestOutput,
	}, nil
}

// SetOutputPads sets names of output pads in output order.
func (s *Selector) SetOutputPads(pads []string) {
	s.pads = append([]string(nil), pads...)
}

// Pads returns names of output pads.
func (s *Selector) Pads() []string {
	return append([]string(nil), s.pads...)
}

// PadIndex returns the output index of the pad.
func (s *Selector) PadIndex(pad string) (int, bool) {
	for i, p := range s.pads {
		if p == pad {
			return i, true
		}
	}
	return 0, false
}

// Active returns the name of the active pad.
func (s *Selector) Active() string {
	i := int(s.active.Load())
	if i < len(s.pads) {
		return s.pads[i]
	}
	return ""
}

// SetActive sets the active output. Pipelines call it from mutations,
// so the change is ordered with data.
func (s *Selector) SetActive(out int) {
	s.active.Store(int32(out))
}

func (s *Selector) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	return emit.Emit(ctx, int(s.active.Load()), d)
}
