package element

import (
	"context"
	"sync/atomic"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type valveConfig struct {
	Drop bool `mapstructure:"drop"`
}

// ValveHandler forwards data while open and drops it while closed.
// End of stream and mutations pass regardless of the state.
type ValveHandler struct {
	open atomic.Bool
}

func newValve(c *valveConfig) (*Element, error) {
	v := ValveHandler{}
	v.open.Store(!c.Drop)
	return &Element{
		Handler: &v,
		Inputs:  singleInput,
		Outputs: singleOutput,
	}, nil
}

// Open reports if valve forwards data.
func (v *ValveHandler) Open() bool {
	return v.open.Load()
}

// SetOpen changes valve state. Pipelines call it from mutations, so the
// change is ordered with data.
func (v *ValveHandler) SetOpen(open bool) {
	v.open.Store(open)
}

func (v *ValveHandler) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	if !v.open.Load() {
		emit.Drop()
		return nil
	}
	return emit.Emit(ctx, 0, d)
}
