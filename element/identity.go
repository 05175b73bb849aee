package element

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

// ErrIdentity is returned by identity element after error-after buffers.
var ErrIdentity = errors.New("identity error")

type identityConfig struct {
	Silent         bool   `mapstructure:"silent"`
	Sync           bool   `mapstructure:"sync"`
	Dump           bool   `mapstructure:"dump"`
	SignalHandoffs bool   `mapstructure:"signal-handoffs"`
	ErrorAfter     int    `mapstructure:"error-after"`
	SleepTime      uint64 `mapstructure:"sleep-time"`
}

// Identity passes data through. It can delay every buffer and fail after
// a number of buffers, which is used to test pipelines.
type Identity struct {
	errorAfter int
	sleep      time.Duration
	handled    int
}

func newIdentity(c *identityConfig) (*Element, error) {
	return &Element{
		Handler: &Identity{
			errorAfter: c.ErrorAfter,
			sleep:      time.Duration(c.SleepTime) * time.Microsecond,
		},
		Inputs:  singleInput,
		Outputs: singleOutput,
	}, nil
}

func (i *Identity) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	i.handled++
	if i.errorAfter > 0 && i.handled > i.errorAfter {
		return fmt.Errorf("%w: after %d buffers", ErrIdentity, i.errorAfter)
	}
	if i.sleep > 0 {
		t := time.NewTimer(i.sleep)
		select {
		case <-t.C:
		case <-ctx.Done():
			t.Stop()
			return ctx.Err()
		}
	}
	return emit.Emit(ctx, 0, d)
}

// Reset restarts the buffer count.
func (i *Identity) Reset() {
	i.handled = 0
}
