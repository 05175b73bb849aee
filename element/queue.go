package element

import (
	"context"
	"fmt"
	"strings"

	"pipelined.dev/tensorpipe/config"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type queueConfig struct {
	MaxSizeBuffers uint   `mapstructure:"max-size-buffers"`
	MaxSizeBytes   uint   `mapstructure:"max-size-bytes"`
	MaxSizeTime    uint64 `mapstructure:"max-size-time"`
	Leaky          string `mapstructure:"leaky"`
	Silent         bool   `mapstructure:"silent"`
}

func defaultQueueConfig() queueConfig {
	return queueConfig{MaxSizeBuffers: config.QueueSize()}
}

// parseLeaky accepts numeric and named values of leaky property.
func parseLeaky(s string) (runtime.Leaky, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "0", "no":
		return runtime.NoLeak, nil
	case "1", "upstream":
		return runtime.LeakUpstream, nil
	case "2", "downstream":
		return runtime.LeakDownstream, nil
	}
	return runtime.NoLeak, fmt.Errorf("%w: leaky %q", ErrInvalidProperty, s)
}

// QueueHandler passes data through. The element owns an input queue, so
// everything downstream runs on its own worker.
type QueueHandler struct{}

func newQueue(c *queueConfig) (*Element, error) {
	leaky, err := parseLeaky(c.Leaky)
	if err != nil {
		return nil, err
	}
	if c.MaxSizeBuffers == 0 {
		return nil, fmt.Errorf("%w: max-size-buffers must be positive", ErrInvalidProperty)
	}
	return &Element{
		Handler: QueueHandler{},
		Inputs:  singleInput,
		Outputs: singleOutput,
		Queue:   &QueueSpec{Size: int(c.MaxSizeBuffers), Leaky: leaky},
	}, nil
}

func (QueueHandler) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	return emit.Emit(ctx, 0, d)
}
