package element

import (
	"context"

	"pipelined.dev/tensorpipe/config"
	"pipelined.dev/tensorpipe/internal/runtime"
	"pipelined.dev/tensorpipe/tensor"
)

type sourceConfig struct {
	Caps        string `mapstructure:"caps"`
	IsLive      bool   `mapstructure:"is-live"`
	Format      string `mapstructure:"format"`
	DoTimestamp bool   `mapstructure:"do-timestamp"`
	Block       bool   `mapstructure:"block"`
	MaxBuffers  uint   `mapstructure:"max-buffers"`
}

// AppSource is the element that application pushes data into.
type AppSource struct {
	infos tensor.Infos
}

func newSource(c *sourceConfig) (*Element, error) {
	var (
		infos tensor.Infos
		err   error
	)
	if c.Caps != "" {
		if infos, err = CapsInfos(c.Caps); err != nil {
			return nil, err
		}
	}
	size := int(c.MaxBuffers)
	if size == 0 {
		size = int(config.SourceQueueSize())
	}
	return &Element{
		Handler: &AppSource{infos: infos},
		Outputs: singleOutput,
		Queue:   &QueueSpec{Size: size},
	}, nil
}

// Infos returns the source caps infos, nil if caps are not declared.
func (s *AppSource) Infos() tensor.Infos {
	return s.infos
}

func (s *AppSource) Handle(ctx context.Context, _ int, d *tensor.Data, emit runtime.Emitter) error {
	return emit.Emit(ctx, 0, d)
}

func (s *AppSource) Negotiate(_ int, infos tensor.Infos, _ int) (tensor.Infos, error) {
	if s.infos != nil {
		if err := infos.Match(s.infos); err != nil {
			return nil, err
		}
	}
	return infos, nil
}
