package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	pipe "pipelined.dev/tensorpipe"
	"pipelined.dev/tensorpipe/log"
	"pipelined.dev/tensorpipe/tensor"
)

// anyInfos is pushed into sources without caps.
var anyInfos = tensor.Infos{{Type: tensor.Uint8, Dimension: tensor.Dimension{1}}}

type launchCommand struct {
	buffers int
	timeout time.Duration
}

func newLaunchCmd() *cobra.Command {
	var c launchCommand
	cmd := &cobra.Command{
		Use:   "launch <description>",
		Short: "Push synthetic buffers through the pipeline",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.run(cmd, description(args))
		},
	}
	cmd.Flags().IntVarP(&c.buffers, "buffers", "n", 10, "number of buffers pushed into every source")
	cmd.Flags().DurationVar(&c.timeout, "timeout", 10*time.Second, "time to wait for end of stream")
	return cmd
}

func (c *launchCommand) run(cmd *cobra.Command, desc string) error {
	if c.buffers < 0 {
		return fmt.Errorf("invalid number of buffers: %d", c.buffers)
	}
	l := log.GetLogger()
	l.SetOutput(cmd.ErrOrStderr())
	p, err := pipe.New(desc, pipe.WithLogger(l), pipe.WithMetrics(nil))
	if err != nil {
		return err
	}
	defer p.Close()

	if err := p.Start(); err != nil {
		return err
	}
	for _, name := range p.Sources() {
		if err := c.feed(p, name); err != nil {
			return err
		}
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), c.timeout)
	defer cancel()
	if err := p.Wait(ctx); err != nil {
		return err
	}

	table := newTable(cmd.OutOrStdout(), "SINK", "RECEIVED")
	for _, name := range p.Sinks() {
		received, err := p.Received(name)
		if err != nil {
			return err
		}
		table.Append([]string{name, strconv.FormatUint(received, 10)})
	}
	table.Render()
	return nil
}

// feed pushes buffers into the source and ends its stream. Every buffer
// is filled with its sequence number.
func (c *launchCommand) feed(p *pipe.Pipeline, name string) error {
	infos, err := p.SourceInfos(name)
	if err != nil {
		return err
	}
	if infos == nil {
		infos = anyInfos
	}
	for i := 0; i < c.buffers; i++ {
		d, err := tensor.Allocate(infos)
		if err != nil {
			return err
		}
		for n := 0; n < d.Count(); n++ {
			b, _ := d.Tensor(n)
			for j := range b {
				b[j] = byte(i)
			}
		}
		if err := p.Push(name, d); err != nil {
			return fmt.Errorf("push %d into %q: %w", i, name, err)
		}
	}
	return p.EndOfStream(name)
}
