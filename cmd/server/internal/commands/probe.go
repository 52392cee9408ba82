package commands

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/logger"
	"github.com/wolfeidau/streamhost/internal/probe"
)

type ProbeCmd struct {
	Addr    string        `help:"address to probe" default:"127.0.0.1:8080" env:"STREAMHOST_PROBE_ADDR"`
	Timeout time.Duration `help:"how long to keep retrying refused connections" default:"10s"`

	out io.Writer `kong:"-"`
}

func (c *ProbeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug)

	mode, err := probe.Detect(ctx, c.Addr, probe.WithMaxElapsedTime(c.Timeout))
	if err != nil {
		return fmt.Errorf("failed to probe %s: %w", c.Addr, err)
	}

	out := c.out
	if out == nil {
		out = os.Stdout
	}

	_, err = fmt.Fprintln(out, mode)
	return err
}
