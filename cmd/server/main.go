package main

import (
	"context"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/cmd/server/internal/commands"
	"github.com/wolfeidau/streamhost/internal/companion"
	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/console"
	"github.com/wolfeidau/streamhost/internal/pki"
)

var version = "dev"

type cli struct {
	Debug   bool `help:"Enable debug mode."`
	NoWait  bool `help:"Exit without waiting for Enter when attached to a terminal." env:"STREAMHOST_NO_WAIT"`
	Version kong.VersionFlag
	Serve   commands.ServeCmd `cmd:"" default:"withargs" help:"Bootstrap and start the server"`
	Probe   commands.ProbeCmd `cmd:"" help:"Report whether an address serves TLS or plaintext"`
}

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

// run parses args and runs the selected command, returning the process exit
// code. Command failures are logged once and not echoed by kong.
func run(ctx context.Context, args []string, stdin *os.File, stdout, stderr io.Writer) int {
	var c cli

	parser := kong.Must(&c,
		kong.Name("streamhost-server"),
		kong.Writers(stdout, stderr),
		kong.Vars{
			"version":           version,
			"config_path":       config.DefaultPath,
			"cert_dir":          pki.DefaultCertDir,
			"streamer_fallback": companion.DefaultFallbackPath(),
			"build_args":        strings.Join(companion.DefaultBuildArgs(), ","),
		},
		kong.BindTo(ctx, (*context.Context)(nil)))

	cmd, err := parser.Parse(args)
	parser.FatalIfErrorf(err)

	err = cmd.Run(&commands.Globals{Debug: c.Debug, Version: version})
	if err != nil {
		log.Error().Err(err).Msg("Exiting")
	}

	if strings.HasPrefix(cmd.Command(), "serve") {
		if perr := console.Pause(stdin, c.NoWait); perr != nil {
			log.Warn().Err(perr).Msg("Failed to wait for acknowledgement")
		}
	}

	if err != nil {
		return 1
	}

	return 0
}
