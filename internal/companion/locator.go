// Package companion makes sure the streamer binary the server launches for each
// session is present before the server starts.
//
// Resolution walks an ordered list of strategies and stops at the first one
// that finds the binary: the path recorded in the configuration, a conventional
// fallback location, and finally building from source and checking both again.
// Whenever the resolved path differs from the configured one the configuration
// is updated and persisted, so the next run resolves on the first strategy.
package companion

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/config"
)

// BinaryName is the name of the companion binary without platform suffix.
const BinaryName = "streamer"

// ExecutableName appends the platform executable suffix to name.
func ExecutableName(name string) string {
	if runtime.GOOS == "windows" {
		return name + ".exe"
	}
	return name
}

// DefaultFallbackPath is where a workspace build leaves the binary, relative to
// the server working directory.
func DefaultFallbackPath() string {
	return filepath.Join("..", "..", "bin", ExecutableName(BinaryName))
}

// DefaultStrategies returns the standard resolution order.
// The configured path wins over the fallback at every check.
func DefaultStrategies(fallback string, builder Builder) []Strategy {
	return []Strategy{
		ConfiguredPath(),
		FallbackPath(fallback),
		BuildThenRecheck(builder, ConfiguredPath(), FallbackPath(fallback)),
	}
}

// Locator resolves the streamer binary and records it in the configuration.
type Locator struct {
	strategies []Strategy
}

// NewLocator creates a locator evaluating strategies in order.
func NewLocator(strategies ...Strategy) *Locator {
	return &Locator{strategies: strategies}
}

// Ensure resolves the streamer binary, updating cfg.StreamerPath and calling
// persist when the resolved path differs from the recorded one.
// cfg is left untouched when resolution fails.
func (l *Locator) Ensure(ctx context.Context, cfg *config.Config, persist func(*config.Config) error) (string, error) {
	for _, strategy := range l.strategies {
		path, found, err := strategy.Resolve(ctx, cfg.StreamerPath)
		if err != nil {
			return "", fmt.Errorf("%s strategy: %w", strategy.Name(), err)
		}
		if !found {
			log.Debug().Str("strategy", strategy.Name()).Str("path", path).Msg("Streamer binary not found")
			continue
		}

		if path == cfg.StreamerPath {
			log.Debug().Str("path", path).Msg("Streamer binary found at configured path")
			return path, nil
		}

		log.Info().
			Str("strategy", strategy.Name()).
			Str("path", path).
			Str("previous", cfg.StreamerPath).
			Msg("Streamer binary found, updating config")

		cfg.StreamerPath = path

		if err := persist(cfg); err != nil {
			return "", err
		}

		return path, nil
	}

	return "", fmt.Errorf("%w at %q", ErrNotFound, cfg.StreamerPath)
}
