package companion

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog/log"
)

// Strategy resolves the location of the streamer binary.
//
// Resolve receives the path currently recorded in the configuration. A strategy
// that cannot find the binary returns found=false and a nil error so the next
// strategy in the list runs; a non-nil error stops resolution.
type Strategy interface {
	Name() string
	Resolve(ctx context.Context, configured string) (path string, found bool, err error)
}

// ConfiguredPath accepts the path already recorded in the configuration.
func ConfiguredPath() Strategy {
	return configuredPath{}
}

type configuredPath struct{}

func (configuredPath) Name() string { return "configured" }

func (configuredPath) Resolve(_ context.Context, configured string) (string, bool, error) {
	return configured, binaryExists(configured), nil
}

// FallbackPath accepts a fixed conventional location.
func FallbackPath(path string) Strategy {
	return fallbackPath{path: path}
}

type fallbackPath struct {
	path string
}

func (f fallbackPath) Name() string { return "fallback" }

func (f fallbackPath) Resolve(_ context.Context, _ string) (string, bool, error) {
	return f.path, binaryExists(f.path), nil
}

// BuildThenRecheck runs the builder and then evaluates checks in order.
//
// A failed build is returned as ErrBuildFailed. A successful build that leaves
// nothing for the checks to find is returned as ErrBinaryStillMissing, which
// points at a mismatch between the build output and the known locations.
func BuildThenRecheck(builder Builder, checks ...Strategy) Strategy {
	return buildThenRecheck{builder: builder, checks: checks}
}

type buildThenRecheck struct {
	builder Builder
	checks  []Strategy
}

func (b buildThenRecheck) Name() string { return "build" }

func (b buildThenRecheck) Resolve(ctx context.Context, configured string) (string, bool, error) {
	log.Info().Str("configured", configured).Msg("Streamer binary not found, attempting to build")

	if err := b.builder.Build(ctx); err != nil {
		return "", false, err
	}

	tried := make([]string, 0, len(b.checks))

	for _, check := range b.checks {
		path, found, err := check.Resolve(ctx, configured)
		if err != nil {
			return "", false, err
		}
		if found {
			log.Info().Str("path", path).Str("location", check.Name()).Msg("Streamer binary built successfully")
			return path, true, nil
		}
		tried = append(tried, path)
	}

	return "", false, fmt.Errorf("%w: checked %q", ErrBinaryStillMissing, tried)
}

// binaryExists reports whether path names an existing file.
func binaryExists(path string) bool {
	if path == "" {
		return false
	}

	info, err := os.Stat(path)
	if err != nil {
		return false
	}

	return !info.IsDir()
}
