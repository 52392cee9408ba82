package companion

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

// Builder produces the streamer binary from source.
type Builder interface {
	Build(ctx context.Context) error
}

// DefaultBuildCommand is the toolchain used to build the streamer.
const DefaultBuildCommand = "go"

// DefaultBuildArgs builds the streamer into the workspace bin directory, which
// is where DefaultFallbackPath looks for it.
func DefaultBuildArgs() []string {
	return []string{"build", "-o", filepath.Join("bin", ExecutableName(BinaryName)), "./cmd/" + BinaryName}
}

// CommandBuilder runs an external build command in the workspace root.
type CommandBuilder struct {
	dir     string
	command string
	args    []string
}

// NewCommandBuilder creates a builder running command with args in dir.
func NewCommandBuilder(dir, command string, args ...string) *CommandBuilder {
	return &CommandBuilder{
		dir:     dir,
		command: command,
		args:    args,
	}
}

// Build runs the build command and waits for it to exit.
// Output is streamed into the log line by line.
func (b *CommandBuilder) Build(ctx context.Context) error {
	startTime := time.Now()

	if err := validateBuild(b.dir, b.command, b.args); err != nil {
		return fmt.Errorf("%w: %w", ErrBuildFailed, err)
	}

	// #nosec G204 - build command is operator supplied configuration
	cmd := exec.CommandContext(ctx, b.command, b.args...)
	cmd.Dir = b.dir

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	log.Info().
		Str("dir", b.dir).
		Str("command", b.command).
		Strs("args", b.args).
		Msg("Building streamer binary")

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	// pipes must be drained before Wait closes them
	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		logLines(stdout, "stdout")
	}()
	go func() {
		defer wg.Done()
		logLines(stderr, "stderr")
	}()
	wg.Wait()

	if err := cmd.Wait(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return fmt.Errorf("%w: exit code %d", ErrBuildFailed, exitErr.ExitCode())
		}
		return fmt.Errorf("%w: %v", ErrBuildFailed, err)
	}

	log.Info().Dur("duration", time.Since(startTime)).Msg("Build completed")

	return nil
}

func logLines(r io.Reader, stream string) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		log.Info().Str("stream", stream).Msg(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		log.Warn().Err(err).Str("stream", stream).Msg("Failed to read build output")
		// keep draining so the child never blocks on a full pipe
		_, _ = io.Copy(io.Discard, r)
	}
}
