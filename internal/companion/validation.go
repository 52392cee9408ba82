package companion

import (
	"fmt"
	"os"
	"strings"
)

// validateBuild checks the build invocation before anything is executed.
// The command runs without a shell, so this guards against misconfiguration
// rather than injection: an empty command, a command that looks like a flag,
// a NUL byte the OS would silently truncate at, or a missing workspace.
func validateBuild(dir, command string, args []string) error {
	if strings.TrimSpace(command) == "" {
		return fmt.Errorf("%w: empty command", ErrInvalidBuild)
	}

	if strings.HasPrefix(command, "-") {
		return fmt.Errorf("%w: command cannot start with dash", ErrInvalidBuild)
	}

	for _, arg := range append([]string{command}, args...) {
		if strings.ContainsRune(arg, 0) {
			return fmt.Errorf("%w: argument contains NUL byte", ErrInvalidBuild)
		}
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: workspace %s: %w", ErrInvalidBuild, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: workspace %s is not a directory", ErrInvalidBuild, dir)
	}

	return nil
}
