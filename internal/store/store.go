// Package store reads and writes the small structured records streamhost keeps
// on disk: the server configuration and the application data file.
//
// A missing record is seeded with its default value and written back so the
// operator has something to edit. A record that exists but cannot be decoded
// is reported as ErrCorrupt and is never repaired automatically.
package store

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// ErrCorrupt is returned when a record exists but cannot be decoded.
var ErrCorrupt = errors.New("corrupt record")

// LoadOrDefault reads the record at path.
//
// If the file does not exist the value returned by defaults is written to path
// (creating parent directories) and returned. Any other read failure, or a
// decode failure, is returned as an error. An empty file is corrupt.
func LoadOrDefault[T any](path string, defaults func() T) (T, error) {
	var value T

	codec := codecFor(path)

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		// yaml decodes an empty document into the zero value
		if len(bytes.TrimSpace(data)) == 0 {
			return value, fmt.Errorf("%w: %s: empty file", ErrCorrupt, path)
		}

		if err := codec.Decode(data, &value); err != nil {
			return value, fmt.Errorf("%w: %s: %v", ErrCorrupt, path, err)
		}

		log.Debug().Str("path", path).Str("format", codec.Name()).Msg("record loaded")

		return value, nil
	case errors.Is(err, fs.ErrNotExist):
		value = defaults()

		if err := Save(path, value); err != nil {
			return value, fmt.Errorf("failed to write default record: %w", err)
		}

		log.Info().Str("path", path).Msg("record not found, wrote defaults")

		return value, nil
	default:
		return value, fmt.Errorf("failed to read record %s: %w", path, err)
	}
}

// Save writes value to path atomically, creating parent directories as needed.
func Save[T any](path string, value T) error {
	data, err := codecFor(path).Encode(value)
	if err != nil {
		return fmt.Errorf("failed to encode record: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create record directory: %w", err)
		}
	}

	// Write to temp file first
	tempPath := path + ".tmp"

	if err := os.WriteFile(tempPath, data, 0600); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}

	// Atomic rename
	if err := os.Rename(tempPath, path); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to save record: %w", err)
	}

	return nil
}
