package companion

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestValidateBuild(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(file, nil, 0600))

	tests := []struct {
		name    string
		dir     string
		command string
		args    []string
		wantErr bool
	}{
		{name: "go build", dir: dir, command: "go", args: DefaultBuildArgs()},
		{name: "absolute command", dir: dir, command: "/usr/local/go/bin/go", args: []string{"build"}},
		{name: "no args", dir: dir, command: "make"},
		{name: "empty command", dir: dir, command: "", wantErr: true},
		{name: "blank command", dir: dir, command: "  ", wantErr: true},
		{name: "flag as command", dir: dir, command: "--version", wantErr: true},
		{name: "NUL in argument", dir: dir, command: "go", args: []string{"build\x00-x"}, wantErr: true},
		{name: "missing workspace", dir: filepath.Join(dir, "missing"), command: "go", wantErr: true},
		{name: "workspace is a file", dir: file, command: "go", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateBuild(tt.dir, tt.command, tt.args)
			if tt.wantErr {
				require.ErrorIs(t, err, ErrInvalidBuild)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestCommandBuilder_InvalidBuild(t *testing.T) {
	builder := NewCommandBuilder(filepath.Join(t.TempDir(), "missing"), "go", "build")

	err := builder.Build(context.Background())
	require.ErrorIs(t, err, ErrBuildFailed)
	require.ErrorIs(t, err, ErrInvalidBuild)
}
