package companion

import "errors"

var (
	// ErrBuildFailed indicates the build command exited with a non-zero status
	ErrBuildFailed = errors.New("failed to build streamer binary")
	// ErrBinaryStillMissing indicates the build succeeded but produced no binary at a known location
	ErrBinaryStillMissing = errors.New("streamer binary still not found after build")
	// ErrNotFound indicates no strategy could resolve the binary
	ErrNotFound = errors.New("streamer binary not found")
	// ErrInvalidBuild indicates the build invocation is misconfigured
	ErrInvalidBuild = errors.New("invalid build invocation")
)
