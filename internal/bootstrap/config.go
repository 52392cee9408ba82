package bootstrap

import (
	"context"

	"github.com/wolfeidau/streamhost/internal/config"
)

// ConfigStore loads and persists the server configuration.
type ConfigStore interface {
	Path() string
	Load() (*config.Config, error)
	Save(cfg *config.Config) error
}

// BinaryLocator makes sure the streamer binary exists, recording its path in cfg.
type BinaryLocator interface {
	Ensure(ctx context.Context, cfg *config.Config, persist func(*config.Config) error) (string, error)
}

// CertificateProvisioner makes sure cfg names a certificate and key.
type CertificateProvisioner interface {
	Ensure(cfg *config.Config, persist func(*config.Config) error) error
}

// Config holds the collaborators of the bootstrap sequence
type Config struct {
	Store       ConfigStore
	Locator     BinaryLocator
	Provisioner CertificateProvisioner
}

// Result holds the outcome of a bootstrap run
type Result struct {
	// Config is the finalized configuration, nil if loading failed
	Config *config.Config

	// StreamerPath is the resolved streamer binary
	StreamerPath string

	// State is the last state reached
	State State
}
