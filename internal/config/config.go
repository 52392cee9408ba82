// Package config holds the persisted server configuration record.
package config

import (
	"errors"
	"fmt"

	"github.com/wolfeidau/streamhost/internal/store"
)

const (
	// DefaultPath is where the configuration lives relative to the server working directory.
	DefaultPath = "./server/config.json"

	// CredentialsPlaceholder marks a configuration the operator has not filled in yet.
	CredentialsPlaceholder = "default"

	DefaultBindAddress  = "0.0.0.0:8080"
	DefaultStreamerPath = "./binaries/streamer"
	DefaultDataPath     = "./server/data.json"
)

// Certificate points at a PEM encoded private key and certificate.
// It is either absent or has both paths set.
type Certificate struct {
	PrivateKeyPEM  string `json:"private_key_pem" yaml:"private_key_pem"`
	CertificatePEM string `json:"certificate_pem" yaml:"certificate_pem"`
}

// Config is the server configuration persisted between runs.
type Config struct {
	Credentials  string       `json:"credentials" yaml:"credentials"`
	BindAddress  string       `json:"bind_address" yaml:"bind_address"`
	StreamerPath string       `json:"streamer_path" yaml:"streamer_path"`
	Certificate  *Certificate `json:"certificate,omitempty" yaml:"certificate,omitempty"`
	DataPath     string       `json:"data_path" yaml:"data_path"`
}

// Default returns the configuration written on first run.
func Default() Config {
	return Config{
		Credentials:  CredentialsPlaceholder,
		BindAddress:  DefaultBindAddress,
		StreamerPath: DefaultStreamerPath,
		DataPath:     DefaultDataPath,
	}
}

// AwaitingOperator returns true while the credentials are still the placeholder.
func (c *Config) AwaitingOperator() bool {
	return c.Credentials == CredentialsPlaceholder
}

// HasCertificate returns true if a certificate descriptor is recorded.
func (c *Config) HasCertificate() bool {
	return c.Certificate != nil
}

// Validate reports fields a usable configuration cannot do without.
// Credentials are checked for presence only, the placeholder is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Credentials == "" {
		errs = append(errs, errors.New("credentials is empty"))
	}
	if c.BindAddress == "" {
		errs = append(errs, errors.New("bind_address is empty"))
	}
	if c.DataPath == "" {
		errs = append(errs, errors.New("data_path is empty"))
	}
	if c.Certificate != nil && (c.Certificate.PrivateKeyPEM == "" || c.Certificate.CertificatePEM == "") {
		errs = append(errs, errors.New("certificate needs both private_key_pem and certificate_pem"))
	}

	return errors.Join(errs...)
}

// Store binds the configuration record to its file.
type Store struct {
	path string
}

// NewStore creates a store for the configuration at path.
// If path is empty, uses DefaultPath.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}
	return &Store{path: path}
}

// Path returns the configuration file path.
func (s *Store) Path() string {
	return s.path
}

// Load reads the configuration, writing the defaults if the file is missing.
// A record that decodes but fails Validate is reported as store.ErrCorrupt.
func (s *Store) Load() (*Config, error) {
	cfg, err := store.LoadOrDefault(s.path, Default)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("failed to load config: %w: %s: %w", store.ErrCorrupt, s.path, err)
	}

	return &cfg, nil
}

// Save persists cfg. It matches the persist callback expected by the bootstrap steps.
func (s *Store) Save(cfg *Config) error {
	if err := store.Save(s.path, cfg); err != nil {
		return fmt.Errorf("failed to update config file: %w", err)
	}

	return nil
}
