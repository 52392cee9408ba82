// Package bootstrap runs the startup sequence that takes a fresh checkout to a
// configuration the server can listen with.
//
// The sequence is strictly ordered and every step is idempotent: load (or seed)
// the configuration, stop if the operator has not entered credentials yet,
// make sure the streamer binary exists, make sure a TLS certificate exists.
// Each step persists the configuration before the next one starts, so a crash
// part way through is picked up where it left off on the next run.
package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/telemetry"
)

// ErrAwaitingOperator is returned when the configuration still holds the
// placeholder credentials. It is a deliberate halt, not a failure.
var ErrAwaitingOperator = errors.New("awaiting operator configuration")

// Bootstrap loads the configuration and ensures the streamer binary and TLS
// certificate exist. Once the collaborators are valid the returned result is
// never nil; on error its State is StateFailed or StateAwaitingOperatorInput.
func Bootstrap(ctx context.Context, cfg Config) (*Result, error) {
	// Validate config
	if cfg.Store == nil {
		return nil, fmt.Errorf("Store is required")
	}
	if cfg.Locator == nil {
		return nil, fmt.Errorf("Locator is required")
	}
	if cfg.Provisioner == nil {
		return nil, fmt.Errorf("Provisioner is required")
	}

	res := &Result{State: StateStart}

	// Load config
	serverCfg, err := loadConfig(ctx, cfg.Store)
	if err != nil {
		return res.fail(err)
	}
	res.Config = serverCfg
	res.transition(StateConfigLoaded)

	if serverCfg.AwaitingOperator() {
		res.transition(StateAwaitingOperatorInput)
		log.Info().Str("path", cfg.Store.Path()).Msg("Enter your credentials in the config")
		return res, ErrAwaitingOperator
	}

	// Ensure streamer exists
	streamerPath, err := ensureBinary(ctx, cfg, serverCfg)
	if err != nil {
		return res.fail(err)
	}
	res.StreamerPath = streamerPath
	res.transition(StateBinaryEnsured)

	// Ensure certificates exist
	if err := ensureCertificate(ctx, cfg, serverCfg); err != nil {
		return res.fail(err)
	}
	res.transition(StateCertificateEnsured)

	return res, nil
}

// Serving marks the result as handed to a live listener.
func (r *Result) Serving() {
	r.transition(StateServing)
}

func loadConfig(ctx context.Context, s ConfigStore) (cfg *config.Config, err error) {
	_, end := telemetry.StartStep(ctx, "load_config")
	defer func() { end(err) }()

	cfg, err = s.Load()
	if err != nil {
		return nil, err
	}

	return cfg, nil
}

func ensureBinary(ctx context.Context, cfg Config, serverCfg *config.Config) (path string, err error) {
	ctx, end := telemetry.StartStep(ctx, "ensure_binary")
	defer func() { end(err) }()

	before := serverCfg.StreamerPath

	path, err = cfg.Locator.Ensure(ctx, serverCfg, cfg.Store.Save)
	if err != nil {
		return "", fmt.Errorf("failed to ensure streamer binary: %w", err)
	}

	if path != before {
		telemetry.GetMetrics().StreamerPathUpdates.Add(ctx, 1)
	}

	return path, nil
}

func ensureCertificate(ctx context.Context, cfg Config, serverCfg *config.Config) (err error) {
	ctx, end := telemetry.StartStep(ctx, "ensure_certificate")
	defer func() { end(err) }()

	hadCertificate := serverCfg.HasCertificate()

	if err = cfg.Provisioner.Ensure(serverCfg, cfg.Store.Save); err != nil {
		return fmt.Errorf("failed to ensure certificate: %w", err)
	}

	if !hadCertificate {
		telemetry.GetMetrics().CertificatesGenerated.Add(ctx, 1)
	}

	return nil
}

func (r *Result) transition(to State) {
	log.Debug().
		Stringer("from", r.State).
		Stringer("to", to).
		Msg("bootstrap state")
	r.State = to
}

func (r *Result) fail(err error) (*Result, error) {
	log.Error().Err(err).Stringer("state", r.State).Msg("Bootstrap failed")
	r.transition(StateFailed)
	return r, err
}
