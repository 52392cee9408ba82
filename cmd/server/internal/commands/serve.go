package commands

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/bootstrap"
	"github.com/wolfeidau/streamhost/internal/companion"
	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/listener"
	"github.com/wolfeidau/streamhost/internal/logger"
	"github.com/wolfeidau/streamhost/internal/pki"
	"github.com/wolfeidau/streamhost/internal/telemetry"
	"github.com/wolfeidau/streamhost/internal/web"
)

type ServeCmd struct {
	// Bootstrap configuration
	Config           string   `help:"path to the server config file" default:"${config_path}" env:"STREAMHOST_CONFIG"`
	CertDir          string   `help:"directory self-signed certificates are written to" default:"${cert_dir}" env:"STREAMHOST_CERT_DIR"`
	StreamerFallback string   `help:"fallback location of the streamer binary" default:"${streamer_fallback}" env:"STREAMHOST_STREAMER_FALLBACK"`
	WorkspaceDir     string   `help:"workspace root the streamer is built in" default:"../.." env:"STREAMHOST_WORKSPACE_DIR"`
	BuildCommand     string   `help:"command used to build the streamer" default:"go" env:"STREAMHOST_BUILD_COMMAND"`
	BuildArgs        []string `help:"arguments passed to the build command" default:"${build_args}" env:"STREAMHOST_BUILD_ARGS"`

	// HTTP configuration
	CORSOrigins     []string      `help:"allowed CORS origins for API requests" default:"https://localhost" env:"STREAMHOST_CORS_ORIGINS"`
	ShutdownTimeout time.Duration `help:"graceful shutdown window" default:"10s" env:"STREAMHOST_SHUTDOWN_TIMEOUT"`

	Tracing bool `help:"enable tracing" default:"false" env:"STREAMHOST_TRACING"`

	// ready is called once the listener is bound
	ready func(*listener.Listener) `kong:"-"`
}

func (c *ServeCmd) Run(ctx context.Context, globals *Globals) error {
	log.Logger = logger.Setup(globals.Debug).With().Str("run_id", uuid.NewString()).Logger()

	log.Info().Str("version", globals.Version).Bool("debug", globals.Debug).Msg("Starting server")

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Setup telemetry if enabled
	if c.Tracing {
		log.Info().Msg("Tracing is enabled")
		shutdown, err := telemetry.InitTelemetry(ctx, "streamhost-server", globals.Version)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize telemetry, continuing without metrics")
			shutdown = func(ctx context.Context) error { return nil }
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				log.Error().Err(err).Msg("Failed to shutdown telemetry")
			}
		}()
	}

	builder := companion.NewCommandBuilder(c.WorkspaceDir, c.BuildCommand, c.BuildArgs...)

	res, err := bootstrap.Bootstrap(ctx, bootstrap.Config{
		Store:       config.NewStore(c.Config),
		Locator:     companion.NewLocator(companion.DefaultStrategies(c.StreamerFallback, builder)...),
		Provisioner: pki.NewProvisioner(c.CertDir),
	})
	if errors.Is(err, bootstrap.ErrAwaitingOperator) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("bootstrap failed: %w", err)
	}

	return c.serve(ctx, res)
}

func (c *ServeCmd) serve(ctx context.Context, res *bootstrap.Result) error {
	cfg := res.Config

	data, err := web.LoadData(cfg.DataPath)
	if err != nil {
		return err
	}

	handler := web.NewHandler(web.Options{
		Credentials: cfg.Credentials,
		Data:        data,
		CORSOrigins: c.CORSOrigins,
	})

	ln, err := listener.Listen(ctx, cfg)
	if err != nil {
		return err
	}

	srv := configureHTTPServer(cfg.BindAddress, handler)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	res.Serving()

	log.Info().
		Str("addr", ln.Addr().String()).
		Stringer("mode", ln.Mode()).
		Str("streamer", res.StreamerPath).
		Int("hosts", len(data.Hosts)).
		Msg("Server started")

	if c.ready != nil {
		c.ready(ln)
	}

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	log.Info().Msg("Server stopped")

	return nil
}
