package probe

import (
	"context"
	"io"
	"net"
	"net/http"
	"path/filepath"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/listener"
	"github.com/wolfeidau/streamhost/internal/pki"
)

func fastBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 20 * time.Millisecond
	b.MaxInterval = 100 * time.Millisecond
	return b
}

func startServer(t *testing.T, cfg *config.Config) *listener.Listener {
	t.Helper()

	ln, err := listener.Listen(context.Background(), cfg)
	require.NoError(t, err)

	srv := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		}),
		ReadHeaderTimeout: time.Second,
	}
	go func() { _ = srv.Serve(ln) }()
	t.Cleanup(func() { _ = srv.Close() })

	return ln
}

// rawServer accepts connections and hands them to handle.
func rawServer(t *testing.T, handle func(net.Conn)) string {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			go func() {
				defer conn.Close()
				handle(conn)
			}()
		}
	}()

	return ln.Addr().String()
}

func TestDetect(t *testing.T) {
	t.Run("tls", func(t *testing.T) {
		cfg := config.Default()
		cfg.BindAddress = "127.0.0.1:0"
		p := pki.NewProvisioner(filepath.Join(t.TempDir(), "certs"))
		require.NoError(t, p.Ensure(&cfg, func(*config.Config) error { return nil }))

		ln := startServer(t, &cfg)

		mode, err := Detect(context.Background(), ln.Addr().String())
		require.NoError(t, err)
		assert.Equal(t, listener.ModeTLS, mode)
	})

	t.Run("plaintext", func(t *testing.T) {
		cfg := config.Default()
		cfg.BindAddress = "127.0.0.1:0"

		ln := startServer(t, &cfg)

		mode, err := Detect(context.Background(), ln.Addr().String())
		require.NoError(t, err)
		assert.Equal(t, listener.ModePlaintext, mode)
	})
}

func TestDetect_WaitsForListener(t *testing.T) {
	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := reserved.Addr().String()
	require.NoError(t, reserved.Close())

	cfg := config.Default()
	cfg.BindAddress = addr

	started := make(chan *listener.Listener, 1)
	go func() {
		time.Sleep(200 * time.Millisecond)
		ln, err := listener.Listen(context.Background(), &cfg)
		if err != nil {
			close(started)
			return
		}
		srv := &http.Server{
			Handler:           http.NotFoundHandler(),
			ReadHeaderTimeout: time.Second,
		}
		go func() { _ = srv.Serve(ln) }()
		t.Cleanup(func() { _ = srv.Close() })
		started <- ln
	}()

	mode, err := Detect(context.Background(), addr, WithBackOff(fastBackOff()), WithMaxElapsedTime(5*time.Second))
	require.NotNil(t, <-started, "listener failed to start")
	require.NoError(t, err)
	assert.Equal(t, listener.ModePlaintext, mode)
}

func TestDetect_NothingListening(t *testing.T) {
	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := reserved.Addr().String()
	require.NoError(t, reserved.Close())

	_, err = Detect(context.Background(), addr, WithBackOff(fastBackOff()), WithMaxElapsedTime(300*time.Millisecond))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnknownProtocol)
}

func TestDetect_UnknownProtocol(t *testing.T) {
	t.Run("banner", func(t *testing.T) {
		addr := rawServer(t, func(conn net.Conn) {
			_, _ = io.WriteString(conn, "SSH-2.0-OpenSSH_9.6\r\n")
			_, _ = io.Copy(io.Discard, conn)
		})

		_, err := Detect(context.Background(), addr, WithBackOff(fastBackOff()))
		require.ErrorIs(t, err, ErrUnknownProtocol)
	})

	t.Run("silent", func(t *testing.T) {
		addr := rawServer(t, func(conn net.Conn) {
			_, _ = io.Copy(io.Discard, conn)
		})

		started := time.Now()
		_, err := Detect(context.Background(), addr,
			WithBackOff(fastBackOff()),
			WithAttemptTimeout(100*time.Millisecond),
		)
		require.ErrorIs(t, err, ErrUnknownProtocol)
		assert.Less(t, time.Since(started), 2*time.Second, "protocol errors are not retried")
	})
}

func TestDetect_Cancelled(t *testing.T) {
	reserved, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := reserved.Addr().String()
	require.NoError(t, reserved.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err = Detect(ctx, addr, WithBackOff(fastBackOff()), WithMaxElapsedTime(time.Minute))
	require.Error(t, err)
}
