// Package probe reports whether an address speaks TLS or plaintext HTTP.
package probe

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/listener"
)

const (
	DefaultAttemptTimeout = 2 * time.Second
	DefaultMaxElapsedTime = 10 * time.Second
)

// ErrUnknownProtocol is returned when the peer accepts connections but answers
// neither a TLS handshake nor an HTTP request.
var ErrUnknownProtocol = errors.New("unknown protocol")

type options struct {
	attemptTimeout time.Duration
	maxElapsedTime time.Duration
	backOff        backoff.BackOff
}

// Option configures Detect.
type Option func(*options)

// WithAttemptTimeout bounds a single connection attempt.
func WithAttemptTimeout(d time.Duration) Option {
	return func(o *options) {
		o.attemptTimeout = d
	}
}

// WithMaxElapsedTime bounds the time spent retrying refused connections.
func WithMaxElapsedTime(d time.Duration) Option {
	return func(o *options) {
		o.maxElapsedTime = d
	}
}

// WithBackOff overrides the retry schedule.
func WithBackOff(b backoff.BackOff) Option {
	return func(o *options) {
		o.backOff = b
	}
}

// Detect connects to addr and reports the transport it speaks. Connection
// failures are retried with exponential backoff so a listener that is still
// coming up can be probed.
func Detect(ctx context.Context, addr string, opts ...Option) (listener.Mode, error) {
	o := options{
		attemptTimeout: DefaultAttemptTimeout,
		maxElapsedTime: DefaultMaxElapsedTime,
		backOff:        backoff.NewExponentialBackOff(),
	}
	for _, opt := range opts {
		opt(&o)
	}

	attempt := 0

	return backoff.Retry(ctx, func() (listener.Mode, error) {
		attempt++
		return detectOnce(ctx, addr, o.attemptTimeout)
	},
		backoff.WithBackOff(o.backOff),
		backoff.WithMaxElapsedTime(o.maxElapsedTime),
		backoff.WithNotify(func(err error, next time.Duration) {
			log.Debug().
				Err(err).
				Str("addr", addr).
				Int("attempt", attempt).
				Dur("next_retry", next).
				Msg("Probe failed, will retry")
		}),
	)
}

func detectOnce(ctx context.Context, addr string, timeout time.Duration) (listener.Mode, error) {
	tlsErr := tryTLS(ctx, addr, timeout)
	if tlsErr == nil {
		return listener.ModeTLS, nil
	}

	var opErr *net.OpError
	if errors.As(tlsErr, &opErr) && opErr.Op == "dial" {
		// nothing listening yet
		return listener.ModePlaintext, tlsErr
	}

	httpErr := tryHTTP(ctx, addr, timeout)
	if httpErr == nil {
		return listener.ModePlaintext, nil
	}

	return listener.ModePlaintext, backoff.Permanent(
		fmt.Errorf("%w at %s: tls: %v, http: %v", ErrUnknownProtocol, addr, tlsErr, httpErr),
	)
}

func tryTLS(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dialer := &tls.Dialer{
		Config: &tls.Config{
			InsecureSkipVerify: true, // only the transport is of interest
			MinVersion:         tls.VersionTLS12,
		},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}

	return conn.Close()
}

func tryHTTP(ctx context.Context, addr string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var dialer net.Dialer
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return err
		}
	}

	if _, err := io.WriteString(conn, "HEAD / HTTP/1.0\r\nHost: "+addr+"\r\n\r\n"); err != nil {
		return err
	}

	prefix := make([]byte, 5)
	if _, err := io.ReadFull(conn, prefix); err != nil {
		return err
	}

	if !bytes.Equal(prefix, []byte("HTTP/")) {
		return fmt.Errorf("unexpected response %q", prefix)
	}

	return nil
}
