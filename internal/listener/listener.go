// Package listener binds the server socket in TLS or plaintext mode.
//
// The mode is decided once, from the configuration handed over by bootstrap:
// a certificate descriptor means TLS, no descriptor means plaintext.
package listener

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/pki"
)

// Mode is the transport a listener speaks.
type Mode int

const (
	ModePlaintext Mode = iota
	ModeTLS
)

func (m Mode) String() string {
	if m == ModeTLS {
		return "tls"
	}
	return "plaintext"
}

// Listener is a bound socket together with the mode it was opened in.
type Listener struct {
	net.Listener
	mode Mode
}

// Mode returns the transport of the listener.
func (l *Listener) Mode() Mode {
	return l.mode
}

// Listen binds cfg.BindAddress. The key pair is loaded before the socket is
// bound, so a bad certificate never leaves a port open.
func Listen(ctx context.Context, cfg *config.Config) (*Listener, error) {
	var (
		tlsConfig *tls.Config
		kp        *pki.KeyPair
		err       error
	)

	if cfg.HasCertificate() {
		tlsConfig, kp, err = loadTLSConfig(cfg.Certificate)
		if err != nil {
			return nil, err
		}
	}

	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", cfg.BindAddress)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", cfg.BindAddress, err)
	}

	if tlsConfig == nil {
		log.Warn().Str("addr", ln.Addr().String()).Msg("Listening without TLS")
		return &Listener{Listener: ln, mode: ModePlaintext}, nil
	}

	log.Info().
		Str("addr", ln.Addr().String()).
		Str("fingerprint", pki.Fingerprint(kp.Certificate)).
		Time("not_after", kp.Certificate.NotAfter).
		Msg("Listening with TLS")

	return &Listener{Listener: tls.NewListener(ln, tlsConfig), mode: ModeTLS}, nil
}
