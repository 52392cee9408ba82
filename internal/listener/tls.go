package listener

import (
	"crypto/tls"
	"fmt"

	"github.com/wolfeidau/streamhost/internal/config"
	"github.com/wolfeidau/streamhost/internal/pki"
)

// IntermediateTLSConfig returns a server configuration following the Mozilla
// intermediate compatibility profile for the given certificate.
func IntermediateTLSConfig(cert tls.Certificate) *tls.Config {
	return &tls.Config{
		Certificates: []tls.Certificate{cert},
		MinVersion:   tls.VersionTLS12,
		// TLS 1.3 suites are not configurable and always enabled
		CipherSuites: []uint16{
			tls.TLS_ECDHE_ECDSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_RSA_WITH_AES_128_GCM_SHA256,
			tls.TLS_ECDHE_ECDSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_RSA_WITH_AES_256_GCM_SHA384,
			tls.TLS_ECDHE_ECDSA_WITH_CHACHA20_POLY1305_SHA256,
			tls.TLS_ECDHE_RSA_WITH_CHACHA20_POLY1305_SHA256,
		},
		CurvePreferences: []tls.CurveID{
			tls.X25519,
			tls.CurveP256,
			tls.CurveP384,
		},
		NextProtos: []string{"h2", "http/1.1"},
	}
}

// loadTLSConfig loads the key pair named by the certificate descriptor.
func loadTLSConfig(desc *config.Certificate) (*tls.Config, *pki.KeyPair, error) {
	kp, err := pki.LoadKeyPair(desc.PrivateKeyPEM, desc.CertificatePEM)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load TLS key pair: %w", err)
	}

	return IntermediateTLSConfig(kp.TLSCertificate()), kp, nil
}
