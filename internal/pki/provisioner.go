// Package pki generates and loads the TLS material streamhost serves with.
//
// On first run the server has no certificate, so the Provisioner generates a
// self-signed RSA certificate that is good enough for initial reachability.
// It is not an identity assertion: no subject fields are set and it is never
// renewed. Operators who want a real certificate point the configuration at
// their own key and certificate files.
package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
	"math/big"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/wolfeidau/streamhost/internal/config"
)

const (
	// DefaultCertDir is where generated certificates are written.
	DefaultCertDir = "./server/certs"

	KeyFileName  = "key.pem"
	CertFileName = "cert.pem"

	// KeyBits is the RSA modulus size of generated keys.
	KeyBits = 2048

	// Validity is the lifetime of a generated certificate.
	Validity = 365 * 24 * time.Hour
)

// Generated holds freshly generated PEM encoded material.
type Generated struct {
	KeyPEM      []byte
	CertPEM     []byte
	Certificate *x509.Certificate
}

// Provisioner makes sure the configuration names a certificate and key.
type Provisioner struct {
	dir string
	now func() time.Time
}

// Option configures a Provisioner.
type Option func(*Provisioner)

// WithClock overrides the time source used for the validity window.
func WithClock(now func() time.Time) Option {
	return func(p *Provisioner) {
		p.now = now
	}
}

// NewProvisioner creates a provisioner writing into dir.
// If dir is empty, uses DefaultCertDir.
func NewProvisioner(dir string, opts ...Option) *Provisioner {
	if dir == "" {
		dir = DefaultCertDir
	}

	p := &Provisioner{
		dir: dir,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}

	return p
}

// KeyPath returns the path generated keys are written to.
func (p *Provisioner) KeyPath() string {
	return filepath.Join(p.dir, KeyFileName)
}

// CertPath returns the path generated certificates are written to.
func (p *Provisioner) CertPath() string {
	return filepath.Join(p.dir, CertFileName)
}

// Ensure generates a self-signed certificate when cfg has none, writes it to
// disk, records the paths in cfg and calls persist.
//
// A configuration that already names a certificate is left alone, the files it
// points at are not inspected.
func (p *Provisioner) Ensure(cfg *config.Config, persist func(*config.Config) error) error {
	if cfg.HasCertificate() {
		log.Debug().
			Str("path_cert", cfg.Certificate.CertificatePEM).
			Str("path_key", cfg.Certificate.PrivateKeyPEM).
			Msg("Certificate configured, using existing...")
		return nil
	}

	log.Info().Msg("Certificates not found in config. Generating self-signed certificate...")

	generated, err := p.Generate()
	if err != nil {
		return err
	}

	if err := p.write(generated); err != nil {
		return err
	}

	cfg.Certificate = &config.Certificate{
		PrivateKeyPEM:  p.KeyPath(),
		CertificatePEM: p.CertPath(),
	}

	log.Info().
		Str("path_cert", p.CertPath()).
		Str("path_key", p.KeyPath()).
		Str("fingerprint", Fingerprint(generated.Certificate)).
		Time("not_after", generated.Certificate.NotAfter).
		Msg("Generated and saved self-signed certificate")

	return persist(cfg)
}

// Generate creates an RSA key and a certificate self-signed with it.
// Nothing is written to disk.
func (p *Provisioner) Generate() (*Generated, error) {
	key, err := rsa.GenerateKey(rand.Reader, KeyBits)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	serialNumber, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, fmt.Errorf("failed to generate serial number: %w", err)
	}

	// x509 validity has second precision
	notBefore := p.now().UTC().Truncate(time.Second)

	template := &x509.Certificate{
		SerialNumber: serialNumber,
		NotBefore:    notBefore,
		NotAfter:     notBefore.Add(Validity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
	}

	certDER, err := NewSelfSigner(key).SignCertificate(template)
	if err != nil {
		return nil, fmt.Errorf("failed to create certificate: %w", err)
	}

	cert, err := x509.ParseCertificate(certDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse certificate: %w", err)
	}

	keyPEM, err := EncodePrivateKey(key)
	if err != nil {
		return nil, err
	}

	return &Generated{
		KeyPEM:      keyPEM,
		CertPEM:     EncodeCertificate(certDER),
		Certificate: cert,
	}, nil
}

func (p *Provisioner) write(generated *Generated) error {
	if err := os.MkdirAll(p.dir, 0755); err != nil {
		return fmt.Errorf("failed to create certificate directory: %w", err)
	}

	if err := os.WriteFile(p.KeyPath(), generated.KeyPEM, 0600); err != nil {
		return fmt.Errorf("failed to write private key: %w", err)
	}

	// #nosec G306 - certificates are public
	if err := os.WriteFile(p.CertPath(), generated.CertPEM, 0644); err != nil {
		// Clean up private key on failure
		os.Remove(p.KeyPath())
		return fmt.Errorf("failed to write certificate: %w", err)
	}

	return nil
}
