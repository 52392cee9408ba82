package pki

import (
	"crypto"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"strings"
)

// ErrKeyMismatch is returned when a certificate was not issued for the private key.
var ErrKeyMismatch = errors.New("certificate does not match private key")

// KeyPair is a private key and the certificate chain issued for it.
type KeyPair struct {
	Key crypto.Signer
	// Certificate is the parsed leaf, the first certificate in the chain.
	Certificate *x509.Certificate

	tlsCert tls.Certificate
}

// LoadKeyPair reads a PEM encoded private key and certificate chain and checks
// that they belong together. The key may be PKCS#8, PKCS#1 or SEC1 and every
// certificate in the chain file is kept.
func LoadKeyPair(keyPath, certPath string) (*KeyPair, error) {
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key file: %w", err)
	}

	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read certificate file: %w", err)
	}

	tlsCert, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, keyPairError(certPath, keyPath, err)
	}

	leaf := tlsCert.Leaf
	if leaf == nil {
		leaf, err = x509.ParseCertificate(tlsCert.Certificate[0])
		if err != nil {
			return nil, fmt.Errorf("%w: certificate %s: %v", ErrInvalidPEM, certPath, err)
		}
		tlsCert.Leaf = leaf
	}

	signer, ok := tlsCert.PrivateKey.(crypto.Signer)
	if !ok {
		return nil, fmt.Errorf("private key type %T cannot sign", tlsCert.PrivateKey)
	}

	return &KeyPair{
		Key:         signer,
		Certificate: leaf,
		tlsCert:     tlsCert,
	}, nil
}

// TLSCertificate returns the key pair in the form crypto/tls serves.
func (kp *KeyPair) TLSCertificate() tls.Certificate {
	return kp.tlsCert
}

// keyPairError maps crypto/tls parse failures onto the package errors.
func keyPairError(certPath, keyPath string, err error) error {
	// crypto/tls does not export its mismatch errors
	if strings.Contains(err.Error(), "does not match public key") {
		return fmt.Errorf("%w: %s and %s: %v", ErrKeyMismatch, certPath, keyPath, err)
	}

	return fmt.Errorf("%w: %s and %s: %v", ErrInvalidPEM, certPath, keyPath, err)
}
