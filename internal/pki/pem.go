package pki

import (
	"crypto"
	"crypto/sha256"
	"crypto/x509"
	"encoding/pem"
	"errors"
	"fmt"

	"github.com/mr-tron/base58"
)

const (
	pemTypePrivateKey  = "PRIVATE KEY"
	pemTypeCertificate = "CERTIFICATE"
)

// ErrInvalidPEM is returned when key or certificate files cannot be parsed.
var ErrInvalidPEM = errors.New("invalid PEM data")

// EncodePrivateKey encodes key as an unencrypted PKCS#8 PEM block.
func EncodePrivateKey(key crypto.PrivateKey) ([]byte, error) {
	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal private key: %w", err)
	}

	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypePrivateKey,
		Bytes: keyDER,
	}), nil
}

// EncodeCertificate encodes DER certificate bytes as a PEM block.
func EncodeCertificate(certDER []byte) []byte {
	return pem.EncodeToMemory(&pem.Block{
		Type:  pemTypeCertificate,
		Bytes: certDER,
	})
}

// Fingerprint returns the Base58-encoded SHA256 of the DER certificate.
func Fingerprint(cert *x509.Certificate) string {
	hash := sha256.Sum256(cert.Raw)
	return base58.Encode(hash[:])
}
