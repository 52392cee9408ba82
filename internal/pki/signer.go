package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"fmt"
)

// SelfSigner signs each template with its own key, producing self-signed
// certificates whose issuer key is the subject key.
type SelfSigner struct {
	key *rsa.PrivateKey
}

// NewSelfSigner creates a signer for key.
func NewSelfSigner(key *rsa.PrivateKey) *SelfSigner {
	return &SelfSigner{key: key}
}

// SignCertificate signs template with the signer key.
// The template public key is replaced with the signer public key.
func (s *SelfSigner) SignCertificate(template *x509.Certificate) ([]byte, error) {
	if s.key == nil {
		return nil, fmt.Errorf("self signer has no key")
	}

	template.PublicKey = &s.key.PublicKey
	template.SignatureAlgorithm = x509.SHA256WithRSA

	return x509.CreateCertificate(rand.Reader, template, template, &s.key.PublicKey, s.key)
}
