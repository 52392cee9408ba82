package pki

import (
	"crypto"
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeGenerated(t *testing.T, dir string, g *Generated) (string, string) {
	t.Helper()

	keyPath := filepath.Join(dir, "key.pem")
	certPath := filepath.Join(dir, "cert.pem")
	require.NoError(t, os.WriteFile(keyPath, g.KeyPEM, 0600))
	require.NoError(t, os.WriteFile(certPath, g.CertPEM, 0600))

	return keyPath, certPath
}

func TestLoadKeyPair(t *testing.T) {
	p := NewProvisioner(t.TempDir())

	generated, err := p.Generate()
	require.NoError(t, err)

	t.Run("matching pair", func(t *testing.T) {
		keyPath, certPath := writeGenerated(t, t.TempDir(), generated)

		kp, err := LoadKeyPair(keyPath, certPath)
		require.NoError(t, err)
		assert.Equal(t, generated.Certificate.Raw, kp.Certificate.Raw)

		tlsCert := kp.TLSCertificate()
		require.Len(t, tlsCert.Certificate, 1)
		assert.Equal(t, generated.Certificate.Raw, tlsCert.Certificate[0])
		assert.NotNil(t, tlsCert.PrivateKey)
	})

	t.Run("mismatched pair", func(t *testing.T) {
		other, err := p.Generate()
		require.NoError(t, err)

		dir := t.TempDir()
		keyPath := filepath.Join(dir, "key.pem")
		certPath := filepath.Join(dir, "cert.pem")
		require.NoError(t, os.WriteFile(keyPath, other.KeyPEM, 0600))
		require.NoError(t, os.WriteFile(certPath, generated.CertPEM, 0600))

		_, err = LoadKeyPair(keyPath, certPath)
		require.ErrorIs(t, err, ErrKeyMismatch)
	})

	t.Run("missing files", func(t *testing.T) {
		dir := t.TempDir()
		_, err := LoadKeyPair(filepath.Join(dir, "key.pem"), filepath.Join(dir, "cert.pem"))
		require.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed pem", func(t *testing.T) {
		dir := t.TempDir()
		keyPath := filepath.Join(dir, "key.pem")
		certPath := filepath.Join(dir, "cert.pem")
		require.NoError(t, os.WriteFile(keyPath, []byte("not pem"), 0600))
		require.NoError(t, os.WriteFile(certPath, generated.CertPEM, 0600))

		_, err := LoadKeyPair(keyPath, certPath)
		require.ErrorIs(t, err, ErrInvalidPEM)
	})

	t.Run("key and certificate swapped", func(t *testing.T) {
		keyPath, certPath := writeGenerated(t, t.TempDir(), generated)

		_, err := LoadKeyPair(certPath, keyPath)
		require.ErrorIs(t, err, ErrInvalidPEM)
	})
}

// issue signs a server certificate for key. A nil parent self-signs it.
func issue(t *testing.T, key crypto.Signer, parent *x509.Certificate, parentKey crypto.Signer, isCA bool) *x509.Certificate {
	t.Helper()

	template := &x509.Certificate{
		SerialNumber:          big.NewInt(time.Now().UnixNano()),
		NotBefore:             time.Now().Add(-time.Minute),
		NotAfter:              time.Now().Add(time.Hour),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		IsCA:                  isCA,
	}
	if isCA {
		template.KeyUsage |= x509.KeyUsageCertSign
	}
	if parent == nil {
		parent, parentKey = template, key
	}

	der, err := x509.CreateCertificate(rand.Reader, template, parent, key.Public(), parentKey)
	require.NoError(t, err)

	cert, err := x509.ParseCertificate(der)
	require.NoError(t, err)

	return cert
}

func writePEM(t *testing.T, path, blockType string, blocks ...[]byte) {
	t.Helper()

	var data []byte
	for _, b := range blocks {
		data = append(data, pem.EncodeToMemory(&pem.Block{Type: blockType, Bytes: b})...)
	}
	require.NoError(t, os.WriteFile(path, data, 0600))
}

func TestLoadKeyPair_KeyFormats(t *testing.T) {
	rsaKey, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	ecKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	ecDER, err := x509.MarshalECPrivateKey(ecKey)
	require.NoError(t, err)

	tests := []struct {
		name      string
		key       crypto.Signer
		blockType string
		keyDER    []byte
	}{
		{name: "pkcs1 rsa", key: rsaKey, blockType: "RSA PRIVATE KEY", keyDER: x509.MarshalPKCS1PrivateKey(rsaKey)},
		{name: "sec1 ecdsa", key: ecKey, blockType: "EC PRIVATE KEY", keyDER: ecDER},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			keyPath := filepath.Join(dir, "key.pem")
			certPath := filepath.Join(dir, "cert.pem")

			cert := issue(t, tt.key, nil, nil, false)
			writePEM(t, keyPath, tt.blockType, tt.keyDER)
			writePEM(t, certPath, "CERTIFICATE", cert.Raw)

			kp, err := LoadKeyPair(keyPath, certPath)
			require.NoError(t, err)
			assert.Equal(t, cert.Raw, kp.Certificate.Raw)
			assert.True(t, kp.Key.Public().(interface{ Equal(crypto.PublicKey) bool }).Equal(tt.key.Public()))
		})
	}
}

func TestLoadKeyPair_Chain(t *testing.T) {
	caKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	leafKey, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)

	ca := issue(t, caKey, nil, nil, true)
	leaf := issue(t, leafKey, ca, caKey, false)

	leafDER, err := x509.MarshalPKCS8PrivateKey(leafKey)
	require.NoError(t, err)

	dir := t.TempDir()
	keyPath := filepath.Join(dir, "key.pem")
	certPath := filepath.Join(dir, "cert.pem")
	writePEM(t, keyPath, "PRIVATE KEY", leafDER)
	writePEM(t, certPath, "CERTIFICATE", leaf.Raw, ca.Raw)

	kp, err := LoadKeyPair(keyPath, certPath)
	require.NoError(t, err)
	assert.Equal(t, leaf.Raw, kp.Certificate.Raw)

	tlsCert := kp.TLSCertificate()
	require.Len(t, tlsCert.Certificate, 2)
	assert.Equal(t, leaf.Raw, tlsCert.Certificate[0])
	assert.Equal(t, ca.Raw, tlsCert.Certificate[1])
	assert.Equal(t, leaf.Raw, tlsCert.Leaf.Raw)

	// the served chain verifies against the issuing CA
	roots := x509.NewCertPool()
	roots.AddCert(ca)
	intermediates := x509.NewCertPool()
	for _, der := range tlsCert.Certificate[1:] {
		c, err := x509.ParseCertificate(der)
		require.NoError(t, err)
		intermediates.AddCert(c)
	}
	_, err = kp.Certificate.Verify(x509.VerifyOptions{Roots: roots, Intermediates: intermediates})
	require.NoError(t, err)
}

func TestSelfSigner_NoKey(t *testing.T) {
	_, err := (&SelfSigner{}).SignCertificate(nil)
	require.Error(t, err)
}
