package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wolfeidau/streamhost/internal/store"
)

func TestStore_Load(t *testing.T) {
	t.Run("first run writes defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "server", "config.json")
		s := NewStore(path)

		cfg, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), *cfg)
		assert.True(t, cfg.AwaitingOperator())
		assert.False(t, cfg.HasCertificate())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"credentials": "default"`)
		assert.NotContains(t, string(data), "certificate")
	})

	t.Run("round trips a certificate descriptor", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		s := NewStore(path)

		cfg := Default()
		cfg.Credentials = "secret"
		cfg.Certificate = &Certificate{
			PrivateKeyPEM:  "./server/certs/key.pem",
			CertificatePEM: "./server/certs/cert.pem",
		}
		require.NoError(t, s.Save(&cfg))

		loaded, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, cfg, *loaded)
		assert.False(t, loaded.AwaitingOperator())
		assert.True(t, loaded.HasCertificate())
	})

	t.Run("yaml configuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		s := NewStore(path)

		cfg, err := s.Load()
		require.NoError(t, err)
		assert.Equal(t, Default(), *cfg)

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "bind_address: 0.0.0.0:8080")
	})

	t.Run("corrupt configuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.json")
		require.NoError(t, os.WriteFile(path, []byte("{not json"), 0600))

		_, err := NewStore(path).Load()
		require.ErrorIs(t, err, store.ErrCorrupt)
	})
}

func TestStore_LoadIncomplete(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		want    string
	}{
		{name: "empty yaml", file: "config.yaml", content: "", want: "empty file"},
		{name: "empty json", file: "config.json", content: "", want: "empty file"},
		{name: "empty object", file: "config.json", content: "{}", want: "credentials is empty"},
		{name: "yaml without bind address", file: "config.yaml", content: "credentials: secret\ndata_path: ./data.json\n", want: "bind_address is empty"},
		{name: "json without data path", file: "config.json", content: `{"credentials": "secret", "bind_address": "127.0.0.1:8080"}`, want: "data_path is empty"},
		{name: "half certificate", file: "config.json", content: `{"credentials": "secret", "bind_address": "127.0.0.1:8080", "data_path": "./data.json", "certificate": {"private_key_pem": "key.pem"}}`, want: "certificate needs both"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), tt.file)
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0600))

			cfg, err := NewStore(path).Load()
			require.ErrorIs(t, err, store.ErrCorrupt)
			assert.Contains(t, err.Error(), tt.want)
			assert.Nil(t, cfg)

			data, err := os.ReadFile(path)
			require.NoError(t, err)
			assert.Equal(t, tt.content, string(data))
		})
	}
}

func TestConfig_Validate(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	cfg.Credentials = ""
	cfg.BindAddress = ""
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "credentials is empty")
	assert.Contains(t, err.Error(), "bind_address is empty")
}

func TestNewStore_DefaultPath(t *testing.T) {
	assert.Equal(t, DefaultPath, NewStore("").Path())
}
