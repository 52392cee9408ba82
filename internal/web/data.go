package web

import (
	"fmt"

	"github.com/wolfeidau/streamhost/internal/store"
)

// Host is a streaming host the server can reach.
type Host struct {
	Name     string `json:"name" yaml:"name"`
	Address  string `json:"address" yaml:"address"`
	HTTPPort int    `json:"http_port" yaml:"http_port"`
}

// Data is the application data record stored at the configured data path.
type Data struct {
	Hosts []Host `json:"hosts" yaml:"hosts"`
}

// DefaultData returns the empty record written on first run.
func DefaultData() Data {
	return Data{Hosts: []Host{}}
}

// LoadData reads the application data, seeding an empty record if missing.
func LoadData(path string) (*Data, error) {
	data, err := store.LoadOrDefault(path, DefaultData)
	if err != nil {
		return nil, fmt.Errorf("failed to load data: %w", err)
	}

	if data.Hosts == nil {
		data.Hosts = []Host{}
	}

	return &data, nil
}
