package providers

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML document listing known providers.
type Catalog struct {
	Updated   string `yaml:"updated"`
	Providers []Info `yaml:"providers"`
}

// LoadCatalog reads a YAML provider catalog.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read provider catalog %s: %w", path, err)
	}

	var catalog Catalog
	if err := yaml.Unmarshal(data, &catalog); err != nil {
		return nil, fmt.Errorf("parse provider catalog %s: %w", path, err)
	}

	if len(catalog.Providers) == 0 {
		return nil, fmt.Errorf("provider catalog %s: no providers defined", path)
	}

	return &catalog, nil
}

// NewRegistryFromFile creates a registry populated from a YAML catalog.
func NewRegistryFromFile(path string) (*Registry, error) {
	catalog, err := LoadCatalog(path)
	if err != nil {
		return nil, err
	}

	registry := NewRegistry()
	for _, info := range catalog.Providers {
		if err := registry.Register(info); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
