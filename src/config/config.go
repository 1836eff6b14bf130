// Package config holds slipway's engine configuration and the connector
// metadata model.
package config

import (
	"errors"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"
)

const defaultConfigFile = ".slipway.yml"

// Config is the top-level slipway configuration.
type Config struct {
	Registry        string   `yaml:"registry"`          // image registry host
	Platforms       []string `yaml:"platforms"`         // build platforms, publish order
	Parallelism     int64    `yaml:"parallelism"`       // concurrent connector publishes
	SpecCacheBucket string   `yaml:"spec_cache_bucket"` // spec cache bucket name
	MetadataBucket  string   `yaml:"metadata_bucket"`   // metadata service bucket name

	// CredentialsEnv names the env var holding the path to the storage
	// service-account key file.
	CredentialsEnv string `yaml:"credentials_env"`
}

// Load reads configuration from a YAML file.
// If path is empty, it tries the default file.
// Returns sensible defaults if the file doesn't exist.
func Load(path string) (*Config, error) {
	if path == "" {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return defaults(), nil
		}
		return nil, err
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Registry:       "docker.io",
		Platforms:      []string{"linux/amd64", "linux/arm64"},
		Parallelism:    2,
		CredentialsEnv: "SLIPWAY_GCS_CREDENTIALS",
	}
}
