package config

import (
	"fmt"
	"os"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// ConnectorMetadata is the machine-readable connector descriptor shipped as
// metadata.yaml next to each connector's Dockerfile.
type ConnectorMetadata struct {
	Name             string `yaml:"name"`
	DockerRepository string `yaml:"dockerRepository"`
	DockerImageTag   string `yaml:"dockerImageTag"`
	DocumentationURL string `yaml:"documentationUrl"`
}

// LoadMetadata reads and parses a metadata.yaml file.
func LoadMetadata(path string) (*ConnectorMetadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading metadata file: %w", err)
	}

	var md ConnectorMetadata
	if err := yaml.Unmarshal(data, &md); err != nil {
		return nil, fmt.Errorf("parsing metadata file: %w", err)
	}
	return &md, nil
}

// Validate checks the metadata for required fields and a semver-valid
// image tag.
func (m *ConnectorMetadata) Validate() error {
	if m.Name == "" {
		return fmt.Errorf("metadata is missing required field: name")
	}
	if m.DockerRepository == "" {
		return fmt.Errorf("metadata is missing required field: dockerRepository")
	}
	if m.DockerImageTag == "" {
		return fmt.Errorf("metadata is missing required field: dockerImageTag")
	}
	if _, err := semver.StrictNewVersion(m.DockerImageTag); err != nil {
		return fmt.Errorf("dockerImageTag %q is not a valid semantic version: %w", m.DockerImageTag, err)
	}
	return nil
}

// IsPreRelease reports whether the image tag carries a prerelease suffix
// (e.g. "1.2.0-rc.1"). Invalid tags are not prereleases; Validate catches
// them separately.
func (m *ConnectorMetadata) IsPreRelease() bool {
	v, err := semver.StrictNewVersion(m.DockerImageTag)
	if err != nil {
		return false
	}
	return v.Prerelease() != ""
}
