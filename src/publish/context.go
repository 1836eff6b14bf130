package publish

import (
	"fmt"
	"log/slog"

	"gitlab.prplanit.com/precisionplanit/slipway/src/config"
)

// ConnectorContext bundles everything one publish invocation needs: image
// coordinates, release classification, bucket names, and the connector
// metadata. Each invocation owns its own context; contexts are never shared
// across concurrent pipeline runs.
type ConnectorContext struct {
	ConnectorName string
	ConnectorDir  string

	Registry  string // registry host, e.g. "docker.io"
	ImageRepo string // e.g. "airbyte/source-postgres"
	ImageTag  string // connector version, e.g. "1.0.3"

	// PreRelease suppresses the floating "latest" tag.
	PreRelease bool

	// DryRun stops the pipeline after the read-only gating steps: no
	// build, no uploads, no pushes.
	DryRun bool

	// Platforms to build and publish, in publish order. The first entry is
	// the primary platform used as the push anchor.
	Platforms []string

	MetadataPath string
	Metadata     *config.ConnectorMetadata

	SpecCacheBucket string
	MetadataBucket  string

	Logger *slog.Logger
}

// ImageName returns the repo:tag pair without the registry host.
func (c *ConnectorContext) ImageName() string {
	return fmt.Sprintf("%s:%s", c.ImageRepo, c.ImageTag)
}

// VersionedRef returns the fully qualified versioned image reference.
func (c *ConnectorContext) VersionedRef() string {
	return fmt.Sprintf("%s/%s", c.Registry, c.ImageName())
}

// LatestRef returns the fully qualified floating "latest" reference.
func (c *ConnectorContext) LatestRef() string {
	return fmt.Sprintf("%s/%s:latest", c.Registry, c.ImageRepo)
}

func (c *ConnectorContext) log() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}
