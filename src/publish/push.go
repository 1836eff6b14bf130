package publish

import (
	"context"
	"fmt"

	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
)

// RegistryPublisher pushes the full artifact set under the versioned
// reference as one multi-platform image, and under the floating "latest"
// reference unless the release is a prerelease.
type RegistryPublisher struct {
	Context *ConnectorContext
	Backend docker.Backend
}

func (p *RegistryPublisher) Title() string {
	return "Push connector image to the registry"
}

func (p *RegistryPublisher) Run(ctx context.Context, upstream any) StepResult {
	artifacts, ok := upstream.(PlatformArtifactSet)
	if !ok {
		panic(fmt.Sprintf("publish: registry push step expects a platform artifact set, got %T", upstream))
	}

	ref, err := p.Backend.Push(ctx, artifacts.Primary(), artifacts.Variants(), p.Context.VersionedRef())
	if err != nil {
		return StepResult{Title: p.Title(), Status: StatusFailure, Stderr: err.Error()}
	}

	if !p.Context.PreRelease {
		ref, err = p.Backend.Push(ctx, artifacts.Primary(), artifacts.Variants(), p.Context.LatestRef())
		if err != nil {
			return StepResult{Title: p.Title(), Status: StatusFailure, Stderr: err.Error()}
		}
	}

	return StepResult{
		Title:  p.Title(),
		Status: StatusSuccess,
		Stdout: fmt.Sprintf("Published %s", ref),
	}
}
