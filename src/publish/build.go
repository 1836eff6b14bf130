package publish

import (
	"context"
	"fmt"
	"runtime"
	"sync"

	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
	"golang.org/x/sync/semaphore"
)

// PlatformArtifactSet is the ordered per-platform build output. The first
// element is the primary platform used as the publish anchor; the rest are
// attached as variants.
type PlatformArtifactSet []docker.Artifact

// Primary returns the publish anchor. An empty set is a coordinator
// contract violation, not an operational failure.
func (s PlatformArtifactSet) Primary() docker.Artifact {
	if len(s) == 0 {
		panic("publish: empty platform artifact set")
	}
	return s[0]
}

// Variants returns every artifact after the primary.
func (s PlatformArtifactSet) Variants() []docker.Artifact {
	if len(s) < 2 {
		return nil
	}
	return s[1:]
}

// BuildCoordinator fans out one independent build per target platform and
// reduces the per-platform results, in requested order, to a single result:
// the first non-success encountered, or success carrying the full ordered
// artifact set.
type BuildCoordinator struct {
	Context *ConnectorContext
	Backend docker.Backend
}

func (b *BuildCoordinator) Title() string {
	return "Build connector image for all platforms"
}

func (b *BuildCoordinator) Run(ctx context.Context, _ any) StepResult {
	platforms := b.Context.Platforms

	type platformResult struct {
		artifact docker.Artifact
		err      error
	}
	results := make([]platformResult, len(platforms))

	var wg sync.WaitGroup
	sem := semaphore.NewWeighted(int64(runtime.NumCPU()))

	for i, platform := range platforms {
		wg.Add(1)
		go func(idx int, platform string) {
			defer wg.Done()
			if err := sem.Acquire(ctx, 1); err != nil {
				results[idx] = platformResult{err: err}
				return
			}
			defer sem.Release(1)

			art, err := b.Backend.Build(ctx, docker.BuildSpec{
				ContextDir: b.Context.ConnectorDir,
				Platform:   platform,
				Tag:        b.Context.ImageName(),
			})
			results[idx] = platformResult{artifact: art, err: err}
		}(i, platform)
	}
	wg.Wait()

	// Reduce in requested order; only the first failure is surfaced.
	artifacts := make(PlatformArtifactSet, 0, len(platforms))
	for i, res := range results {
		if res.err != nil {
			return StepResult{
				Title:  b.Title(),
				Status: StatusFailure,
				Stderr: fmt.Sprintf("build for %s failed: %v", platforms[i], res.err),
			}
		}
		artifacts = append(artifacts, res.artifact)
	}

	return StepResult{
		Title:  b.Title(),
		Status: StatusSuccess,
		Stdout: fmt.Sprintf("Built %s for %d platform(s).", b.Context.ImageName(), len(artifacts)),
		Output: artifacts,
	}
}
