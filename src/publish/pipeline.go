package publish

import (
	"context"
	"log/slog"
	"time"

	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
	"gitlab.prplanit.com/precisionplanit/slipway/src/storage"
	"golang.org/x/sync/semaphore"
)

// Deps are the external collaborators one pipeline run talks to.
type Deps struct {
	Inspector ManifestInspector
	Backend   docker.Backend
	Uploader  storage.Uploader
}

// Run executes the publish pipeline for one connector under the shared
// concurrency limiter:
//
//  1. Validate the metadata file.
//  2. Check whether the connector image already exists (gate).
//  3. Build the connector for every platform.
//  4. Upload its spec to the spec cache bucket.
//  5. Push the image to the registry, with platform variants.
//  6. Upload its metadata file to the metadata service bucket.
//
// Gating (1–2) short-circuits at the first non-success. A dry run stops
// after gating, before any side effect, and reports only the gating
// results. A skipped gate still runs the metadata upload so bookkeeping
// stays current. After a
// successful build, steps 4–6 run in sequence without short-circuiting:
// the metadata upload is always attempted and every result is retained in
// the report.
//
// The returned error is non-nil only when ctx is cancelled before a
// concurrency slot is acquired; every operational failure is reported
// through the Report instead.
func Run(ctx context.Context, pctx *ConnectorContext, deps Deps, sem *semaphore.Weighted) (*Report, error) {
	if err := sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer sem.Release(1)

	log := pctx.log().With("connector", pctx.ConnectorName, "image", pctx.ImageName())
	started := time.Now()

	metadataUpload := &MetadataUpload{Context: pctx, Uploader: deps.Uploader}

	// GATING
	results := runSequence(ctx, log, nil,
		&MetadataValidation{Context: pctx},
		&RegistryExistenceGate{Context: pctx, Inspector: deps.Inspector},
	)

	if pctx.DryRun {
		log.Info("dry run: stopping after gating; no build, upload, or push will happen")
		return newReport(pctx, started, results), nil
	}

	last := results[len(results)-1]
	switch last.Status {
	case StatusSkipped:
		log.Info("connector version is already published; uploading metadata anyway")
		results = append(results, runStep(ctx, log, metadataUpload, nil))
		return newReport(pctx, started, results), nil
	case StatusFailure:
		return newReport(pctx, started, results), nil
	}

	// BUILDING
	build := runStep(ctx, log, &BuildCoordinator{Context: pctx, Backend: deps.Backend}, nil)
	results = append(results, build)
	if build.Status != StatusSuccess {
		return newReport(pctx, started, results), nil
	}

	artifacts := build.Output.(PlatformArtifactSet)

	// FINALIZING — no short-circuit between these three.
	results = append(results, runStep(ctx, log, &SpecCachePublisher{
		Context:  pctx,
		Backend:  deps.Backend,
		Uploader: deps.Uploader,
	}, artifacts.Primary()))
	results = append(results, runStep(ctx, log, &RegistryPublisher{
		Context: pctx,
		Backend: deps.Backend,
	}, artifacts))
	results = append(results, runStep(ctx, log, metadataUpload, nil))

	return newReport(pctx, started, results), nil
}

// runStep executes one step, stamping its duration and logging the outcome.
func runStep(ctx context.Context, log *slog.Logger, s Step, upstream any) StepResult {
	start := time.Now()
	res := s.Run(ctx, upstream)
	res.Duration = time.Since(start)

	switch res.Status {
	case StatusFailure:
		log.Error("step failed", "step", s.Title(), "stderr", res.Stderr, "duration", res.Duration)
	default:
		log.Info("step finished", "step", s.Title(), "status", string(res.Status), "duration", res.Duration)
	}
	return res
}

// runSequence runs steps in order, appending to results and stopping at the
// first non-success.
func runSequence(ctx context.Context, log *slog.Logger, results []StepResult, steps ...Step) []StepResult {
	for _, s := range steps {
		res := runStep(ctx, log, s, nil)
		results = append(results, res)
		if res.Status != StatusSuccess {
			break
		}
	}
	return results
}
