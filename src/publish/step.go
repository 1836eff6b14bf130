// Package publish implements the connector publish workflow engine: an
// ordered pipeline of steps that gates on registry state, builds platform
// variants, uploads the connector spec to the spec cache, pushes the image,
// and keeps the metadata store current. The pipeline is idempotent:
// republishing an already-published version short-circuits to a metadata
// refresh and never re-pushes the image.
package publish

import (
	"context"
	"time"
)

// StepStatus is the outcome of a single step.
type StepStatus string

const (
	StatusSuccess StepStatus = "success"
	StatusSkipped StepStatus = "skipped"
	StatusFailure StepStatus = "failure"
)

// Step is a unit of work in the publish pipeline. Constructing a step must
// be side-effect free; all remote calls happen inside Run.
//
// Run never returns an error for expected failure modes (remote errors,
// non-zero exit codes, unparseable output) — those are converted into a
// StepResult with StatusFailure so the full pipeline outcome stays
// reportable. Only contract violations are allowed to panic.
type Step interface {
	// Title returns a human-readable step description for reports.
	Title() string

	// Run executes the step. upstream carries the output artifact of an
	// earlier step when the pipeline declares a data dependency, nil
	// otherwise.
	Run(ctx context.Context, upstream any) StepResult
}

// StepResult captures the outcome of one step run. Immutable once
// constructed.
type StepResult struct {
	Title    string
	Status   StepStatus
	Stdout   string
	Stderr   string
	Output   any // artifact handed to a downstream step, nil if none
	Duration time.Duration
}

// Failed reports whether the step failed. Skipped steps are not failures.
func (r StepResult) Failed() bool {
	return r.Status == StatusFailure
}
