package docker

import "context"

// Artifact is a built, runnable connector image for one target platform.
type Artifact struct {
	Platform string // "{os}/{arch}", e.g. "linux/amd64"
	Ref      string // daemon-local reference of the built image
}

// BuildSpec describes a single-platform image build.
type BuildSpec struct {
	ContextDir string
	Dockerfile string
	Platform   string
	Tag        string
	BuildArgs  map[string]string
}

// Backend is the container build/run/push engine consumed by the publish
// pipeline. It is never implemented by the engine itself; the default
// implementation shells out to docker buildx.
type Backend interface {
	// Build produces a single-platform artifact.
	Build(ctx context.Context, spec BuildSpec) (Artifact, error)

	// Run executes the artifact with the given env and arguments, capturing
	// its streams. A non-zero exit is reported in the result, not as an
	// error.
	Run(ctx context.Context, art Artifact, env map[string]string, args ...string) (ExecResult, error)

	// Push publishes primary under ref with the remaining artifacts
	// attached as platform variants of the same logical image, and returns
	// the published reference.
	Push(ctx context.Context, primary Artifact, variants []Artifact, ref string) (string, error)
}
