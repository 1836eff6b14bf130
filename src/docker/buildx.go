package docker

import (
	"context"
	"fmt"
	"strings"
)

// Buildx is the docker buildx implementation of Backend.
type Buildx struct {
	cli *CLI
}

// NewBuildx creates a buildx-backed build engine.
func NewBuildx(cli *CLI) *Buildx {
	return &Buildx{cli: cli}
}

// Build runs `docker buildx build` for one platform and loads the result
// into the local daemon under a platform-suffixed tag.
func (b *Buildx) Build(ctx context.Context, spec BuildSpec) (Artifact, error) {
	args := []string{"buildx", "build"}

	if spec.Dockerfile != "" {
		args = append(args, "--file", spec.Dockerfile)
	}
	args = append(args, "--platform", spec.Platform)
	for k, v := range spec.BuildArgs {
		args = append(args, "--build-arg", fmt.Sprintf("%s=%s", k, v))
	}

	tag := spec.Tag + "-" + platformSuffix(spec.Platform)
	args = append(args, "--tag", tag, "--load")

	contextDir := spec.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	args = append(args, contextDir)

	res, err := b.cli.run(ctx, nil, args...)
	if err != nil {
		return Artifact{}, err
	}
	if res.ExitCode != 0 {
		return Artifact{}, fmt.Errorf("docker buildx build for %s failed: %s", spec.Platform, strings.TrimSpace(res.Stderr))
	}
	return Artifact{Platform: spec.Platform, Ref: tag}, nil
}

// Run executes the artifact with `docker run --rm`.
func (b *Buildx) Run(ctx context.Context, art Artifact, env map[string]string, cmdArgs ...string) (ExecResult, error) {
	args := []string{"run", "--rm", "--platform", art.Platform}
	for k := range env {
		args = append(args, "--env", k)
	}
	args = append(args, art.Ref)
	args = append(args, cmdArgs...)
	return b.cli.run(ctx, env, args...)
}

// Push publishes the artifact set under ref as one multi-platform image
// using `docker buildx imagetools create`.
func (b *Buildx) Push(ctx context.Context, primary Artifact, variants []Artifact, ref string) (string, error) {
	args := []string{"buildx", "imagetools", "create", "--tag", ref, primary.Ref}
	for _, v := range variants {
		args = append(args, v.Ref)
	}

	res, err := b.cli.run(ctx, nil, args...)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("pushing %s: %s", ref, strings.TrimSpace(res.Stderr))
	}
	return ref, nil
}

// platformSuffix turns "linux/amd64" into a tag-safe "linux-amd64".
func platformSuffix(platform string) string {
	return strings.ReplaceAll(platform, "/", "-")
}
