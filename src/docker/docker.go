// Package docker is the boundary to the local docker CLI: manifest
// inspection, buildx builds, container runs, and multi-platform pushes.
// Everything shells out to `docker` and captures the streams; callers decide
// what a non-zero exit means.
package docker

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ExecResult carries the exit code and captured streams of one docker
// invocation.
type ExecResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// CLI runs docker commands and captures their output.
type CLI struct {
	Verbose bool
}

// NewCLI creates a docker CLI runner.
func NewCLI(verbose bool) *CLI {
	return &CLI{Verbose: verbose}
}

// ManifestInspect queries the registry for the manifest list of ref.
// Extra env vars are appended to the process environment; a non-zero exit
// is returned in the result, not as an error. An error is returned only
// when the docker binary could not be run at all.
func (c *CLI) ManifestInspect(ctx context.Context, ref string, env map[string]string) (ExecResult, error) {
	return c.run(ctx, env, "manifest", "inspect", ref)
}

func (c *CLI) run(ctx context.Context, env map[string]string, args ...string) (ExecResult, error) {
	if c.Verbose {
		fmt.Fprintf(os.Stderr, "exec: docker %s\n", strings.Join(args, " "))
	}

	cmd := exec.CommandContext(ctx, "docker", args...)
	cmd.Env = os.Environ()
	for k, v := range env {
		cmd.Env = append(cmd.Env, k+"="+v)
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := ExecResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("running docker %s: %w", strings.Join(args, " "), err)
	}
	return res, nil
}
