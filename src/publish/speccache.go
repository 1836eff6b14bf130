package publish

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
	"gitlab.prplanit.com/precisionplanit/slipway/src/storage"
)

// ErrInvalidSpecOutput distinguishes "the spec command produced no SPEC
// record" from a tool crash or a generic parse error.
var ErrInvalidSpecOutput = errors.New("could not parse a SPEC record from the spec command output")

const (
	specFileName      = "spec.json"
	cloudSpecFileName = "spec.cloud.json"
)

// SpecCachePublisher extracts the connector spec from the primary built
// artifact under both deployment modes and uploads it to the spec cache
// bucket. The OSS spec is always uploaded; the CLOUD spec only when it
// differs byte-for-byte from the OSS one.
type SpecCachePublisher struct {
	Context  *ConnectorContext
	Backend  docker.Backend
	Uploader storage.Uploader
}

func (s *SpecCachePublisher) Title() string {
	return "Upload connector spec to the spec cache bucket"
}

// specKeyPrefix is "specs/{imageRepo}/{imageTag}".
func (s *SpecCachePublisher) specKeyPrefix() string {
	return "specs/" + strings.ReplaceAll(s.Context.ImageName(), ":", "/")
}

func (s *SpecCachePublisher) Run(ctx context.Context, upstream any) StepResult {
	primary, ok := upstream.(docker.Artifact)
	if !ok {
		panic(fmt.Sprintf("publish: spec cache step expects a primary artifact, got %T", upstream))
	}

	ossSpec, err := s.connectorSpec(ctx, primary, "OSS")
	if err != nil {
		return StepResult{Title: s.Title(), Status: StatusFailure, Stderr: err.Error()}
	}
	cloudSpec, err := s.connectorSpec(ctx, primary, "CLOUD")
	if err != nil {
		return StepResult{Title: s.Title(), Status: StatusFailure, Stderr: err.Error()}
	}

	uploads := []struct {
		name string
		spec string
	}{
		{specFileName, ossSpec},
	}
	if cloudSpec != ossSpec {
		uploads = append(uploads, struct {
			name string
			spec string
		}{cloudSpecFileName, cloudSpec})
	}

	dir, err := os.MkdirTemp("", "slipway-spec-")
	if err != nil {
		return StepResult{Title: s.Title(), Status: StatusFailure, Stderr: err.Error()}
	}
	defer os.RemoveAll(dir)

	for _, u := range uploads {
		path := filepath.Join(dir, u.name)
		if err := os.WriteFile(path, []byte(u.spec), 0o644); err != nil {
			return StepResult{Title: s.Title(), Status: StatusFailure, Stderr: err.Error()}
		}

		key := s.specKeyPrefix() + "/" + u.name
		res, err := s.Uploader.Upload(ctx, path, s.Context.SpecCacheBucket, key)
		if err != nil {
			return StepResult{Title: s.Title(), Status: StatusFailure, Stderr: err.Error()}
		}
		if res.ExitCode != 0 {
			// First failed upload aborts the remaining ones.
			return StepResult{Title: s.Title(), Status: StatusFailure, Stdout: res.Stdout, Stderr: res.Stderr}
		}
	}

	return StepResult{
		Title:  s.Title(),
		Status: StatusSuccess,
		Stdout: fmt.Sprintf("Uploaded %d spec file(s) for %s.", len(uploads), s.Context.ImageName()),
	}
}

// connectorSpec runs the artifact's spec command under the given deployment
// mode and extracts the canonical SPEC record.
func (s *SpecCachePublisher) connectorSpec(ctx context.Context, art docker.Artifact, deploymentMode string) (string, error) {
	res, err := s.Backend.Run(ctx, art, map[string]string{"DEPLOYMENT_MODE": deploymentMode}, "spec")
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("spec command exited %d under %s: %s", res.ExitCode, deploymentMode, strings.TrimSpace(res.Stderr))
	}
	return parseSpecOutput(res.Stdout)
}

// parseSpecOutput scans line-oriented output for the first JSON record with
// type "SPEC" and returns it canonically re-serialized. Lines that fail to
// parse, or parse but lack the discriminator, are skipped.
func parseSpecOutput(out string) (string, error) {
	for _, line := range strings.Split(out, "\n") {
		var record map[string]any
		if err := json.Unmarshal([]byte(line), &record); err != nil {
			continue
		}
		if record["type"] != "SPEC" {
			continue
		}
		canonical, err := json.Marshal(record)
		if err != nil {
			continue
		}
		return string(canonical), nil
	}
	return "", ErrInvalidSpecOutput
}
