package publish

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
)

// noSuchManifest is the literal substring docker prints to stderr when a
// manifest does not exist. It is the sole "not published yet" signal.
const noSuchManifest = "no such manifest"

// ManifestInspector queries the registry for an image's manifest list.
type ManifestInspector interface {
	ManifestInspect(ctx context.Context, ref string, env map[string]string) (docker.ExecResult, error)
}

// RegistryExistenceGate decides whether the connector version is already
// fully published. Outcomes:
//
//   - no manifest on the registry      → success, proceed to build
//   - all required platforms published → skipped, nothing to do
//   - some platforms missing           → success, rebuild fills the gap
//   - unparseable manifest payload     → failure with both raw streams
type RegistryExistenceGate struct {
	Context   *ConnectorContext
	Inspector ManifestInspector
}

func (g *RegistryExistenceGate) Title() string {
	return "Check if the connector image already exists on the registry"
}

type manifestList struct {
	Manifests []struct {
		Platform struct {
			OS           string `json:"os"`
			Architecture string `json:"architecture"`
		} `json:"platform"`
	} `json:"manifests"`
}

func (g *RegistryExistenceGate) Run(ctx context.Context, _ any) StepResult {
	// Fresh CACHEBUSTER defeats any manifest caching between retries of
	// the same version.
	env := map[string]string{"CACHEBUSTER": uuid.NewString()}

	res, err := g.Inspector.ManifestInspect(ctx, g.Context.VersionedRef(), env)
	if err != nil {
		return StepResult{Title: g.Title(), Status: StatusFailure, Stderr: err.Error()}
	}

	if strings.Contains(res.Stderr, noSuchManifest) {
		return StepResult{
			Title:  g.Title(),
			Status: StatusSuccess,
			Stdout: fmt.Sprintf("No manifest found for %s.", g.Context.VersionedRef()),
		}
	}

	var list manifestList
	if err := json.Unmarshal([]byte(strings.ReplaceAll(res.Stdout, "\n", "")), &list); err != nil {
		return StepResult{Title: g.Title(), Status: StatusFailure, Stdout: res.Stdout, Stderr: res.Stderr}
	}

	published := make(map[string]bool, len(list.Manifests))
	for _, m := range list.Manifests {
		published[m.Platform.OS+"/"+m.Platform.Architecture] = true
	}

	for _, p := range g.Context.Platforms {
		if !published[p] {
			return StepResult{
				Title:  g.Title(),
				Status: StatusSuccess,
				Stdout: fmt.Sprintf("Not all platform manifests found for %s.", g.Context.VersionedRef()),
			}
		}
	}

	return StepResult{
		Title:  g.Title(),
		Status: StatusSkipped,
		Stderr: fmt.Sprintf("%s already exists.", g.Context.VersionedRef()),
	}
}
