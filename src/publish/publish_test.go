package publish

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
	"gitlab.prplanit.com/precisionplanit/slipway/src/storage"
)

// testContext builds a ConnectorContext with a valid metadata.yaml on disk.
func testContext(t *testing.T, repo, tag string) *ConnectorContext {
	t.Helper()

	dir := t.TempDir()
	metadataPath := filepath.Join(dir, "metadata.yaml")
	metadata := fmt.Sprintf(
		"name: %s\ndockerRepository: %s\ndockerImageTag: %q\n",
		filepath.Base(repo), repo, tag,
	)
	if err := os.WriteFile(metadataPath, []byte(metadata), 0o644); err != nil {
		t.Fatalf("write metadata: %v", err)
	}

	return &ConnectorContext{
		ConnectorName:   filepath.Base(repo),
		ConnectorDir:    dir,
		Registry:        "docker.io",
		ImageRepo:       repo,
		ImageTag:        tag,
		Platforms:       []string{"linux/amd64", "linux/arm64"},
		MetadataPath:    metadataPath,
		SpecCacheBucket: "spec-cache-bucket",
		MetadataBucket:  "metadata-bucket",
		Logger:          slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError})),
	}
}

// window is a timestamped interval of a recorded remote call.
type window struct {
	ref   string
	start time.Time
	end   time.Time
}

// fakeInspector serves canned manifest inspect responses.
type fakeInspector struct {
	mu    sync.Mutex
	res   docker.ExecResult
	err   error
	delay time.Duration
	calls []window
}

func (f *fakeInspector) ManifestInspect(_ context.Context, ref string, _ map[string]string) (docker.ExecResult, error) {
	start := time.Now()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	f.calls = append(f.calls, window{ref: ref, start: start, end: time.Now()})
	f.mu.Unlock()
	return f.res, f.err
}

// noManifestInspector reports "no such manifest" for every ref.
func noManifestInspector() *fakeInspector {
	return &fakeInspector{res: docker.ExecResult{ExitCode: 1, Stderr: "no such manifest: whatever"}}
}

// manifestFor builds a manifest-list JSON body for the given platforms.
func manifestFor(platforms ...string) string {
	var entries []string
	for _, p := range platforms {
		parts := strings.SplitN(p, "/", 2)
		entries = append(entries, fmt.Sprintf(
			`{"platform":{"os":%q,"architecture":%q}}`, parts[0], parts[1],
		))
	}
	return fmt.Sprintf(`{"manifests":[%s]}`, strings.Join(entries, ","))
}

type pushCall struct {
	ref  string
	refs []string
	at   time.Time
}

// fakeBackend is an in-memory Backend with per-platform build failures,
// canned spec output per deployment mode, and recorded push calls.
type fakeBackend struct {
	mu         sync.Mutex
	buildErr   map[string]error // keyed by platform
	buildDelay map[string]time.Duration
	specOut    map[string]docker.ExecResult // keyed by DEPLOYMENT_MODE
	pushErr    error
	builds     []string
	pushes     []pushCall
}

func (f *fakeBackend) Build(_ context.Context, spec docker.BuildSpec) (docker.Artifact, error) {
	f.mu.Lock()
	delay := f.buildDelay[spec.Platform]
	f.mu.Unlock()
	if delay > 0 {
		time.Sleep(delay)
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.builds = append(f.builds, spec.Platform)
	if err := f.buildErr[spec.Platform]; err != nil {
		return docker.Artifact{}, err
	}
	return docker.Artifact{
		Platform: spec.Platform,
		Ref:      spec.Tag + "-" + strings.ReplaceAll(spec.Platform, "/", "-"),
	}, nil
}

func (f *fakeBackend) Run(_ context.Context, _ docker.Artifact, env map[string]string, _ ...string) (docker.ExecResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	res, ok := f.specOut[env["DEPLOYMENT_MODE"]]
	if !ok {
		return docker.ExecResult{ExitCode: 1, Stderr: "unknown deployment mode"}, nil
	}
	return res, nil
}

func (f *fakeBackend) Push(_ context.Context, primary docker.Artifact, variants []docker.Artifact, ref string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pushErr != nil {
		return "", f.pushErr
	}
	refs := []string{primary.Ref}
	for _, v := range variants {
		refs = append(refs, v.Ref)
	}
	f.pushes = append(f.pushes, pushCall{ref: ref, refs: refs, at: time.Now()})
	return ref, nil
}

// specRecord renders a one-line SPEC record around the given connection
// specification fragment.
func specRecord(fragment string) string {
	return fmt.Sprintf(`{"type":"SPEC","spec":{"connectionSpecification":%s}}`, fragment)
}

// healthyBackend returns a backend where every build succeeds and both
// deployment modes emit the same spec.
func healthyBackend() *fakeBackend {
	spec := specRecord(`{"properties":{}}`)
	return &fakeBackend{
		specOut: map[string]docker.ExecResult{
			"OSS":   {Stdout: "some log line\n" + spec + "\n"},
			"CLOUD": {Stdout: spec + "\n"},
		},
	}
}

type uploadCall struct {
	bucket string
	key    string
	start  time.Time
	end    time.Time
}

// fakeUploader records uploads and can fail selected keys.
type fakeUploader struct {
	mu       sync.Mutex
	failKeys map[string]storage.UploadResult // exit != 0 for these keys
	delay    time.Duration
	uploads  []uploadCall
}

func (f *fakeUploader) Upload(_ context.Context, _ string, bucket, key string) (storage.UploadResult, error) {
	start := time.Now()
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.uploads = append(f.uploads, uploadCall{bucket: bucket, key: key, start: start, end: time.Now()})
	if res, ok := f.failKeys[key]; ok {
		return res, nil
	}
	return storage.UploadResult{}, nil
}

func (f *fakeUploader) keys() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	keys := make([]string, len(f.uploads))
	for i, u := range f.uploads {
		keys[i] = u.key
	}
	return keys
}
