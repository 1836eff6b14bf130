package publish

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gitlab.prplanit.com/precisionplanit/slipway/src/docker"
)

func builtSet(pctx *ConnectorContext) PlatformArtifactSet {
	set := make(PlatformArtifactSet, 0, len(pctx.Platforms))
	for _, p := range pctx.Platforms {
		set = append(set, docker.Artifact{Platform: p, Ref: pctx.ImageName() + "-" + p})
	}
	return set
}

func TestPublisherPushesVersionedAndLatest(t *testing.T) {
	pctx := testContext(t, "airbyte/source-postgres", "1.0.3")
	backend := healthyBackend()
	pub := &RegistryPublisher{Context: pctx, Backend: backend}

	res := pub.Run(context.Background(), builtSet(pctx))

	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, backend.pushes, 2)
	assert.Equal(t, "docker.io/airbyte/source-postgres:1.0.3", backend.pushes[0].ref)
	assert.Equal(t, "docker.io/airbyte/source-postgres:latest", backend.pushes[1].ref)
	assert.Contains(t, res.Stdout, "Published docker.io/airbyte/source-postgres:latest")
}

func TestPublisherPreReleaseSkipsLatest(t *testing.T) {
	pctx := testContext(t, "airbyte/source-postgres", "1.1.0-rc.1")
	pctx.PreRelease = true
	backend := healthyBackend()
	pub := &RegistryPublisher{Context: pctx, Backend: backend}

	res := pub.Run(context.Background(), builtSet(pctx))

	require.Equal(t, StatusSuccess, res.Status)
	require.Len(t, backend.pushes, 1)
	assert.Equal(t, "docker.io/airbyte/source-postgres:1.1.0-rc.1", backend.pushes[0].ref)
}

func TestPublisherAttachesAllVariantsInOnePush(t *testing.T) {
	pctx := testContext(t, "airbyte/source-postgres", "1.0.3")
	backend := healthyBackend()
	pub := &RegistryPublisher{Context: pctx, Backend: backend}

	res := pub.Run(context.Background(), builtSet(pctx))

	require.Equal(t, StatusSuccess, res.Status)
	// One push call carries the primary plus every variant.
	require.NotEmpty(t, backend.pushes)
	assert.Len(t, backend.pushes[0].refs, len(pctx.Platforms))
}

func TestPublisherRemoteErrorFails(t *testing.T) {
	pctx := testContext(t, "airbyte/source-postgres", "1.0.3")
	backend := healthyBackend()
	backend.pushErr = errors.New("unauthorized: authentication required")
	pub := &RegistryPublisher{Context: pctx, Backend: backend}

	res := pub.Run(context.Background(), builtSet(pctx))

	require.Equal(t, StatusFailure, res.Status)
	assert.Contains(t, res.Stderr, "unauthorized")
}
