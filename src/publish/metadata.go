package publish

import (
	"context"
	"fmt"

	"gitlab.prplanit.com/precisionplanit/slipway/src/config"
	"gitlab.prplanit.com/precisionplanit/slipway/src/storage"
)

// MetadataValidation checks the connector's metadata.yaml: well-formed YAML,
// required fields, a semver-valid image tag, and coordinates matching the
// publish context.
type MetadataValidation struct {
	Context *ConnectorContext
}

func (v *MetadataValidation) Title() string {
	return "Validate the connector metadata file"
}

func (v *MetadataValidation) Run(_ context.Context, _ any) StepResult {
	md, err := config.LoadMetadata(v.Context.MetadataPath)
	if err != nil {
		return StepResult{Title: v.Title(), Status: StatusFailure, Stderr: err.Error()}
	}
	if err := md.Validate(); err != nil {
		return StepResult{Title: v.Title(), Status: StatusFailure, Stderr: err.Error()}
	}

	if md.DockerRepository != v.Context.ImageRepo || md.DockerImageTag != v.Context.ImageTag {
		return StepResult{
			Title:  v.Title(),
			Status: StatusFailure,
			Stderr: fmt.Sprintf("metadata declares %s:%s but the publish targets %s",
				md.DockerRepository, md.DockerImageTag, v.Context.ImageName()),
		}
	}

	return StepResult{
		Title:  v.Title(),
		Status: StatusSuccess,
		Stdout: fmt.Sprintf("%s is valid.", v.Context.MetadataPath),
	}
}

// MetadataUpload pushes the metadata.yaml to the metadata service bucket so
// release bookkeeping stays current. It runs even when the publish was
// skipped because the version already exists.
type MetadataUpload struct {
	Context  *ConnectorContext
	Uploader storage.Uploader
}

func (u *MetadataUpload) Title() string {
	return "Upload the connector metadata file to the metadata service bucket"
}

// metadataKey is "metadata/{imageRepo}/{imageTag}/metadata.yaml".
func (u *MetadataUpload) metadataKey() string {
	return fmt.Sprintf("metadata/%s/%s/metadata.yaml", u.Context.ImageRepo, u.Context.ImageTag)
}

func (u *MetadataUpload) Run(ctx context.Context, _ any) StepResult {
	res, err := u.Uploader.Upload(ctx, u.Context.MetadataPath, u.Context.MetadataBucket, u.metadataKey())
	if err != nil {
		return StepResult{Title: u.Title(), Status: StatusFailure, Stderr: err.Error()}
	}
	if res.ExitCode != 0 {
		return StepResult{Title: u.Title(), Status: StatusFailure, Stdout: res.Stdout, Stderr: res.Stderr}
	}

	return StepResult{
		Title:  u.Title(),
		Status: StatusSuccess,
		Stdout: fmt.Sprintf("Uploaded metadata to %s.", u.metadataKey()),
	}
}
