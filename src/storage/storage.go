// Package storage is the boundary to the object-storage buckets backing the
// spec cache and the metadata store. Uploads shell out to gsutil; a non-zero
// exit is data for the caller, not an error.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// UploadResult carries the exit code and streams of one upload call.
type UploadResult struct {
	ExitCode int
	Stdout   string
	Stderr   string
}

// Uploader copies a local file into a bucket under a key.
type Uploader interface {
	Upload(ctx context.Context, localPath, bucket, key string) (UploadResult, error)
}

// GSUtil uploads via the gsutil CLI. Credentials are taken from the
// environment variable named by CredentialsEnv (a service-account key file
// path) when set, otherwise gsutil's ambient authentication applies.
type GSUtil struct {
	CredentialsEnv string
}

// NewGSUtil creates a gsutil-backed uploader.
func NewGSUtil(credentialsEnv string) *GSUtil {
	return &GSUtil{CredentialsEnv: credentialsEnv}
}

// Upload copies localPath to gs://bucket/key. An error is returned only
// when gsutil could not be started; command failures surface in the result.
func (g *GSUtil) Upload(ctx context.Context, localPath, bucket, key string) (UploadResult, error) {
	dest := fmt.Sprintf("gs://%s/%s", bucket, key)
	cmd := exec.CommandContext(ctx, "gsutil", "cp", localPath, dest)

	cmd.Env = os.Environ()
	if g.CredentialsEnv != "" {
		if keyFile := os.Getenv(g.CredentialsEnv); keyFile != "" {
			cmd.Env = append(cmd.Env, "GOOGLE_APPLICATION_CREDENTIALS="+keyFile)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	res := UploadResult{
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			res.ExitCode = exitErr.ExitCode()
			return res, nil
		}
		return res, fmt.Errorf("uploading to %s: %w", dest, err)
	}
	return res, nil
}
