package gitver

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func initRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "README.md"), []byte("hello\n"), 0o644))
	wt, err := repo.Worktree()
	require.NoError(t, err)
	_, err = wt.Add("README.md")
	require.NoError(t, err)
	_, err = wt.Commit("initial commit", &git.CommitOptions{
		Author: &object.Signature{Name: "test", Email: "test@example.com", When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo
}

func TestDetect(t *testing.T) {
	dir, _ := initRepo(t)

	info, err := Detect(dir)

	require.NoError(t, err)
	assert.Len(t, info.SHA, 7)
	assert.NotEmpty(t, info.Branch)
	assert.Empty(t, info.Tag)
	assert.Contains(t, info.String(), info.SHA)
}

func TestDetectTagAtHead(t *testing.T) {
	dir, repo := initRepo(t)
	head, err := repo.Head()
	require.NoError(t, err)
	_, err = repo.CreateTag("v1.2.3", head.Hash(), nil)
	require.NoError(t, err)

	info, err := Detect(dir)

	require.NoError(t, err)
	assert.Equal(t, "v1.2.3", info.Tag)
}

func TestDetectOutsideRepository(t *testing.T) {
	_, err := Detect(t.TempDir())
	assert.Error(t, err)
}
