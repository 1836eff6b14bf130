// Package gitver resolves git revision info for the working tree. The
// publish report header is stamped with the SHA and branch so a published
// connector can be traced back to the commit that produced it.
package gitver

import (
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"
)

// Info holds resolved revision metadata.
type Info struct {
	SHA    string // short 7-char commit SHA
	Branch string // current branch name, "" when detached
	Tag    string // tag pointing exactly at HEAD, "" when none
}

// Detect opens the repository containing rootDir and resolves HEAD.
// Returns an error when rootDir is not inside a git repository.
func Detect(rootDir string) (*Info, error) {
	repo, err := git.PlainOpenWithOptions(rootDir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("opening git repository: %w", err)
	}

	head, err := repo.Head()
	if err != nil {
		return nil, fmt.Errorf("resolving HEAD: %w", err)
	}

	info := &Info{SHA: head.Hash().String()[:7]}
	if head.Name().IsBranch() {
		info.Branch = head.Name().Short()
	}

	tags, err := repo.Tags()
	if err != nil {
		return info, nil
	}
	defer tags.Close()

	// First tag pointing exactly at HEAD wins.
	_ = tags.ForEach(func(ref *plumbing.Reference) error {
		if ref.Hash() == head.Hash() && info.Tag == "" {
			info.Tag = ref.Name().Short()
		}
		return nil
	})

	return info, nil
}

// String renders "sha (branch)" or just the SHA when detached.
func (i *Info) String() string {
	if i.Branch == "" {
		return i.SHA
	}
	return fmt.Sprintf("%s (%s)", i.SHA, i.Branch)
}
