package content

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/go-git/go-git/v5"
)

// GitLastModified returns the committer time of the most recent commit
// touching the given file, walking up from dir to find the enclosing
// repository. Content dirs that are not git repositories, and files with no
// history yet, return an error; callers treat that as a warning.
func GitLastModified(dir, path string) (time.Time, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return time.Time{}, fmt.Errorf("open git repository from %s: %w", dir, err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return time.Time{}, fmt.Errorf("git worktree: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return time.Time{}, err
	}
	rel, err := filepath.Rel(wt.Filesystem.Root(), abs)
	if err != nil {
		return time.Time{}, fmt.Errorf("path %s outside worktree: %w", path, err)
	}
	rel = filepath.ToSlash(rel)

	iter, err := repo.Log(&git.LogOptions{FileName: &rel, Order: git.LogOrderCommitterTime})
	if err != nil {
		return time.Time{}, fmt.Errorf("git log %s: %w", rel, err)
	}
	defer iter.Close()

	commit, err := iter.Next()
	if err != nil {
		return time.Time{}, fmt.Errorf("no commits for %s: %w", rel, err)
	}
	return commit.Committer.When, nil
}
