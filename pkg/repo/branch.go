package repo

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/loomvcs/loom/pkg/object"
)

const branchRefPrefix = "refs/heads/"

// branchRefName maps a branch name to its full ref path under refs/heads/.
func branchRefName(branch string) string {
	return branchRefPrefix + branch
}

// CreateBranch creates a branch pointing at target. The ref write goes
// through the CAS path with an empty expected value, so racing creations of
// the same name resolve to a single winner and the loser sees an
// already-exists error.
func (r *Repo) CreateBranch(name string, target object.Hash) error {
	err := r.UpdateRefCAS(branchRefName(name), target, "")
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrRefCASMismatch):
		return fmt.Errorf("create branch: branch %q already exists", name)
	default:
		return fmt.Errorf("create branch %q: %w", name, err)
	}
}

// DeleteBranch removes a branch ref. The branch HEAD points at cannot be
// deleted.
func (r *Repo) DeleteBranch(name string) error {
	current, err := r.CurrentBranch()
	if err != nil {
		return err
	}
	if current == name {
		return fmt.Errorf("delete branch: cannot delete current branch %q", name)
	}

	refPath := filepath.Join(r.LoomDir, filepath.FromSlash(branchRefName(name)))
	switch err := os.Remove(refPath); {
	case err == nil:
		return nil
	case errors.Is(err, fs.ErrNotExist):
		return fmt.Errorf("delete branch: branch %q does not exist", name)
	default:
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
}

// ListBranches returns all branch names, sorted.
func (r *Repo) ListBranches() ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(r.LoomDir, "refs", "heads"))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list branches: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	return names, nil
}

// CurrentBranch returns the branch HEAD points at, or "" when HEAD is
// detached.
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if branch, ok := strings.CutPrefix(head, branchRefPrefix); ok {
		return branch, nil
	}
	return "", nil
}

// SetHead points HEAD at the named branch without touching the branch ref.
func (r *Repo) SetHead(branch string) error {
	content := "ref: " + branchRefName(branch) + "\n"
	if err := os.WriteFile(filepath.Join(r.LoomDir, "HEAD"), []byte(content), 0o644); err != nil {
		return fmt.Errorf("set head: %w", err)
	}
	return nil
}
