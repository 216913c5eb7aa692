package queue

import (
	"fmt"
	"path"
	"sort"

	"github.com/loomvcs/loom/pkg/merge"
	"github.com/loomvcs/loom/pkg/object"
)

// Analysis summarizes one changeset: its file-level diff against the base,
// the commits it carries, the directories it touches, and the paths likely
// to cause conflicts. Recomputed on demand, never cached across passes.
type Analysis struct {
	ID      ChangesetID
	HeadSHA object.Hash
	BaseSHA object.Hash

	Changes       []merge.FileChange
	Commits       []object.Hash
	Directories   []string
	ConflictProne []string
	TotalLines    int // additions + deletions across all changes
}

// Analyze computes the PRAnalysis for one changeset.
func (m *Manager) Analyze(id ChangesetID, headSHA, baseSHA object.Hash) (*Analysis, error) {
	headCommit, err := m.repo.Store.ReadCommit(headSHA)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: read head: %w", id, err)
	}
	baseCommit, err := m.repo.Store.ReadCommit(baseSHA)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: read base: %w", id, err)
	}

	changes, err := m.engine.DiffTrees(baseCommit.TreeHash, headCommit.TreeHash)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: diff: %w", id, err)
	}

	commits, err := m.nav.CommitsBetween(headSHA, baseSHA)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: commits: %w", id, err)
	}

	a := &Analysis{
		ID:      id,
		HeadSHA: headSHA,
		BaseSHA: baseSHA,
		Changes: changes,
		Commits: commits,
	}

	dirs := make(map[string]bool)
	for _, c := range changes {
		dirs[path.Dir(c.Path)] = true
		a.TotalLines += c.Additions + c.Deletions
		if m.isConflictProne(c) {
			a.ConflictProne = append(a.ConflictProne, c.Path)
		}
	}
	for d := range dirs {
		a.Directories = append(a.Directories, d)
	}
	sort.Strings(a.Directories)
	sort.Strings(a.ConflictProne)

	return a, nil
}

// isConflictProne flags lockfile/schema/migration paths and high-churn
// files.
func (m *Manager) isConflictProne(c merge.FileChange) bool {
	base := path.Base(c.Path)
	for _, pattern := range m.cfg.ConflictPronePatterns {
		if ok, _ := path.Match(pattern, base); ok {
			return true
		}
		if ok, _ := path.Match(pattern, c.Path); ok {
			return true
		}
	}
	return c.Additions+c.Deletions > m.cfg.ConflictProneLines
}

// Paths returns the sorted set of file paths the analysis touches. Renames
// contribute both the old and the new path.
func (a *Analysis) Paths() []string {
	set := make(map[string]bool, len(a.Changes))
	for _, c := range a.Changes {
		set[c.Path] = true
		if c.OldPath != "" {
			set[c.OldPath] = true
		}
	}
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
