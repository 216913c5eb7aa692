package queue

import (
	"fmt"
	"strings"

	"github.com/loomvcs/loom/pkg/object"
)

// RebaseError reports a failure while replaying one commit onto a new
// base. No partial rebase result is usable.
type RebaseError struct {
	Commit        object.Hash
	ConflictPaths []string
	Reason        string
}

func (e *RebaseError) Error() string {
	if len(e.ConflictPaths) > 0 {
		return fmt.Sprintf("rebase failed at %s: conflicts in %s",
			e.Commit, strings.Join(e.ConflictPaths, ", "))
	}
	return fmt.Sprintf("rebase failed at %s: %s", e.Commit, e.Reason)
}

// CanFastForward reports whether baseSHA is already an ancestor of
// headSHA, so advancing a ref from base to head needs no merge commit.
func (m *Manager) CanFastForward(headSHA, baseSHA object.Hash) (bool, error) {
	if baseSHA == "" {
		return false, nil
	}
	base, err := m.nav.FindMergeBase(headSHA, baseSHA)
	if err != nil {
		return false, err
	}
	return base == baseSHA, nil
}

// FastForward advances targetBranch to headSHA if and only if the current
// tip is an ancestor of headSHA.
func (m *Manager) FastForward(targetBranch string, headSHA object.Hash) error {
	unlock := m.locks.acquire(targetBranch)
	defer unlock()

	tip, err := m.repo.ResolveRef(targetBranch)
	if err != nil {
		return fmt.Errorf("fast-forward %q: %w", targetBranch, err)
	}
	ok, err := m.CanFastForward(headSHA, tip)
	if err != nil {
		return fmt.Errorf("fast-forward %q: %w", targetBranch, err)
	}
	if !ok {
		return fmt.Errorf("fast-forward %q: %s is not a descendant of the current tip", targetBranch, headSHA)
	}
	if err := m.repo.UpdateRefCAS(targetBranch, headSHA, tip); err != nil {
		return fmt.Errorf("fast-forward %q: %w", targetBranch, err)
	}
	return nil
}

// RebasePR replays each commit between originalBaseSHA and headSHA
// (oldest first) as a new commit whose ancestry starts at ontoSHA. Each
// replay applies only that commit's delta against its immediate parent.
// The returned head carries identical content deltas with rewritten
// ancestry.
func (m *Manager) RebasePR(headSHA, originalBaseSHA, ontoSHA object.Hash) (object.Hash, error) {
	commits, err := m.nav.CommitsBetween(headSHA, originalBaseSHA)
	if err != nil {
		return "", fmt.Errorf("rebase: %w", err)
	}

	newBase := ontoSHA
	for _, c := range commits {
		newHash, result, err := m.engine.ApplyCommit(c, newBase)
		if err != nil {
			rerr := &RebaseError{Commit: c, Reason: err.Error()}
			m.publish(EventRebaseFailed, map[string]any{"commit": string(c), "reason": rerr.Reason})
			return "", rerr
		}
		if result.HasConflicts() {
			rerr := &RebaseError{Commit: c, ConflictPaths: result.ConflictPaths()}
			m.publish(EventRebaseFailed, map[string]any{
				"commit": string(c), "conflicts": result.ConflictPaths(),
			})
			return "", rerr
		}
		newBase = newHash
	}

	m.publish(EventRebaseDone, map[string]any{
		"head": string(headSHA), "onto": string(ontoSHA), "new_head": string(newBase),
	})
	return newBase, nil
}
