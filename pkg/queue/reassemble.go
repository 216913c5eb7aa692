package queue

import (
	"fmt"
	"strings"

	"github.com/loomvcs/loom/pkg/object"
)

// ReassembleResult reports one sequential merge pass over an ordered set
// of changesets. FailedID is empty when every changeset merged.
type ReassembleResult struct {
	Merged        []ChangesetID
	Tip           object.Hash // last successfully merged tip
	FailedID      ChangesetID
	FailReason    string
	ConflictPaths []string
	MergeCalls    int // merge-engine invocations
}

// ReassembleCommits merges the ordered changesets onto tip one by one,
// advancing the tip after each success. It aborts on the first conflict,
// reporting the failing changeset and everything merged before it. Commits
// written before the abort remain valid reachable objects; no ref is moved
// here — that is the caller's decision.
func (m *Manager) ReassembleCommits(tip object.Hash, ordered []*Analysis) (*ReassembleResult, error) {
	res := &ReassembleResult{Tip: tip}

	for _, a := range ordered {
		base, err := m.nav.FindMergeBase(res.Tip, a.HeadSHA)
		if err != nil {
			return nil, fmt.Errorf("reassemble %s: merge base: %w", a.ID, err)
		}
		if base == "" {
			// Unrelated history is a hard failure for merge purposes.
			res.FailedID = a.ID
			res.FailReason = "no common ancestor with target branch"
			return res, nil
		}
		if base == a.HeadSHA {
			// Head already reachable from the tip; nothing to merge.
			res.Merged = append(res.Merged, a.ID)
			continue
		}
		if base == res.Tip {
			// Fast-forward: the tip is an ancestor of the head.
			res.Tip = a.HeadSHA
			res.Merged = append(res.Merged, a.ID)
			continue
		}

		res.MergeCalls++
		message := fmt.Sprintf("Merge changeset %s", a.ID)
		mergeHash, treeResult, err := m.engine.MergeCommits(base, res.Tip, a.HeadSHA, m.cfg.Author, message)
		if err != nil {
			return nil, fmt.Errorf("reassemble %s: %w", a.ID, err)
		}
		if treeResult.HasConflicts() {
			res.FailedID = a.ID
			res.ConflictPaths = treeResult.ConflictPaths()
			res.FailReason = "merge conflict: " + strings.Join(res.ConflictPaths, ", ")
			return res, nil
		}

		res.Tip = mergeHash
		res.Merged = append(res.Merged, a.ID)
	}
	return res, nil
}
