package graph

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/object"
)

// CommitsBetween walks first-parent history from head down to base and
// returns the commits after base up to and including head, oldest first
// (replay order). If base is never reached on the first-parent chain the
// walk stops at the root commit and everything walked is returned.
func (n *Navigator) CommitsBetween(head, base object.Hash) ([]object.Hash, error) {
	if head == "" || head == base {
		return nil, nil
	}

	limit := traversalLimit()
	var newestFirst []object.Hash
	cur := head

	for cur != "" && cur != base {
		if len(newestFirst) > limit {
			return nil, fmt.Errorf("history walk from %s: exceeded %d commits", head, limit)
		}
		commit, err := n.store.ReadCommit(cur)
		if err != nil {
			return nil, fmt.Errorf("history walk: read commit %s: %w", cur, err)
		}
		newestFirst = append(newestFirst, cur)
		if len(commit.Parents) == 0 {
			break
		}
		cur = commit.Parents[0]
	}

	// Reverse into oldest-first order.
	for i, j := 0, len(newestFirst)-1; i < j; i, j = i+1, j-1 {
		newestFirst[i], newestFirst[j] = newestFirst[j], newestFirst[i]
	}
	return newestFirst, nil
}

// Log returns up to limit commits starting at start, following first-parent
// links, newest first.
func (n *Navigator) Log(start object.Hash, limit int) ([]*object.CommitObj, []object.Hash, error) {
	var commits []*object.CommitObj
	var hashes []object.Hash
	cur := start

	for cur != "" && (limit <= 0 || len(commits) < limit) {
		c, err := n.store.ReadCommit(cur)
		if err != nil {
			return nil, nil, fmt.Errorf("log: read commit %s: %w", cur, err)
		}
		commits = append(commits, c)
		hashes = append(hashes, cur)
		if len(c.Parents) == 0 {
			break
		}
		cur = c.Parents[0]
	}
	return commits, hashes, nil
}
