package graph

import "github.com/loomvcs/loom/pkg/object"

// IsAncestor reports whether candidate is an ancestor of (or equal to)
// descendant. It walks breadth-first from descendant following parent links
// until candidate is found or the frontier is exhausted, with a hard
// visited-node cap to bound pathological histories.
//
// IsAncestor never fails: missing or unreadable commits are treated as dead
// ends in the walk.
func (n *Navigator) IsAncestor(candidate, descendant object.Hash) bool {
	if candidate == "" || descendant == "" {
		return false
	}
	if candidate == descendant {
		return true
	}

	limit := traversalLimit()
	visited := map[object.Hash]struct{}{descendant: {}}
	queue := []object.Hash{descendant}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == candidate {
			return true
		}
		if len(visited) > limit {
			return false
		}

		commit, err := n.store.ReadCommit(cur)
		if err != nil {
			// Dead end: unreadable history is not an ancestry claim.
			continue
		}
		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			if _, seen := visited[p]; seen {
				continue
			}
			visited[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return false
}
