package graph

import (
	"fmt"

	"github.com/loomvcs/loom/pkg/object"
)

// FindMergeBase returns one lowest common ancestor of a and b, or "" when
// the histories are unrelated. It builds the full ancestor set of one side
// and then walks breadth-first from the other, returning the first commit
// found in the set.
//
// Arguments are normalized before the walk and results are memoized per
// pair, so FindMergeBase(a, b) == FindMergeBase(b, a) always holds. In
// criss-cross topologies with multiple merge bases only one is returned,
// chosen by discovery order; callers must not assume it is the unique
// lowest common ancestor. This is a known limitation kept deliberately:
// downstream ordering heuristics depend on the simpler behavior.
//
// Unlike IsAncestor, merge-base discovery is used for merge correctness, so
// unreadable commits inside a walked history propagate as errors.
func (n *Navigator) FindMergeBase(a, b object.Hash) (object.Hash, error) {
	if a == "" || b == "" {
		return "", nil
	}
	if a == b {
		return a, nil
	}

	// Canonical pair order makes the computation order-independent.
	pair := basePair{a: a, b: b}
	if b < a {
		pair = basePair{a: b, b: a}
	}
	if cached, ok := n.loadCachedBase(pair); ok {
		if !cached.found {
			return "", nil
		}
		return cached.base, nil
	}

	ancestors, err := n.ancestorSet(pair.a)
	if err != nil {
		return "", err
	}

	base, found, err := n.firstInSet(pair.b, ancestors)
	if err != nil {
		return "", err
	}
	n.storeCachedBase(pair, baseResult{base: base, found: found})
	if !found {
		return "", nil
	}
	return base, nil
}

// ancestorSet walks breadth-first from start collecting every reachable
// commit, start included.
func (n *Navigator) ancestorSet(start object.Hash) (map[object.Hash]struct{}, error) {
	limit := traversalLimit()
	set := map[object.Hash]struct{}{start: {}}
	queue := []object.Hash{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if len(set) > limit {
			return nil, fmt.Errorf("ancestor walk from %s: exceeded %d commits", start, limit)
		}

		commit, err := n.store.ReadCommit(cur)
		if err != nil {
			return nil, fmt.Errorf("ancestor walk: read commit %s: %w", cur, err)
		}
		for _, p := range commit.Parents {
			if p == "" {
				continue
			}
			if _, seen := set[p]; seen {
				continue
			}
			set[p] = struct{}{}
			queue = append(queue, p)
		}
	}
	return set, nil
}

// firstInSet walks breadth-first from start and returns the first commit
// that is a member of set.
func (n *Navigator) firstInSet(start object.Hash, set map[object.Hash]struct{}) (object.Hash, bool, error) {
	limit := traversalLimit()
	visited := map[object.Hash]struct{}{start: {}}
	queue := []object.Hash{start}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if _, ok := set[cur]; ok {
			return cur, true, nil
		}
		if len(visited) > limit {
			return "", false, fmt.Errorf("merge-base walk from %s: exceeded %d commits", start, limit)
		}

		commit, err := n.store.ReadCommit(cur)
		if err != nil {
			return "", false, fmt.Errorf("merge-base walk: read commit %s: %w", cur, err)
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
	return "", false, nil
}
