package graph

import (
	"fmt"
	"math"

	"github.com/loomvcs/loom/pkg/object"
)

// Mark records the test verdict for one commit during a bisection.
type Mark string

const (
	MarkGood    Mark = "good"
	MarkBad     Mark = "bad"
	MarkSkipped Mark = "skipped"
)

// Bisection is a binary search over the commit range between a known-bad
// commit and one or more known-good commits. The range is built once; the
// caller owns the verdict marks (typically persisted in a CLI session file)
// and asks for the next candidate each step.
type Bisection struct {
	nav *Navigator

	Bad  object.Hash
	Good []object.Hash

	// Range holds the candidate commits, ordered by BFS discovery from the
	// bad commit (nearest to bad first). The bad commit itself is included;
	// good commits and their ancestors are not.
	Range []object.Hash
}

// NewBisection builds the path-connected commit range between bad and the
// good commits: a breadth-first walk from bad following parents, stopping
// at any good commit.
func (n *Navigator) NewBisection(bad object.Hash, good []object.Hash) (*Bisection, error) {
	if bad == "" {
		return nil, fmt.Errorf("bisect: bad commit is required")
	}
	if len(good) == 0 {
		return nil, fmt.Errorf("bisect: at least one good commit is required")
	}

	goodSet := make(map[object.Hash]struct{}, len(good))
	for _, g := range good {
		if g == bad {
			return nil, fmt.Errorf("bisect: commit %s is marked both good and bad", g)
		}
		goodSet[g] = struct{}{}
	}

	limit := traversalLimit()
	visited := map[object.Hash]struct{}{bad: {}}
	queue := []object.Hash{bad}
	var rng []object.Hash

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if _, isGood := goodSet[cur]; isGood {
			continue
		}
		if len(visited) > limit {
			return nil, fmt.Errorf("bisect: range walk exceeded %d commits", limit)
		}

		rng = append(rng, cur)

		commit, err := n.store.ReadCommit(cur)
		if err != nil {
			return nil, fmt.Errorf("bisect: read commit %s: %w", cur, err)
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

	return &Bisection{nav: n, Bad: bad, Good: good, Range: rng}, nil
}

// Untested returns the candidates that have no verdict yet, explicit or
// implied. A verdict propagates: an ancestor of a good commit is good, and
// a descendant of a bad commit is bad (the bug, once present, stays
// present). The known-bad endpoint needs no test and is excluded.
func (b *Bisection) Untested(marks map[object.Hash]Mark) []object.Hash {
	var good, bad []object.Hash
	for h, m := range marks {
		switch m {
		case MarkGood:
			good = append(good, h)
		case MarkBad:
			bad = append(bad, h)
		}
	}

	var out []object.Hash
candidates:
	for _, h := range b.Range {
		if h == b.Bad {
			continue
		}
		if _, marked := marks[h]; marked {
			continue
		}
		for _, g := range good {
			if b.nav.IsAncestor(h, g) {
				continue candidates
			}
		}
		for _, bd := range bad {
			if b.nav.IsAncestor(bd, h) {
				continue candidates
			}
		}
		out = append(out, h)
	}
	return out
}

// Next selects the candidate nearest the midpoint of the remaining untested
// set. It returns false when the search has converged (no untested
// candidates remain).
func (b *Bisection) Next(marks map[object.Hash]Mark) (object.Hash, bool) {
	remaining := b.Untested(marks)
	if len(remaining) == 0 {
		return "", false
	}
	return remaining[len(remaining)/2], true
}

// StepsEstimate returns ceil(log2(remaining untested candidate count)), the
// expected number of test steps left. A single remaining candidate reports
// one step, not the formula's zero: that commit still has to be tested
// before Culprit can answer.
func (b *Bisection) StepsEstimate(marks map[object.Hash]Mark) int {
	remaining := len(b.Untested(marks))
	if remaining <= 1 {
		return remaining
	}
	return int(math.Ceil(math.Log2(float64(remaining))))
}

// Culprit reports the earliest bad commit in the range: the marked-bad
// commit (the known-bad endpoint included) that has no other bad commit
// among its ancestors. It returns false while untested candidates remain.
func (b *Bisection) Culprit(marks map[object.Hash]Mark) (object.Hash, bool) {
	if _, more := b.Next(marks); more {
		return "", false
	}

	var bad []object.Hash
	for _, h := range b.Range {
		if h == b.Bad || marks[h] == MarkBad {
			bad = append(bad, h)
		}
	}

	for _, candidate := range bad {
		earliest := true
		for _, other := range bad {
			if other == candidate {
				continue
			}
			if b.nav.IsAncestor(other, candidate) {
				earliest = false
				break
			}
		}
		if earliest {
			return candidate, true
		}
	}
	return b.Bad, true
}
