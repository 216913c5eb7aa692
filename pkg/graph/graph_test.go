package graph

import (
	"fmt"
	"testing"

	"github.com/loomvcs/loom/pkg/object"
)

// testCommit writes a commit with an empty tree and the given parents. The
// message carries a sequence number so every commit hashes uniquely.
func testCommit(t *testing.T, s *object.Store, seq int, parents ...object.Hash) object.Hash {
	t.Helper()
	treeHash, err := s.WriteTree(&object.TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	h, err := s.WriteCommit(&object.CommitObj{
		TreeHash:  treeHash,
		Parents:   parents,
		Author:    "test",
		Timestamp: int64(seq),
		Message:   fmt.Sprintf("commit %d", seq),
	})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	return h
}

// chain creates n commits in a line starting from parent (may be empty) and
// returns them oldest first.
func chain(t *testing.T, s *object.Store, startSeq, n int, parent object.Hash) []object.Hash {
	t.Helper()
	out := make([]object.Hash, 0, n)
	cur := parent
	for i := 0; i < n; i++ {
		var parents []object.Hash
		if cur != "" {
			parents = []object.Hash{cur}
		}
		cur = testCommit(t, s, startSeq+i, parents...)
		out = append(out, cur)
	}
	return out
}

func TestIsAncestorLinear(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	commits := chain(t, s, 0, 5, "")
	if !n.IsAncestor(commits[0], commits[4]) {
		t.Error("root should be ancestor of tip")
	}
	if !n.IsAncestor(commits[4], commits[4]) {
		t.Error("a commit is its own ancestor")
	}
	if n.IsAncestor(commits[4], commits[0]) {
		t.Error("tip is not ancestor of root")
	}
}

func TestIsAncestorAcrossMerge(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	root := testCommit(t, s, 0)
	left := testCommit(t, s, 1, root)
	right := testCommit(t, s, 2, root)
	mergeCommit := testCommit(t, s, 3, left, right)

	if !n.IsAncestor(right, mergeCommit) {
		t.Error("second parent should be reachable through merge commit")
	}
	if n.IsAncestor(left, right) {
		t.Error("siblings are not ancestors of each other")
	}
}

func TestIsAncestorUnreadableIsDeadEnd(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	// A commit whose parent was never written.
	phantom := object.HashBytes([]byte("never written"))
	tip := testCommit(t, s, 0, phantom)

	if n.IsAncestor(object.HashBytes([]byte("elsewhere")), tip) {
		t.Error("walk through missing history must not claim ancestry")
	}
	if !n.IsAncestor(phantom, tip) {
		t.Error("the phantom hash itself is still a listed parent")
	}
}

func TestFindMergeBaseFork(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	trunk := chain(t, s, 0, 3, "")
	fork := trunk[2]
	left := chain(t, s, 10, 2, fork)
	right := chain(t, s, 20, 3, fork)

	base, err := n.FindMergeBase(left[1], right[2])
	if err != nil {
		t.Fatalf("FindMergeBase: %v", err)
	}
	if base != fork {
		t.Errorf("merge base: got %s, want fork %s", base, fork)
	}

	// Symmetry.
	swapped, err := n.FindMergeBase(right[2], left[1])
	if err != nil {
		t.Fatalf("FindMergeBase swapped: %v", err)
	}
	if swapped != base {
		t.Errorf("FindMergeBase is not symmetric: %s vs %s", swapped, base)
	}
}

func TestFindMergeBaseAncestorFastPath(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	commits := chain(t, s, 0, 4, "")
	base, err := n.FindMergeBase(commits[3], commits[1])
	if err != nil {
		t.Fatalf("FindMergeBase: %v", err)
	}
	if base != commits[1] {
		t.Errorf("base of ancestor pair: got %s, want %s", base, commits[1])
	}
}

func TestFindMergeBaseUnrelated(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	a := chain(t, s, 0, 2, "")
	b := chain(t, s, 10, 2, "")

	base, err := n.FindMergeBase(a[1], b[1])
	if err != nil {
		t.Fatalf("FindMergeBase: %v", err)
	}
	if base != "" {
		t.Errorf("unrelated histories should have no base, got %s", base)
	}
}

func TestFindMergeBaseCrissCross(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	root := testCommit(t, s, 0)
	x := testCommit(t, s, 1, root)
	y := testCommit(t, s, 2, root)
	// Criss-cross: each side merges the other once.
	mx := testCommit(t, s, 3, x, y)
	my := testCommit(t, s, 4, y, x)
	tipA := testCommit(t, s, 5, mx)
	tipB := testCommit(t, s, 6, my)

	base, err := n.FindMergeBase(tipA, tipB)
	if err != nil {
		t.Fatalf("FindMergeBase: %v", err)
	}
	// Both x and y are merge bases; one of them must be returned.
	if base != x && base != y {
		t.Errorf("criss-cross base: got %s, want %s or %s", base, x, y)
	}

	swapped, err := n.FindMergeBase(tipB, tipA)
	if err != nil {
		t.Fatalf("FindMergeBase swapped: %v", err)
	}
	if swapped != base {
		t.Errorf("criss-cross result not symmetric: %s vs %s", swapped, base)
	}
}

func TestCommitsBetweenOldestFirst(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	commits := chain(t, s, 0, 5, "")
	between, err := n.CommitsBetween(commits[4], commits[1])
	if err != nil {
		t.Fatalf("CommitsBetween: %v", err)
	}
	want := []object.Hash{commits[2], commits[3], commits[4]}
	if len(between) != len(want) {
		t.Fatalf("count: got %d, want %d", len(between), len(want))
	}
	for i := range want {
		if between[i] != want[i] {
			t.Errorf("position %d: got %s, want %s", i, between[i], want[i])
		}
	}
}

func TestBisectionConverges(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	commits := chain(t, s, 0, 16, "")
	firstBad := 10 // commits[10:] carry the bug

	b, err := n.NewBisection(commits[15], []object.Hash{commits[0]})
	if err != nil {
		t.Fatalf("NewBisection: %v", err)
	}
	if len(b.Range) != 15 {
		t.Fatalf("range size: got %d, want 15", len(b.Range))
	}

	index := make(map[object.Hash]int, len(commits))
	for i, h := range commits {
		index[h] = i
	}

	marks := make(map[object.Hash]Mark)
	steps := 0
	for {
		candidate, more := b.Next(marks)
		if !more {
			break
		}
		steps++
		if steps > 10 {
			t.Fatalf("bisection did not converge after %d steps", steps)
		}
		if index[candidate] >= firstBad {
			marks[candidate] = MarkBad
		} else {
			marks[candidate] = MarkGood
		}
	}

	culprit, done := b.Culprit(marks)
	if !done {
		t.Fatal("Culprit before convergence")
	}
	if culprit != commits[firstBad] {
		t.Errorf("culprit: got index %d, want %d", index[culprit], firstBad)
	}
	// Binary search over 15 candidates: ceil(log2(15)) == 4 steps.
	if steps > 4 {
		t.Errorf("took %d steps, want <= 4", steps)
	}
}

func TestBisectionStepsEstimate(t *testing.T) {
	s := object.NewStore(t.TempDir())
	n := NewNavigator(s)

	commits := chain(t, s, 0, 9, "")
	b, err := n.NewBisection(commits[8], []object.Hash{commits[0]})
	if err != nil {
		t.Fatalf("NewBisection: %v", err)
	}

	// 8 candidates minus the bad endpoint leaves 7 untested: ceil(log2(7)) == 3.
	if got := b.StepsEstimate(nil); got != 3 {
		t.Errorf("StepsEstimate: got %d, want 3", got)
	}

	// Mark all but one candidate: the last commit still needs one test, so
	// the estimate stays at one rather than the formula's zero.
	marks := map[object.Hash]Mark{}
	for _, h := range b.Untested(nil)[1:] {
		marks[h] = MarkGood
	}
	if got := b.StepsEstimate(marks); got != 1 {
		t.Errorf("StepsEstimate with one candidate left: got %d, want 1", got)
	}

	// Mark the last one too and the search is over.
	for _, h := range b.Untested(nil) {
		marks[h] = MarkGood
	}
	if got := b.StepsEstimate(marks); got != 0 {
		t.Errorf("StepsEstimate after convergence: got %d, want 0", got)
	}
}
