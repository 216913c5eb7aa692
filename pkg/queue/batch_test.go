package queue

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
)

func flattenTip(t *testing.T, r *repo.Repo, commit object.Hash) map[string]string {
	t.Helper()
	c, err := r.Store.ReadCommit(commit)
	require.NoError(t, err)
	flat, err := r.Store.FlattenTree(c.TreeHash, "")
	require.NoError(t, err)
	out := make(map[string]string, len(flat))
	for p, fe := range flat {
		blob, err := r.Store.ReadBlob(fe.Hash)
		require.NoError(t, err)
		out[p] = string(blob.Data)
	}
	return out
}

func TestReassembleCommitsSequential(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	base := map[string]string{"a.txt": "1"}
	tip := seedMain(t, r, base)

	head1 := writeCommit(t, r, map[string]string{"a.txt": "1", "b.txt": "2"}, "add b", tip)
	head2 := writeCommit(t, r, map[string]string{"a.txt": "1", "c.txt": "3"}, "add c", tip)

	a1, err := m.Analyze("cs-1", head1, tip)
	require.NoError(t, err)
	a2, err := m.Analyze("cs-2", head2, tip)
	require.NoError(t, err)

	res, err := m.ReassembleCommits(tip, []*Analysis{a1, a2})
	require.NoError(t, err)
	assert.Empty(t, res.FailedID)
	assert.Equal(t, []ChangesetID{"cs-1", "cs-2"}, res.Merged)

	files := flattenTip(t, r, res.Tip)
	assert.Equal(t, map[string]string{"a.txt": "1", "b.txt": "2", "c.txt": "3"}, files)
}

func TestReassembleCommitsAbortsOnFirstConflict(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"f.txt": "x"})

	head1 := writeCommit(t, r, map[string]string{"f.txt": "y"}, "to y", tip)
	head2 := writeCommit(t, r, map[string]string{"f.txt": "z"}, "to z", tip)

	a1, err := m.Analyze("cs-1", head1, tip)
	require.NoError(t, err)
	a2, err := m.Analyze("cs-2", head2, tip)
	require.NoError(t, err)

	res, err := m.ReassembleCommits(tip, []*Analysis{a1, a2})
	require.NoError(t, err)
	assert.Equal(t, []ChangesetID{"cs-1"}, res.Merged)
	assert.Equal(t, ChangesetID("cs-2"), res.FailedID)
	assert.Equal(t, []string{"f.txt"}, res.ConflictPaths)

	// The failing changeset did not move the tip past the last success.
	files := flattenTip(t, r, res.Tip)
	assert.Equal(t, "y", files["f.txt"])
}

func TestReassembleFastForwardsDescendant(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"a.txt": "1"})
	head := writeCommit(t, r, map[string]string{"a.txt": "1", "b.txt": "2"}, "add b", tip)

	a, err := m.Analyze("cs-1", head, tip)
	require.NoError(t, err)

	res, err := m.ReassembleCommits(tip, []*Analysis{a})
	require.NoError(t, err)
	assert.Equal(t, head, res.Tip, "a direct descendant fast-forwards without a merge commit")
	assert.Zero(t, res.MergeCalls)
}

func TestProcessBatchAdvancesBranch(t *testing.T) {
	m, r, pub, ms := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"a.txt": "1"})
	head1 := writeCommit(t, r, map[string]string{"a.txt": "1", "b.txt": "2"}, "add b", tip)
	head2 := writeCommit(t, r, map[string]string{"a.txt": "1", "c.txt": "3"}, "add c", tip)

	entries := []Entry{
		{ID: "cs-1", HeadSHA: head1, BaseSHA: tip},
		{ID: "cs-2", HeadSHA: head2, BaseSHA: tip},
	}
	for _, e := range entries {
		require.NoError(t, m.Enqueue("main", e))
	}

	res, err := m.ProcessBatch("main", entries)
	require.NoError(t, err)
	assert.ElementsMatch(t, []ChangesetID{"cs-1", "cs-2"}, res.Merged)
	assert.Empty(t, res.Failed)

	newTip, err := r.ResolveRef("main")
	require.NoError(t, err)
	assert.Equal(t, res.Tip, newTip)
	assert.Equal(t, map[string]string{"a.txt": "1", "b.txt": "2", "c.txt": "3"},
		flattenTip(t, r, newTip))

	rec, err := ms.GetEntry("cs-1")
	require.NoError(t, err)
	assert.Equal(t, EntryCompleted, rec.State)

	var names []string
	for _, ev := range pub.Events() {
		names = append(names, ev.Name)
	}
	assert.Contains(t, names, EventEntryMerged)
	assert.Contains(t, names, EventBatchCompleted)
}

func TestProcessBatchBisectionIsolation(t *testing.T) {
	m, r, pub, _ := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"hot.txt": "orig\n", "a.txt": "1\n"})

	// Seven changesets make the identical edit to hot.txt (same blob, so
	// they merge cleanly with each other); one makes a divergent edit.
	const n = 8
	const badIndex = 5
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		hot := "good\n"
		if i == badIndex {
			hot = "bad\n"
		}
		files := map[string]string{
			"hot.txt": hot,
			"a.txt":   "1\n",
			fmt.Sprintf("feature-%d.txt", i): fmt.Sprintf("%d\n", i),
		}
		head := writeCommit(t, r, files, fmt.Sprintf("changeset %d", i), tip)
		entries = append(entries, Entry{
			ID:      ChangesetID(fmt.Sprintf("cs-%d", i)),
			HeadSHA: head,
			BaseSHA: tip,
		})
	}

	res, err := m.ProcessBatch("main", entries)
	require.NoError(t, err)

	require.Len(t, res.Failed, 1)
	_, failedBad := res.Failed[ChangesetID(fmt.Sprintf("cs-%d", badIndex))]
	assert.True(t, failedBad, "exactly the divergent changeset must fail: %v", res.Failed)
	assert.Len(t, res.Merged, n-1)

	// Bisection keeps isolation cost logarithmic: one full attempt plus
	// two per halving level.
	assert.LessOrEqual(t, res.Attempts, 7, "attempts for n=8 with one bad entry")

	newTip, err := r.ResolveRef("main")
	require.NoError(t, err)
	files := flattenTip(t, r, newTip)
	assert.Equal(t, "good\n", files["hot.txt"])
	for i := 0; i < n; i++ {
		_, present := files[fmt.Sprintf("feature-%d.txt", i)]
		assert.Equal(t, i != badIndex, present, "feature-%d.txt", i)
	}

	var batchFailed bool
	for _, ev := range pub.Events() {
		if ev.Name == EventBatchFailed {
			batchFailed = true
		}
	}
	assert.True(t, batchFailed, "a batch with any failed entry reports batch failure")
}

func TestProcessBatchUnrelatedHistoryFailsAlone(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"a.txt": "1"})
	related := writeCommit(t, r, map[string]string{"a.txt": "1", "b.txt": "2"}, "add b", tip)
	orphan := writeCommit(t, r, map[string]string{"z.txt": "zzz"}, "rootless")

	res, err := m.ProcessBatch("main", []Entry{
		{ID: "cs-ok", HeadSHA: related, BaseSHA: tip},
		{ID: "cs-orphan", HeadSHA: orphan, BaseSHA: orphan},
	})
	require.NoError(t, err)
	assert.Equal(t, []ChangesetID{"cs-ok"}, res.Merged)
	assert.Contains(t, res.Failed["cs-orphan"], "no common ancestor")
}

func TestCanFastForward(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	tip := seedMain(t, r, map[string]string{"a.txt": "1"})
	child := writeCommit(t, r, map[string]string{"a.txt": "2"}, "edit", tip)

	ok, err := m.CanFastForward(child, tip)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = m.CanFastForward(tip, child)
	require.NoError(t, err)
	assert.False(t, ok, "an ancestor cannot fast-forward onto its descendant")

	require.NoError(t, m.FastForward("main", child))
	got, err := r.ResolveRef("main")
	require.NoError(t, err)
	assert.Equal(t, child, got)

	// A second fast-forward to a non-descendant must refuse.
	sibling := writeCommit(t, r, map[string]string{"a.txt": "3"}, "sibling", tip)
	err = m.FastForward("main", sibling)
	assert.Error(t, err)
}

func TestRebasePreservesContentDelta(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	oldBase := seedMain(t, r, map[string]string{"a.txt": "1"})
	head := writeCommit(t, r, map[string]string{"a.txt": "1", "x.txt": "added"}, "add x", oldBase)
	newBase := writeCommit(t, r, map[string]string{"a.txt": "1", "other.txt": "unrelated"}, "advance", oldBase)

	newHead, err := m.RebasePR(head, oldBase, newBase)
	require.NoError(t, err)

	c, err := r.Store.ReadCommit(newHead)
	require.NoError(t, err)
	assert.Equal(t, []object.Hash{newBase}, c.Parents)
	assert.Equal(t, "add x", c.Message)

	files := flattenTip(t, r, newHead)
	assert.Equal(t, map[string]string{
		"a.txt": "1", "other.txt": "unrelated", "x.txt": "added",
	}, files)
}

func TestRebaseConflictSurfacesPaths(t *testing.T) {
	m, r, pub, _ := newTestManager(t)

	oldBase := seedMain(t, r, map[string]string{"a.txt": "1"})
	head := writeCommit(t, r, map[string]string{"a.txt": "mine"}, "mine", oldBase)
	newBase := writeCommit(t, r, map[string]string{"a.txt": "theirs"}, "theirs", oldBase)

	_, err := m.RebasePR(head, oldBase, newBase)
	var rerr *RebaseError
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, head, rerr.Commit)
	assert.Equal(t, []string{"a.txt"}, rerr.ConflictPaths)

	var sawFailure bool
	for _, ev := range pub.Events() {
		if ev.Name == EventRebaseFailed {
			sawFailure = true
		}
	}
	assert.True(t, sawFailure)
}

func TestRebaseMultiCommitChain(t *testing.T) {
	m, r, _, _ := newTestManager(t)

	oldBase := seedMain(t, r, map[string]string{"a.txt": "1"})
	mid := writeCommit(t, r, map[string]string{"a.txt": "1", "one.txt": "1"}, "one", oldBase)
	head := writeCommit(t, r, map[string]string{"a.txt": "1", "one.txt": "1", "two.txt": "2"}, "two", mid)
	newBase := writeCommit(t, r, map[string]string{"a.txt": "1", "base.txt": "b"}, "advance", oldBase)

	newHead, err := m.RebasePR(head, oldBase, newBase)
	require.NoError(t, err)

	// Both deltas replayed, oldest first, linear ancestry onto newBase.
	files := flattenTip(t, r, newHead)
	assert.Equal(t, map[string]string{
		"a.txt": "1", "base.txt": "b", "one.txt": "1", "two.txt": "2",
	}, files)

	c, err := r.Store.ReadCommit(newHead)
	require.NoError(t, err)
	require.Len(t, c.Parents, 1)
	parent, err := r.Store.ReadCommit(c.Parents[0])
	require.NoError(t, err)
	require.Len(t, parent.Parents, 1)
	assert.Equal(t, newBase, parent.Parents[0])
}
