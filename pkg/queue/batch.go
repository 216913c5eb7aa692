package queue

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/loomvcs/loom/pkg/object"
)

// BatchResult reports the outcome of one optimistic batch pass: which
// changesets merged, which failed and why, and where the target branch
// ended up. Every entry appears in exactly one of Merged or Failed.
type BatchResult struct {
	BatchID      string
	TargetBranch string
	Merged       []ChangesetID
	Failed       map[ChangesetID]string
	Tip          object.Hash
	Attempts     int // reassemble passes, bounded by O(log n) per bad entry
}

// ProcessBatch merges a batch of changesets onto targetBranch using the
// optimistic strategy: try the whole batch in one reassemble pass; on
// failure, recursively split the batch in half to isolate the incompatible
// changeset(s). Holds the per-branch processing lock for the whole pass
// and advances the branch ref once at the end, CAS-guarded against the
// starting tip.
func (m *Manager) ProcessBatch(targetBranch string, entries []Entry) (*BatchResult, error) {
	res := &BatchResult{
		BatchID:      uuid.NewString(),
		TargetBranch: targetBranch,
		Failed:       make(map[ChangesetID]string),
	}
	if len(entries) == 0 {
		return res, nil
	}

	unlock := m.locks.acquire(targetBranch)
	defer unlock()

	startTip, err := m.repo.ResolveRef(targetBranch)
	if err != nil {
		return nil, fmt.Errorf("process batch: resolve %q: %w", targetBranch, err)
	}

	var analyses []*Analysis
	for _, e := range entries {
		m.setEntryState(e.ID, EntryPreparing, "", "")
		a, err := m.Analyze(e.ID, e.HeadSHA, e.BaseSHA)
		if err != nil {
			// A changeset with unreadable history fails alone; the rest
			// of the batch proceeds.
			res.Failed[e.ID] = err.Error()
			m.setEntryState(e.ID, EntryFailed, err.Error(), "")
			continue
		}
		analyses = append(analyses, a)
	}

	ordered := m.DetermineOptimalOrder(analyses)
	for _, a := range ordered {
		m.setEntryState(a.ID, EntryReady, "", "")
		m.setEntryState(a.ID, EntryMerging, "", "")
	}

	m.saveBatch(res, entries, BatchPreparing, "")

	tip, err := m.mergeGroup(startTip, ordered, res)
	if err != nil {
		m.saveBatch(res, entries, BatchFailed, "")
		return nil, err
	}
	res.Tip = tip

	if len(res.Merged) > 0 && tip != startTip {
		if err := m.repo.UpdateRefCAS(targetBranch, tip, startTip); err != nil {
			m.saveBatch(res, entries, BatchFailed, "")
			return nil, fmt.Errorf("process batch: advance %q: %w", targetBranch, err)
		}
	}

	for _, id := range res.Merged {
		m.setEntryState(id, EntryCompleted, "", tip)
		m.publish(EventEntryMerged, map[string]any{
			"id": string(id), "branch": targetBranch, "batch": res.BatchID,
		})
	}
	for id, reason := range res.Failed {
		m.setEntryState(id, EntryFailed, reason, "")
		m.publish(EventEntryFailed, map[string]any{
			"id": string(id), "branch": targetBranch, "batch": res.BatchID, "reason": reason,
		})
	}

	if len(res.Failed) == 0 {
		m.saveBatch(res, entries, BatchCompleted, tip)
		m.publish(EventBatchCompleted, map[string]any{
			"batch": res.BatchID, "branch": targetBranch,
			"merged": len(res.Merged), "tip": string(tip),
		})
	} else {
		m.saveBatch(res, entries, BatchFailed, tip)
		m.publish(EventBatchFailed, map[string]any{
			"batch": res.BatchID, "branch": targetBranch,
			"merged": len(res.Merged), "failed": len(res.Failed),
		})
	}

	m.log.Info("batch processed",
		"batch", res.BatchID,
		"branch", targetBranch,
		"merged", len(res.Merged),
		"failed", len(res.Failed),
		"attempts", res.Attempts,
	)
	return res, nil
}

// mergeGroup is the recursive batch bisection. A group that fails as a
// whole is split in half; the second half is retried on top of whatever
// the first half produced. A single-entry group that still fails is
// reported failed and the recursion continues elsewhere.
func (m *Manager) mergeGroup(tip object.Hash, group []*Analysis, res *BatchResult) (object.Hash, error) {
	if len(group) == 0 {
		return tip, nil
	}

	res.Attempts++
	r, err := m.ReassembleCommits(tip, group)
	if err != nil {
		return "", err
	}
	if r.FailedID == "" {
		res.Merged = append(res.Merged, r.Merged...)
		return r.Tip, nil
	}
	if len(group) == 1 {
		res.Failed[group[0].ID] = r.FailReason
		return tip, nil
	}

	mid := len(group) / 2
	tip, err = m.mergeGroup(tip, group[:mid], res)
	if err != nil {
		return "", err
	}
	return m.mergeGroup(tip, group[mid:], res)
}

func (m *Manager) saveBatch(res *BatchResult, entries []Entry, state BatchState, tip object.Hash) {
	if m.store == nil {
		return
	}
	ids := make([]ChangesetID, len(entries))
	for i, e := range entries {
		ids[i] = e.ID
	}
	now := time.Now().Unix()
	rec := BatchRecord{
		ID:           res.BatchID,
		TargetBranch: res.TargetBranch,
		EntryIDs:     ids,
		State:        state,
		Tip:          tip,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if existing, err := m.store.GetBatch(res.BatchID); err == nil {
		rec.CreatedAt = existing.CreatedAt
	}
	if err := m.store.SaveBatch(rec); err != nil {
		m.log.Warn("persist batch", "batch", res.BatchID, "error", err)
	}
}
