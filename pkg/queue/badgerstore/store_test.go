package badgerstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/loomvcs/loom/pkg/queue"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenInMemory()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestEntryRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := queue.EntryRecord{
		ID:           "cs-1",
		HeadSHA:      "aaaa",
		BaseSHA:      "bbbb",
		TargetBranch: "main",
		State:        queue.EntryPending,
		EnqueuedAt:   100,
		UpdatedAt:    100,
	}
	require.NoError(t, s.SaveEntry(rec))

	got, err := s.GetEntry("cs-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	rec.State = queue.EntryPreparing
	rec.UpdatedAt = 200
	require.NoError(t, s.SaveEntry(rec))
	got, err = s.GetEntry("cs-1")
	require.NoError(t, err)
	assert.Equal(t, queue.EntryPreparing, got.State)

	require.NoError(t, s.DeleteEntry("cs-1"))
	_, err = s.GetEntry("cs-1")
	assert.True(t, errors.Is(err, ErrNotFound))
}

func TestListEntriesOrderedByEnqueueTime(t *testing.T) {
	s := openTestStore(t)

	for i, id := range []queue.ChangesetID{"late", "early", "middle"} {
		require.NoError(t, s.SaveEntry(queue.EntryRecord{
			ID:         id,
			State:      queue.EntryPending,
			EnqueuedAt: int64(100 - i*10),
		}))
	}

	recs, err := s.ListEntries()
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, queue.ChangesetID("middle"), recs[0].ID)
	assert.Equal(t, queue.ChangesetID("early"), recs[1].ID)
	assert.Equal(t, queue.ChangesetID("late"), recs[2].ID)
}

func TestBatchRoundTrip(t *testing.T) {
	s := openTestStore(t)

	rec := queue.BatchRecord{
		ID:           "batch-1",
		TargetBranch: "main",
		EntryIDs:     []queue.ChangesetID{"cs-1", "cs-2"},
		State:        queue.BatchPreparing,
		CreatedAt:    50,
		UpdatedAt:    50,
	}
	require.NoError(t, s.SaveBatch(rec))

	got, err := s.GetBatch("batch-1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = s.GetBatch("missing")
	assert.True(t, errors.Is(err, ErrNotFound))

	batches, err := s.ListBatches()
	require.NoError(t, err)
	assert.Len(t, batches, 1)
}

func TestEntriesAndBatchesDoNotCollide(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.SaveEntry(queue.EntryRecord{ID: "x", State: queue.EntryPending}))
	require.NoError(t, s.SaveBatch(queue.BatchRecord{ID: "x", State: queue.BatchPreparing}))

	entries, err := s.ListEntries()
	require.NoError(t, err)
	batches, err := s.ListBatches()
	require.NoError(t, err)
	assert.Len(t, entries, 1)
	assert.Len(t, batches, 1)
}
