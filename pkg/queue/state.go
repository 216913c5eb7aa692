package queue

import (
	"github.com/loomvcs/loom/pkg/object"
)

// ChangesetID identifies a PR-like unit of work: a head commit plus the
// base it diverged from.
type ChangesetID string

// Entry is a changeset handed to the queue for merging.
type Entry struct {
	ID      ChangesetID
	HeadSHA object.Hash
	BaseSHA object.Hash
}

// EntryState is the lifecycle state of a queue entry.
type EntryState string

const (
	EntryPending   EntryState = "pending"
	EntryPreparing EntryState = "preparing"
	EntryTesting   EntryState = "testing"
	EntryReady     EntryState = "ready"
	EntryMerging   EntryState = "merging"
	EntryCompleted EntryState = "completed"
	EntryFailed    EntryState = "failed"
)

var entryTransitions = map[EntryState][]EntryState{
	EntryPending:   {EntryPreparing, EntryFailed},
	EntryPreparing: {EntryTesting, EntryReady, EntryFailed},
	EntryTesting:   {EntryReady, EntryFailed},
	EntryReady:     {EntryMerging, EntryFailed},
	EntryMerging:   {EntryCompleted, EntryFailed},
}

// CanTransitionTo reports whether the state machine permits moving from s
// to next. Completed and failed are terminal.
func (s EntryState) CanTransitionTo(next EntryState) bool {
	for _, allowed := range entryTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// BatchState is the lifecycle state of an optimistic merge batch.
type BatchState string

const (
	BatchPreparing BatchState = "preparing"
	BatchReady     BatchState = "ready"
	BatchCompleted BatchState = "completed"
	BatchFailed    BatchState = "failed"
)

// EntryRecord is the persisted form of a queue entry.
type EntryRecord struct {
	ID           ChangesetID `json:"id"`
	HeadSHA      object.Hash `json:"head_sha"`
	BaseSHA      object.Hash `json:"base_sha"`
	TargetBranch string      `json:"target_branch"`
	State        EntryState  `json:"state"`
	Reason       string      `json:"reason,omitempty"`
	MergedSHA    object.Hash `json:"merged_sha,omitempty"`
	EnqueuedAt   int64       `json:"enqueued_at"`
	UpdatedAt    int64       `json:"updated_at"`
}

// BatchRecord is the persisted form of a merge batch.
type BatchRecord struct {
	ID           string        `json:"id"`
	TargetBranch string        `json:"target_branch"`
	EntryIDs     []ChangesetID `json:"entry_ids"`
	State        BatchState    `json:"state"`
	Tip          object.Hash   `json:"tip,omitempty"`
	CreatedAt    int64         `json:"created_at"`
	UpdatedAt    int64         `json:"updated_at"`
}

// Store persists queue entries and batches between processing passes. The
// manager works without one; merge outcomes are then reported only through
// results and events.
type Store interface {
	SaveEntry(rec EntryRecord) error
	GetEntry(id ChangesetID) (EntryRecord, error)
	ListEntries() ([]EntryRecord, error)
	DeleteEntry(id ChangesetID) error
	SaveBatch(rec BatchRecord) error
	GetBatch(id string) (BatchRecord, error)
	ListBatches() ([]BatchRecord, error)
}
