// Package queue implements the merge queue manager: it analyzes pending
// changesets, predicts pairwise conflicts, chooses a merge order, attempts
// optimistic batch merges with recursive failure isolation, and rebases
// changesets onto a moving target branch.
//
// The manager sits on top of the merge engine, the graph navigator, and
// the repository's refs; those layers know nothing about PRs, queues, or
// batches.
package queue

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/loomvcs/loom/pkg/graph"
	"github.com/loomvcs/loom/pkg/merge"
	"github.com/loomvcs/loom/pkg/object"
	"github.com/loomvcs/loom/pkg/repo"
)

// Manager orchestrates queue processing for one repository. Safe for
// concurrent use; processing is serialized per target branch.
type Manager struct {
	repo   *repo.Repo
	nav    *graph.Navigator
	engine *merge.Engine
	store  Store
	pub    Publisher
	cfg    Config
	log    *slog.Logger
	locks  branchLocks
}

// Option configures a Manager.
type Option func(*Manager)

// WithStore attaches a persistence layer for entries and batches.
func WithStore(s Store) Option {
	return func(m *Manager) { m.store = s }
}

// WithPublisher attaches an event publisher.
func WithPublisher(p Publisher) Option {
	return func(m *Manager) { m.pub = p }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.log = l }
}

// WithConfig overrides the default tuning.
func WithConfig(cfg Config) Option {
	return func(m *Manager) { m.cfg = cfg.withDefaults() }
}

// NewManager builds a Manager over an opened repository.
func NewManager(r *repo.Repo, opts ...Option) *Manager {
	m := &Manager{
		repo:   r,
		nav:    graph.NewNavigator(r.Store),
		engine: merge.NewEngine(r.Store),
		pub:    nopPublisher{},
		cfg:    DefaultConfig(),
		log:    slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Enqueue records a changeset as pending. Requires a store.
func (m *Manager) Enqueue(targetBranch string, e Entry) error {
	if m.store == nil {
		return fmt.Errorf("enqueue: no queue store configured")
	}
	now := time.Now().Unix()
	rec := EntryRecord{
		ID:           e.ID,
		HeadSHA:      e.HeadSHA,
		BaseSHA:      e.BaseSHA,
		TargetBranch: targetBranch,
		State:        EntryPending,
		EnqueuedAt:   now,
		UpdatedAt:    now,
	}
	if err := m.store.SaveEntry(rec); err != nil {
		return fmt.Errorf("enqueue %s: %w", e.ID, err)
	}
	m.log.Info("changeset enqueued", "id", e.ID, "branch", targetBranch)
	return nil
}

// Entries lists persisted queue entries. Requires a store.
func (m *Manager) Entries() ([]EntryRecord, error) {
	if m.store == nil {
		return nil, fmt.Errorf("list entries: no queue store configured")
	}
	return m.store.ListEntries()
}

// Remove drops a changeset from the persisted queue. Requires a store.
func (m *Manager) Remove(id ChangesetID) error {
	if m.store == nil {
		return fmt.Errorf("remove: no queue store configured")
	}
	return m.store.DeleteEntry(id)
}

// setEntryState persists an entry state transition when a store is
// configured. Illegal transitions are logged and skipped rather than
// failing the merge pass.
func (m *Manager) setEntryState(id ChangesetID, next EntryState, reason string, mergedSHA object.Hash) {
	if m.store == nil {
		return
	}
	rec, err := m.store.GetEntry(id)
	if err != nil {
		return
	}
	if !rec.State.CanTransitionTo(next) {
		m.log.Warn("illegal entry transition", "id", id, "from", rec.State, "to", next)
		return
	}
	rec.State = next
	rec.Reason = reason
	if mergedSHA != "" {
		rec.MergedSHA = mergedSHA
	}
	rec.UpdatedAt = time.Now().Unix()
	if err := m.store.SaveEntry(rec); err != nil {
		m.log.Warn("persist entry state", "id", id, "error", err)
	}
}

func (m *Manager) publish(name string, payload map[string]any) {
	m.pub.Publish(Event{Name: name, Payload: payload})
}
