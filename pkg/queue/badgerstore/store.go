// Package badgerstore persists merge-queue entries and batches in an
// embedded BadgerDB. Records are stored as JSON under "entry/<id>" and
// "batch/<id>" keys.
package badgerstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/loomvcs/loom/pkg/queue"
)

var ErrNotFound = errors.New("queue record not found")

const (
	entryPrefix = "entry/"
	batchPrefix = "batch/"
)

// Store is a badger-backed queue.Store.
type Store struct {
	db *badger.DB
}

// Open opens (or creates) a persistent store at dir.
func Open(dir string) (*Store, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open queue store: %w", err)
	}
	return &Store{db: db}, nil
}

// OpenInMemory opens a store that keeps everything in memory. Useful for
// tests and dry runs.
func OpenInMemory() (*Store, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open in-memory queue store: %w", err)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %q: %w", key, err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

func (s *Store) get(key string, v any) error {
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%q: %w", key, ErrNotFound)
	}
	return err
}

func (s *Store) scan(prefix string, each func(val []byte) error) error {
	return s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(prefix)
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			if err := it.Item().Value(each); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Store) SaveEntry(rec queue.EntryRecord) error {
	return s.put(entryPrefix+string(rec.ID), rec)
}

func (s *Store) GetEntry(id queue.ChangesetID) (queue.EntryRecord, error) {
	var rec queue.EntryRecord
	err := s.get(entryPrefix+string(id), &rec)
	return rec, err
}

// ListEntries returns all persisted entries ordered by enqueue time, then
// by ID for a stable order within the same second.
func (s *Store) ListEntries() ([]queue.EntryRecord, error) {
	var recs []queue.EntryRecord
	err := s.scan(entryPrefix, func(val []byte) error {
		var rec queue.EntryRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].EnqueuedAt != recs[j].EnqueuedAt {
			return recs[i].EnqueuedAt < recs[j].EnqueuedAt
		}
		return recs[i].ID < recs[j].ID
	})
	return recs, nil
}

func (s *Store) DeleteEntry(id queue.ChangesetID) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete([]byte(entryPrefix + string(id)))
	})
}

func (s *Store) SaveBatch(rec queue.BatchRecord) error {
	return s.put(batchPrefix+rec.ID, rec)
}

func (s *Store) GetBatch(id string) (queue.BatchRecord, error) {
	var rec queue.BatchRecord
	err := s.get(batchPrefix+id, &rec)
	return rec, err
}

func (s *Store) ListBatches() ([]queue.BatchRecord, error) {
	var recs []queue.BatchRecord
	err := s.scan(batchPrefix, func(val []byte) error {
		var rec queue.BatchRecord
		if err := json.Unmarshal(val, &rec); err != nil {
			return err
		}
		recs = append(recs, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].CreatedAt < recs[j].CreatedAt })
	return recs, nil
}
