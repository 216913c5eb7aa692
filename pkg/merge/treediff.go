package merge

import (
	"fmt"
	"sort"

	"github.com/loomvcs/loom/pkg/object"
)

// ChangeType classifies what happened to a file path between two trees.
type ChangeType string

const (
	Added    ChangeType = "added"
	Modified ChangeType = "modified"
	Deleted  ChangeType = "deleted"
	Renamed  ChangeType = "renamed"
)

// FileChange records a single file-level change between two trees, with
// line-level add/delete counts when both sides are text.
type FileChange struct {
	Path      string
	Type      ChangeType
	OldPath   string // set for renames
	Additions int
	Deletions int
	Binary    bool
}

// DiffTrees computes the structural diff from the tree at beforeHash to the
// tree at afterHash: added, modified, and deleted paths, with renames
// detected as a deleted and an added path sharing the same blob hash.
// Results are sorted by path.
func (e *Engine) DiffTrees(beforeHash, afterHash object.Hash) ([]FileChange, error) {
	before, err := e.store.FlattenTree(beforeHash, "")
	if err != nil {
		return nil, fmt.Errorf("diff: flatten before tree: %w", err)
	}
	after, err := e.store.FlattenTree(afterHash, "")
	if err != nil {
		return nil, fmt.Errorf("diff: flatten after tree: %w", err)
	}

	var added, deleted []string
	var changes []FileChange

	for path, b := range before {
		a, inAfter := after[path]
		if !inAfter {
			deleted = append(deleted, path)
			continue
		}
		if sameEntry(b, a) {
			continue
		}
		fc := FileChange{Path: path, Type: Modified}
		if err := e.countLines(&fc, b.Hash, a.Hash); err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}
	for path := range after {
		if _, inBefore := before[path]; !inBefore {
			added = append(added, path)
		}
	}
	sort.Strings(added)
	sort.Strings(deleted)

	// Pair exact-content moves as renames, greedily by path order.
	renamedFrom := make(map[string]string) // added path -> deleted path
	usedDeleted := make(map[string]bool)
	for _, ap := range added {
		for _, dp := range deleted {
			if usedDeleted[dp] {
				continue
			}
			if before[dp].Hash == after[ap].Hash {
				renamedFrom[ap] = dp
				usedDeleted[dp] = true
				break
			}
		}
	}

	for _, path := range added {
		if from, isRename := renamedFrom[path]; isRename {
			changes = append(changes, FileChange{Path: path, Type: Renamed, OldPath: from})
			continue
		}
		fc := FileChange{Path: path, Type: Added}
		if err := e.countLines(&fc, "", after[path].Hash); err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}
	for _, path := range deleted {
		if usedDeleted[path] {
			continue
		}
		fc := FileChange{Path: path, Type: Deleted}
		if err := e.countLines(&fc, before[path].Hash, ""); err != nil {
			return nil, err
		}
		changes = append(changes, fc)
	}

	sort.Slice(changes, func(i, j int) bool { return changes[i].Path < changes[j].Path })
	return changes, nil
}

// countLines fills in add/delete counts for a change. Binary content on
// either side marks the change binary with zero counts.
func (e *Engine) countLines(fc *FileChange, beforeHash, afterHash object.Hash) error {
	var beforeData, afterData []byte
	if beforeHash != "" {
		blob, err := e.store.ReadBlob(beforeHash)
		if err != nil {
			return fmt.Errorf("diff %q: %w", fc.Path, err)
		}
		beforeData = blob.Data
	}
	if afterHash != "" {
		blob, err := e.store.ReadBlob(afterHash)
		if err != nil {
			return fmt.Errorf("diff %q: %w", fc.Path, err)
		}
		afterData = blob.Data
	}

	if IsBinary(beforeData) || IsBinary(afterData) {
		fc.Binary = true
		return nil
	}
	fc.Additions, fc.Deletions = LineChanges(beforeData, afterData)
	return nil
}
