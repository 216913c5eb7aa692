// Package merge implements the three-way tree merge engine and the
// structural tree diff it shares with queue analysis.
//
// The engine is state-free: every operation is a pure function of the three
// tree hashes and the store's contents. Conflict detection is hash-level —
// any divergent simultaneous edit of a path is a conflict; no textual
// reconciliation is attempted. Byte-level resolution (markers, manual
// edits) is the caller's responsibility.
package merge

import (
	"fmt"
	"sort"
	"time"

	"github.com/loomvcs/loom/pkg/object"
)

// Engine performs three-way merges against a single object store. The
// store is injected; the engine holds no other state.
type Engine struct {
	store *object.Store
}

// NewEngine creates an Engine over the given store.
func NewEngine(store *object.Store) *Engine {
	return &Engine{store: store}
}

// Conflict records one path where both sides changed with different
// results. Empty hashes mark a side where the path is absent.
type Conflict struct {
	Path     string
	Base     object.Hash
	Current  object.Hash
	Incoming object.Hash
}

// TreeResult is the outcome of a tree merge. Exactly one of the two shapes
// holds: a clean merge carries the merged file map and its written root
// tree hash; a conflicted merge carries the conflict list and no tree is
// written.
type TreeResult struct {
	TreeHash  object.Hash
	Files     map[string]object.FileEntry
	Conflicts []Conflict
}

// HasConflicts reports whether the merge failed with conflicts.
func (r *TreeResult) HasConflicts() bool {
	return len(r.Conflicts) > 0
}

// ConflictPaths returns the conflicting paths in sorted order.
func (r *TreeResult) ConflictPaths() []string {
	paths := make([]string, len(r.Conflicts))
	for i, c := range r.Conflicts {
		paths[i] = c.Path
	}
	return paths
}

// MergeTrees computes a three-way merge of the trees at currentHash and
// incomingHash against their merge base at baseHash. An empty baseHash
// degenerates into "apply every incoming path that does not conflict with
// current", which is how single-commit application reuses this engine.
//
// On a clean merge the merged tree is built and written; on conflict no
// result is written and the conflict list is returned. Leftover subtrees
// written before a late conflict cannot occur: classification completes
// before any tree object is built.
func (e *Engine) MergeTrees(baseHash, currentHash, incomingHash object.Hash) (*TreeResult, error) {
	baseFiles, err := e.store.FlattenTree(baseHash, "")
	if err != nil {
		return nil, fmt.Errorf("merge: flatten base tree: %w", err)
	}
	currentFiles, err := e.store.FlattenTree(currentHash, "")
	if err != nil {
		return nil, fmt.Errorf("merge: flatten current tree: %w", err)
	}
	incomingFiles, err := e.store.FlattenTree(incomingHash, "")
	if err != nil {
		return nil, fmt.Errorf("merge: flatten incoming tree: %w", err)
	}

	result := &TreeResult{Files: make(map[string]object.FileEntry)}

	for _, path := range collectAllPaths(baseFiles, currentFiles, incomingFiles) {
		b, inBase := baseFiles[path]
		c, inCurrent := currentFiles[path]
		i, inIncoming := incomingFiles[path]

		switch {
		case !inBase && inCurrent && inIncoming:
			// Added on both sides.
			if sameEntry(c, i) {
				result.Files[path] = c
			} else {
				result.Conflicts = append(result.Conflicts, Conflict{
					Path: path, Current: c.Hash, Incoming: i.Hash,
				})
			}

		case !inBase && inCurrent:
			result.Files[path] = c

		case !inBase && inIncoming:
			result.Files[path] = i

		case inBase && inCurrent && inIncoming:
			switch {
			case sameEntry(c, i):
				// Unchanged in both, or both made the same change.
				result.Files[path] = c
			case sameEntry(c, b):
				// Changed only in incoming.
				result.Files[path] = i
			case sameEntry(i, b):
				// Changed only in current.
				result.Files[path] = c
			default:
				result.Conflicts = append(result.Conflicts, Conflict{
					Path: path, Base: b.Hash, Current: c.Hash, Incoming: i.Hash,
				})
			}

		case inBase && inCurrent && !inIncoming:
			// Deleted by incoming. Delete-vs-modify is a conflict: silently
			// dropping current's edit would lose data.
			if sameEntry(c, b) {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Path: path, Base: b.Hash, Current: c.Hash,
			})

		case inBase && !inCurrent && inIncoming:
			// Deleted by current.
			if sameEntry(i, b) {
				continue
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Path: path, Base: b.Hash, Incoming: i.Hash,
			})

		default:
			// Deleted on both sides: stays deleted.
		}
	}

	if result.HasConflicts() {
		sort.Slice(result.Conflicts, func(a, b int) bool {
			return result.Conflicts[a].Path < result.Conflicts[b].Path
		})
		result.Files = nil
		return result, nil
	}

	treeHash, err := e.store.BuildTree(result.Files)
	if err != nil {
		return nil, fmt.Errorf("merge: build merged tree: %w", err)
	}
	result.TreeHash = treeHash
	return result, nil
}

// MergeCommits merges the trees of the commits at currentHash and
// incomingHash against the tree of the commit at baseHash (empty for
// unrelated histories), and on a clean merge writes a merge commit carrying
// both as parents. The conflicted result is returned without a commit.
func (e *Engine) MergeCommits(baseHash, currentHash, incomingHash object.Hash, author, message string) (object.Hash, *TreeResult, error) {
	currentCommit, err := e.store.ReadCommit(currentHash)
	if err != nil {
		return "", nil, fmt.Errorf("merge: read current commit: %w", err)
	}
	incomingCommit, err := e.store.ReadCommit(incomingHash)
	if err != nil {
		return "", nil, fmt.Errorf("merge: read incoming commit: %w", err)
	}

	var baseTree object.Hash
	if baseHash != "" {
		baseCommit, err := e.store.ReadCommit(baseHash)
		if err != nil {
			return "", nil, fmt.Errorf("merge: read base commit: %w", err)
		}
		baseTree = baseCommit.TreeHash
	}

	result, err := e.MergeTrees(baseTree, currentCommit.TreeHash, incomingCommit.TreeHash)
	if err != nil {
		return "", nil, err
	}
	if result.HasConflicts() {
		return "", result, nil
	}

	now := time.Now().Unix()
	commitHash, err := e.store.WriteCommit(&object.CommitObj{
		TreeHash:           result.TreeHash,
		Parents:            []object.Hash{currentHash, incomingHash},
		Author:             author,
		Timestamp:          now,
		Committer:          author,
		CommitterTimestamp: now,
		Message:            message,
	})
	if err != nil {
		return "", nil, fmt.Errorf("merge: write merge commit: %w", err)
	}
	return commitHash, result, nil
}

// ApplyCommit replays the first-parent delta of the commit at targetHash
// onto the commit at ontoHash: a three-way merge with the target's first
// parent as base, onto as current, and the target as incoming. Root
// commits apply with an empty base. On a clean apply a new commit is
// written with onto as sole parent, preserving the target's author,
// timestamp, and message.
func (e *Engine) ApplyCommit(targetHash, ontoHash object.Hash) (object.Hash, *TreeResult, error) {
	targetCommit, err := e.store.ReadCommit(targetHash)
	if err != nil {
		return "", nil, fmt.Errorf("apply: read commit %s: %w", targetHash, err)
	}
	ontoCommit, err := e.store.ReadCommit(ontoHash)
	if err != nil {
		return "", nil, fmt.Errorf("apply: read onto commit %s: %w", ontoHash, err)
	}

	var baseTree object.Hash
	if len(targetCommit.Parents) > 0 {
		parentCommit, err := e.store.ReadCommit(targetCommit.Parents[0])
		if err != nil {
			return "", nil, fmt.Errorf("apply: read parent of %s: %w", targetHash, err)
		}
		baseTree = parentCommit.TreeHash
	}

	result, err := e.MergeTrees(baseTree, ontoCommit.TreeHash, targetCommit.TreeHash)
	if err != nil {
		return "", nil, err
	}
	if result.HasConflicts() {
		return "", result, nil
	}

	commitHash, err := e.store.WriteCommit(&object.CommitObj{
		TreeHash:           result.TreeHash,
		Parents:            []object.Hash{ontoHash},
		Author:             targetCommit.Author,
		Timestamp:          targetCommit.Timestamp,
		Committer:          targetCommit.Committer,
		CommitterTimestamp: time.Now().Unix(),
		Message:            targetCommit.Message,
	})
	if err != nil {
		return "", nil, fmt.Errorf("apply: write commit: %w", err)
	}
	return commitHash, result, nil
}

func sameEntry(a, b object.FileEntry) bool {
	return a.Hash == b.Hash && a.Mode == b.Mode
}

// collectAllPaths returns a sorted, deduplicated list of all file paths
// across three file maps.
func collectAllPaths(base, current, incoming map[string]object.FileEntry) []string {
	seen := make(map[string]bool)
	for p := range base {
		seen[p] = true
	}
	for p := range current {
		seen[p] = true
	}
	for p := range incoming {
		seen[p] = true
	}

	paths := make([]string, 0, len(seen))
	for p := range seen {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}
