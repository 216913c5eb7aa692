// Package graph provides read-only traversal over the commit objects in a
// content-addressed store: ancestry testing, merge-base discovery, bounded
// history walks, and the bisection search shared by CLI consumers.
//
// The navigator holds no hidden global state; it operates purely on commit
// hashes against the store it was constructed with, so multiple repositories
// can be navigated concurrently in one process.
package graph

import (
	"sync"

	"github.com/loomvcs/loom/pkg/object"
)

const maxTraversalCommits = 1_000_000

// This var allows tests to tighten the traversal cap without affecting
// production defaults.
var traversalCommitLimit = maxTraversalCommits

func traversalLimit() int {
	if traversalCommitLimit <= 0 || traversalCommitLimit > maxTraversalCommits {
		return maxTraversalCommits
	}
	return traversalCommitLimit
}

// Navigator walks the commit graph of a single object store.
type Navigator struct {
	store *object.Store

	mu        sync.Mutex
	baseCache map[basePair]baseResult
}

type basePair struct {
	a, b object.Hash
}

type baseResult struct {
	base  object.Hash
	found bool
}

// NewNavigator creates a Navigator over the given store. The store is
// injected rather than discovered so callers decide which repository is
// being navigated.
func NewNavigator(store *object.Store) *Navigator {
	return &Navigator{
		store:     store,
		baseCache: make(map[basePair]baseResult),
	}
}

// Store returns the underlying object store.
func (n *Navigator) Store() *object.Store {
	return n.store
}

func (n *Navigator) loadCachedBase(p basePair) (baseResult, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	r, ok := n.baseCache[p]
	return r, ok
}

func (n *Navigator) storeCachedBase(p basePair, r baseResult) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseCache[p] = r
}

// InvalidateCache drops memoized merge-base results. Callers that write new
// commits through the same process and rely on cached answers must call
// this; appends can only add answers for new pairs, so in practice this is
// only needed after history rewrites in tests.
func (n *Navigator) InvalidateCache() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.baseCache = make(map[basePair]baseResult)
}
