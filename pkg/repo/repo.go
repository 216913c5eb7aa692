// Package repo opens and mutates a loom repository: the .loom/ directory
// holding the object store, refs, reflogs, and configuration. Refs are the
// only mutable state in the data model; every ref move goes through a
// compare-and-swap update with lockfile semantics.
package repo

import "github.com/loomvcs/loom/pkg/object"

// Repo represents an opened loom repository.
type Repo struct {
	RootDir string        // working directory root
	LoomDir string        // .loom/ directory
	Store   *object.Store // content-addressed object store
}
