package object

import "errors"

// ErrNotFound indicates the requested hash has no object in the store.
var ErrNotFound = errors.New("object not found")

// ErrCorrupt indicates a stored object's content no longer matches its
// content address. Reads always re-verify; a corrupt read is fatal to the
// calling operation and never retried.
var ErrCorrupt = errors.New("object corrupt")
