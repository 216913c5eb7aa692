package queue

import "sync"

// branchLocks serializes queue processing per target branch. Two batch
// runs against the same branch would otherwise race on the same starting
// tip and silently drop one result.
type branchLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func (b *branchLocks) acquire(branch string) func() {
	b.mu.Lock()
	if b.locks == nil {
		b.locks = make(map[string]*sync.Mutex)
	}
	l, ok := b.locks[branch]
	if !ok {
		l = &sync.Mutex{}
		b.locks[branch] = l
	}
	b.mu.Unlock()

	l.Lock()
	return l.Unlock
}
