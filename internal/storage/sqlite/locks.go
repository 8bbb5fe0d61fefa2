package sqlite

import "sync"

// groupLocks hands out one mutex per tontine ID and forgets it once nobody holds or waits on it.
type groupLocks struct {
	mu    sync.Mutex
	byKey map[string]*groupLock
}

type groupLock struct {
	mu   sync.Mutex
	refs int
}

func newGroupLocks() *groupLocks {
	return &groupLocks{byKey: make(map[string]*groupLock)}
}

// lock blocks until the key's mutex is held and returns the matching unlock.
func (g *groupLocks) lock(key string) func() {
	g.mu.Lock()
	l, ok := g.byKey[key]
	if !ok {
		l = &groupLock{}
		g.byKey[key] = l
	}
	l.refs++
	g.mu.Unlock()

	l.mu.Lock()

	return func() {
		l.mu.Unlock()

		g.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(g.byKey, key)
		}
		g.mu.Unlock()
	}
}
