package service

import "sync"

// lockEntry is one order's mutex plus the number of callers holding or
// waiting on it.
type lockEntry struct {
	mu   sync.Mutex
	refs int
}

// orderLocks hands out one mutex per order id so that load-mutate-save
// sequences on the same order never interleave within this process. An
// entry lives only while someone holds or waits on it.
type orderLocks struct {
	mu    sync.Mutex
	locks map[string]*lockEntry
}

func newOrderLocks() *orderLocks {
	return &orderLocks{locks: make(map[string]*lockEntry)}
}

// acquire returns the entry for id with its reference taken, creating it
// on first use.
func (l *orderLocks) acquire(id string) *lockEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	e, ok := l.locks[id]
	if !ok {
		e = &lockEntry{}
		l.locks[id] = e
	}
	e.refs++
	return e
}

// release drops a reference and forgets the entry once nobody uses it.
func (l *orderLocks) release(id string, e *lockEntry) {
	l.mu.Lock()
	defer l.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(l.locks, id)
	}
}

// lock acquires the mutex for id and returns its unlock function.
func (l *orderLocks) lock(id string) func() {
	e := l.acquire(id)
	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		l.release(id, e)
	}
}

// size returns the number of live entries.
func (l *orderLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
