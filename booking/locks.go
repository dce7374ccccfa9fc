package booking

import "sync"

// lockTable hands out one mutex per id. Creation serializes on the room-type
// id to close the check-then-act race; transitions serialize on the booking
// id so, for example, a check-in and a cancel racing on the same booking
// cannot both succeed. Locks are acquired for a single id at a time, so there
// is no ordering hazard between them.
type lockTable struct {
	mu    sync.Mutex
	locks map[uint]*sync.Mutex
}

// acquire locks the id's mutex and returns the release func.
func (t *lockTable) acquire(id uint) func() {
	t.mu.Lock()
	if t.locks == nil {
		t.locks = make(map[uint]*sync.Mutex)
	}
	m, ok := t.locks[id]
	if !ok {
		m = &sync.Mutex{}
		t.locks[id] = m
	}
	t.mu.Unlock()

	m.Lock()
	return m.Unlock
}
