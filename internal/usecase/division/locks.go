package division

import "sync"

// parentLocks serializes divisions of the same parent.
type parentLocks struct {
	mu    sync.Mutex
	locks map[int64]*parentLock
}

type parentLock struct {
	mu   sync.Mutex
	refs int
}

func newParentLocks() *parentLocks {
	return &parentLocks{locks: make(map[int64]*parentLock)}
}

// lock blocks until id is free and returns the matching unlock.
func (p *parentLocks) lock(id int64) func() {
	p.mu.Lock()
	l, ok := p.locks[id]
	if !ok {
		l = &parentLock{}
		p.locks[id] = l
	}
	l.refs++
	p.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		p.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(p.locks, id)
		}
		p.mu.Unlock()
	}
}
