package reopt

import (
	"sort"
	"sync"
)

// sectionLocks serializes work on overlapping sets of sections. Locks are
// taken in id order so two callers never wait on each other in a cycle.
type sectionLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newSectionLocks() *sectionLocks {
	return &sectionLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *sectionLocks) lock(ids []string) (unlock func()) {
	sorted := append([]string(nil), ids...)
	sort.Strings(sorted)
	held := make([]*sync.Mutex, 0, len(sorted))
	l.mu.Lock()
	for i, id := range sorted {
		if i > 0 && sorted[i-1] == id {
			continue
		}
		m, ok := l.locks[id]
		if !ok {
			m = &sync.Mutex{}
			l.locks[id] = m
		}
		held = append(held, m)
	}
	l.mu.Unlock()
	for _, m := range held {
		m.Lock()
	}
	return func() {
		for i := len(held) - 1; i >= 0; i-- {
			held[i].Unlock()
		}
	}
}
