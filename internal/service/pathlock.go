package service

import (
	"path/filepath"
	"strings"
	"sync"
)

// PathLockManager serializes operations whose paths overlap. Two paths
// overlap when they are equal or one is an ancestor directory of the other,
// so a move of /data/a blocks a concurrent delete of /data/a/b but not of
// /data/c.
type PathLockManager struct {
	mu   sync.Mutex
	cond *sync.Cond
	held map[string]int
}

func NewPathLockManager() *PathLockManager {
	m := &PathLockManager{held: make(map[string]int)}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Acquire blocks until none of the given paths overlaps a held path, then
// claims them. The returned func releases the claim and must be called
// exactly once.
func (m *PathLockManager) Acquire(paths ...string) func() {
	norm := make([]string, 0, len(paths))
	for _, p := range paths {
		if p = strings.TrimSpace(p); p != "" {
			norm = append(norm, filepath.Clean(p))
		}
	}

	m.mu.Lock()
	for m.overlapsLocked(norm) {
		m.cond.Wait()
	}
	for _, p := range norm {
		m.held[p]++
	}
	m.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			m.mu.Lock()
			for _, p := range norm {
				if m.held[p] <= 1 {
					delete(m.held, p)
				} else {
					m.held[p]--
				}
			}
			m.mu.Unlock()
			m.cond.Broadcast()
		})
	}
}

func (m *PathLockManager) overlapsLocked(paths []string) bool {
	for held := range m.held {
		for _, p := range paths {
			if pathsOverlap(held, p) {
				return true
			}
		}
	}
	return false
}

func pathsOverlap(a string, b string) bool {
	if a == b {
		return true
	}
	sep := string(filepath.Separator)
	return strings.HasPrefix(a, b+sep) || strings.HasPrefix(b, a+sep)
}

// txLocks hands out one mutex per transaction id so rollback and the sweeper
// never race on the same transaction's trash entries.
type txLocks struct {
	mu sync.Mutex
	m  map[int64]*sync.Mutex
}

func newTxLocks() *txLocks {
	return &txLocks{m: make(map[int64]*sync.Mutex)}
}

func (l *txLocks) lock(id int64) func() {
	l.mu.Lock()
	mtx, ok := l.m[id]
	if !ok {
		mtx = &sync.Mutex{}
		l.m[id] = mtx
	}
	l.mu.Unlock()

	mtx.Lock()
	return mtx.Unlock
}
