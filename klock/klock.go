// Package klock implements the two synchronization primitives the kernel
// core is built on (spec.md C5): a spin mutex and a writer-preferring
// reader/writer lock. Both are usable from hosted Go code and from a
// bare-metal build alike; the only hosted concession is that "spin" yields
// to the Go scheduler (runtime.Gosched) instead of executing a bare PAUSE
// instruction, since there is no other runnable work to starve here.
package klock

import (
	"runtime"
	"sync/atomic"
)

// Spin is a test-and-set spin mutex.
type Spin struct {
	state int32
}

// Lock spins until the lock is acquired.
func (s *Spin) Lock() {
	for !atomic.CompareAndSwapInt32(&s.state, 0, 1) {
		runtime.Gosched()
	}
}

// Unlock releases the lock.
func (s *Spin) Unlock() {
	if !atomic.CompareAndSwapInt32(&s.state, 1, 0) {
		panic("klock: unlock of unlocked Spin")
	}
}

// TryLock attempts to acquire the lock without blocking.
func (s *Spin) TryLock() bool {
	return atomic.CompareAndSwapInt32(&s.state, 0, 1)
}

// RW is a reader/writer lock whose state is a signed count: >=0 is the
// number of concurrent readers, -1 means a writer holds the lock. A
// separate writersWaiting counter lets writers starve readers
// preferentially, matching spec.md §4.4 exactly: readers spin while
// writersWaiting > 0.
type RW struct {
	state          int32
	writersWaiting int32
}

// RLock acquires the lock for reading.
func (l *RW) RLock() {
	for {
		for atomic.LoadInt32(&l.writersWaiting) > 0 {
			runtime.Gosched()
		}
		s := atomic.LoadInt32(&l.state)
		if s < 0 {
			runtime.Gosched()
			continue
		}
		if atomic.CompareAndSwapInt32(&l.state, s, s+1) {
			return
		}
	}
}

// RUnlock releases a read lock.
func (l *RW) RUnlock() {
	if atomic.AddInt32(&l.state, -1) < 0 {
		panic("klock: RUnlock without RLock")
	}
}

// Lock acquires the lock for writing, blocking new readers from acquiring
// it while it waits (writer preference).
func (l *RW) Lock() {
	atomic.AddInt32(&l.writersWaiting, 1)
	for !atomic.CompareAndSwapInt32(&l.state, 0, -1) {
		runtime.Gosched()
	}
	atomic.AddInt32(&l.writersWaiting, -1)
}

// Unlock releases a write lock.
func (l *RW) Unlock() {
	if !atomic.CompareAndSwapInt32(&l.state, -1, 0) {
		panic("klock: Unlock without Lock")
	}
}

// Upgrade converts a held read lock into a write lock: it releases the
// read count, marks a writer as waiting so no new readers pile in ahead of
// it, then acquires the lock as a writer.
func (l *RW) Upgrade() {
	l.RUnlock()
	l.Lock()
}

// Downgrade converts a held write lock directly into a single-reader hold.
func (l *RW) Downgrade() {
	if !atomic.CompareAndSwapInt32(&l.state, -1, 1) {
		panic("klock: Downgrade without Lock")
	}
}

// IsWriteLocked reports whether a writer currently holds the lock. Used
// only by tests and lock-assertion helpers (P4).
func (l *RW) IsWriteLocked() bool {
	return atomic.LoadInt32(&l.state) == -1
}
