// Package tinfo tracks per-thread kill/doom state (spec.md C8's
// proc.ThreadInfo), adapted from the teacher's tinfo package. The
// teacher locates the current thread's note through a patched runtime
// (runtime.Gptr/Setgptr stashing a pointer in the scheduler's g
// struct); a hosted build has no such hook, so package proc instead
// keeps each thread's *Tnote_t in an explicit field (proc.Thread.Note)
// — the idiomatic Go substitute for implicit per-goroutine storage.
package tinfo

import (
	"sync"

	"nyxkernel/defs"
)

// Tnote_t stores per-thread state the scheduler and Exit need.
type Tnote_t struct {
	State    interface{}
	Alive    bool
	Killed   bool
	Isdoomed bool

	// Protects Killed and Killnaps.Cond/Kerr; a leaf lock.
	sync.Mutex
	Killnaps struct {
		Killch chan bool
		Cond   *sync.Cond
		Kerr   defs.Err_t
	}
}

// Doomed reports whether the thread is marked for forced termination.
func (t *Tnote_t) Doomed() bool {
	return t.Isdoomed
}

// Threadinfo_t tracks every thread note belonging to a process.
type Threadinfo_t struct {
	Notes map[defs.Tid_t]*Tnote_t
	sync.Mutex
}

// Init initializes the thread-note map.
func (t *Threadinfo_t) Init() {
	t.Notes = make(map[defs.Tid_t]*Tnote_t)
}
