// Package oommsg carries out-of-memory notifications from the kernel
// heap (package heap) to whatever policy is watching for memory
// pressure (a reaper, a test harness, or nothing at all if the channel
// is never drained).
package oommsg

// OomCh is sent on whenever the heap's grow cannot satisfy a request because
// the underlying address space's page allocator is exhausted.
var OomCh chan Oommsg_t = make(chan Oommsg_t)

// Oommsg_t reports how many bytes were needed and carries a Resume
// channel the receiver signals on to let the allocating goroutine retry
// (true) or give up (false).
type Oommsg_t struct {
	Need   int
	Resume chan bool
}
