// Package limits tracks system-wide resource caps, adapted from the
// teacher's limits package. Network-specific fields (ARP entries,
// routes, TCP segments) are dropped — see DESIGN.md — since this
// kernel carries no network stack; the process/vnode/block caps that
// do apply to this spec's scope are kept.
package limits

import (
	"sync/atomic"
	"unsafe"
)

// Sysatomic_t is a numeric limit that can be atomically given back or
// taken from.
type Sysatomic_t int64

// Syslimit_t tracks system-wide resource limits.
type Syslimit_t struct {
	// Sysprocs bounds the number of live processes (proc package).
	Sysprocs int
	// Vnodes bounds the vfs node-arena allocator's slot count.
	Vnodes int
	// Pipes bounds concurrently open pipe/fifo fds.
	Pipes Sysatomic_t
	// Mfspgs bounds additional kernelfs per-page objects.
	Mfspgs Sysatomic_t
	// Blocks bounds cached block-device pages (package blockio).
	Blocks int
}

// Syslimit holds the configured system-wide limits.
var Syslimit *Syslimit_t = MkSysLimit()

// MkSysLimit returns the default set of limits.
func MkSysLimit() *Syslimit_t {
	return &Syslimit_t{
		Sysprocs: 1e4,
		Vnodes:   20000,
		Pipes:    1e4,
		Blocks:   100000,
	}
}

func (s *Sysatomic_t) aptr() *int64 { return (*int64)(unsafe.Pointer(s)) }

// Given increases the limit by n.
func (s *Sysatomic_t) Given(n uint) {
	atomic.AddInt64(s.aptr(), int64(n))
}

// Taken tries to decrement the limit by n, returning true on success
// and leaving the limit unchanged on failure.
func (s *Sysatomic_t) Taken(n uint) bool {
	if atomic.AddInt64(s.aptr(), -int64(n)) >= 0 {
		return true
	}
	atomic.AddInt64(s.aptr(), int64(n))
	return false
}

// Take decrements the limit by one.
func (s *Sysatomic_t) Take() bool { return s.Taken(1) }

// Give increments the limit by one.
func (s *Sysatomic_t) Give() { s.Given(1) }
