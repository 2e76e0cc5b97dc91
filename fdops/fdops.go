// Package fdops defines the operations surface a file descriptor's
// backing object (almost always a vfs node handle) must implement,
// adapted from the teacher's fdops package interface (only its go.mod
// was retrieved from the pack; the Fdops_i method set below is inferred
// from its call sites in vm/as.go and fd/fd.go and from spec.md 4.8's
// vtable-per-node operations surface).
package fdops

import "nyxkernel/defs"

// Fdops_i is what package fd stores inside an open file descriptor.
// Read/Write/Seek/Close mirror spec.md 4.8's per-node vtable
// (read/write/seek/close); Reopen supports dup()-style fd duplication
// without re-resolving a path.
type Fdops_i interface {
	Read(dst []uint8) (int, defs.Err_t)
	Write(src []uint8) (int, defs.Err_t)
	Seek(off int, whence int) (int, defs.Err_t)
	Close() defs.Err_t
	Reopen() defs.Err_t
}
