// Package kconfig holds the kernel's compile-time-equivalent tuning
// knobs: the handful of package-level constants and a system-wide
// resource-limit table the boot handoff doesn't supply and that
// nothing discovers from hardware. Descended from the teacher's
// limits.Syslimit_t, extended with the VFS/syscall-table sizes that
// package never needed (it has no vfs or ksys package of its own).
package kconfig

import "nyxkernel/limits"

// Limits extends limits.Syslimit_t with sizes for this kernel's VFS and
// syscall surface: the node arena, the per-process open-file table, and
// the timer's timeout slot array. These are a configuration record
// only: package vfs, package proc and package timer do not read them
// (the vfs arena grows by whole blocks, proc's fd table has no cap, and
// timer sizes its wheel from its own numSlots constant). MaxMsiVecs is
// dropped (see SPEC_FULL.md): no MSI in scope.
type Limits struct {
	limits.Syslimit_t

	// MaxOpenFiles records a per-process fd-table size.
	MaxOpenFiles int
	// MaxVnodes records a node-arena slot count (mirrors
	// Syslimit_t.Vnodes).
	MaxVnodes int
	// MaxTimeouts records the timeout-wheel size (timer's numSlots is
	// also 1024).
	MaxTimeouts int
}

// Default returns the kernel's default tuning, descended from
// limits.MkSysLimit with the VFS/syscall additions sized to match.
func Default() *Limits {
	return &Limits{
		Syslimit_t:   *limits.MkSysLimit(),
		MaxOpenFiles: 512,
		MaxVnodes:    20000,
		MaxTimeouts:  1024,
	}
}
