// Package irq implements the interrupt/IRQ dispatch core (spec.md C6):
// a 256-entry vector table, exception vs. IRQ routing, and the
// registration surface handlers install themselves through. No teacher
// package covers this subsystem directly — the retrieved pack's only
// IDT/APIC-adjacent code is vm/as.go's Tlbshoot/Cpumap, which this
// package's reserved IPI vectors are grounded on — so the dispatch loop
// below follows spec.md §4.5's wording directly, written in the
// teacher's plain-struct, klock-guarded style.
package irq

import (
	"fmt"

	"nyxkernel/apic"
	"nyxkernel/defs"
	"nyxkernel/klock"
	"nyxkernel/stats"
)

// Vector numbers. 0-31 are CPU exceptions; 32-127 are IOAPIC-routed
// IRQs; 128 is the software interrupt int 0x80 (syscalls, dispatched
// by package ksys, not through this table); the rest are reserved IPI
// vectors used for cross-core coordination.
const (
	VecDivZero   = 0
	VecPageFault = 14

	VecIRQBase = 32
	VecIRQMax  = 127

	VecSyscall = 0x80

	// Reserved IPI vectors, per spec.md 4.5.
	VecTLBShootdown = 0xf0
	VecTLBFlush     = 0xf1
	VecKill         = 0xf2
	VecWakeup       = 0xf3
)

// Frame is the canonical register/exception frame the dispatcher saves
// before invoking a handler: enough of a real trap frame for exception
// decoding (CR2, the hardware error code) and for IRQ handlers that
// only need the vector.
type Frame struct {
	Vector  int
	ErrCode uint64
	CR2     uint64 // faulting address, valid only for VecPageFault
	CR3     uint64 // the address space active at the time of the trap
}

// Handler processes one interrupt/exception; err is only meaningful for
// exceptions raised on behalf of a thread (e.g. a page fault) and is
// ignored for asynchronous IRQs.
type Handler func(f Frame) defs.Err_t

// Table is the interrupt vector table. Registration happens at init
// time only — per spec.md 4.5 the table itself is not locked — but a
// spin lock still guards the slice against concurrent Register calls
// from multiple initialization goroutines, since "init time only" is a
// convention this package cannot otherwise enforce.
type Table struct {
	mu       klock.Spin
	routines [VecIRQMax - VecIRQBase + 1]Handler
	excs     [32]Handler
	lapic    *apic.LAPIC
}

// NewTable constructs an empty vector table bound to lapic for EOI.
func NewTable(lapic *apic.LAPIC) *Table {
	return &Table{lapic: lapic}
}

// Register installs handler for vec. vec must be an exception vector
// (0-31) or an IRQ vector (32-127).
func (t *Table) Register(vec int, h Handler) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case vec >= 0 && vec < 32:
		t.excs[vec] = h
	case vec >= VecIRQBase && vec <= VecIRQMax:
		t.routines[vec-VecIRQBase] = h
	default:
		panic(fmt.Sprintf("irq: vector %d out of range", vec))
	}
}

// Unregister removes any handler installed for vec.
func (t *Table) Unregister(vec int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	switch {
	case vec >= 0 && vec < 32:
		t.excs[vec] = nil
	case vec >= VecIRQBase && vec <= VecIRQMax:
		t.routines[vec-VecIRQBase] = nil
	}
}

// Dispatch runs the handler registered for f.Vector, bumps the
// Nirqs/Irqs scoreboard, and sends LAPIC EOI when the vector came
// through the IOAPIC — the common-path behavior spec.md 4.5 describes
// for the shared stub feeding into the common dispatcher.
func (t *Table) Dispatch(f Frame) defs.Err_t {
	t.mu.Lock()
	var h Handler
	switch {
	case f.Vector >= 0 && f.Vector < 32:
		h = t.excs[f.Vector]
	case f.Vector >= VecIRQBase && f.Vector <= VecIRQMax:
		h = t.routines[f.Vector-VecIRQBase]
		stats.Irqs++
		if f.Vector < len(stats.Nirqs) {
			stats.Nirqs[f.Vector]++
		}
	}
	t.mu.Unlock()

	var err defs.Err_t
	if h != nil {
		err = h(f)
	}
	if f.Vector >= VecIRQBase && f.Vector <= VecIRQMax && t.lapic != nil {
		t.lapic.EOI()
	}
	return err
}
