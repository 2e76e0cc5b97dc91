// Package trap implements spec.md §7's ring-3 fault diagnostic path:
// when a thread's own access to its address space cannot be resolved
// (a genuine segfault, not a lazily-populated region), the kernel
// decodes the faulting instruction and terminates the thread with a
// diagnostic print rather than letting the fault propagate. No teacher
// package covers this; the one dependency it draws on
// (golang.org/x/arch/x86/x86asm) is a direct teacher go.mod carry-over
// (§3 of SPEC_FULL.md) repurposed from build-time disassembly to a
// kernel's own runtime diagnostics.
package trap

import (
	"fmt"

	"golang.org/x/arch/x86/x86asm"

	"nyxkernel/irq"
	"nyxkernel/klog"
	"nyxkernel/proc"
)

// mode64 is the x86asm decode mode for 64-bit code, matching this
// kernel's exclusively-long-mode execution.
const mode64 = 64

// DecodeFault disassembles the single instruction at code (the bytes
// at the faulting RIP, however many the caller could safely read) and
// returns a one-line diagnostic describing it. Decoding failure (a
// truncated or genuinely invalid byte sequence, e.g. because the fault
// happened on an unmapped page and no bytes could be fetched at all)
// still returns a usable message instead of an error, since a fault
// handler that cannot itself fault further is the entire point.
func DecodeFault(f irq.Frame, code []byte) string {
	inst, err := x86asm.Decode(code, mode64)
	if err != nil {
		return fmt.Sprintf("vec=%d cr2=%#x cr3=%#x errcode=%#x: <undecodable instruction: %v>",
			f.Vector, f.CR2, f.CR3, f.ErrCode, err)
	}
	return fmt.Sprintf("vec=%d cr2=%#x cr3=%#x errcode=%#x: %v",
		f.Vector, f.CR2, f.CR3, f.ErrCode, inst)
}

// Terminate logs DecodeFault's diagnostic and marks t doomed, spec.md
// §7's "terminate the thread with a diagnostic print" — a single
// thread's Tnote_t.Isdoomed flag, not the whole process's Exit, since a
// user-mode fault is defined in scope for the faulting thread alone
// (other threads in the same process keep running).
func Terminate(t *proc.Thread, f irq.Frame, code []byte) {
	klog.Printf("trap", "thread %d (%s) terminated: %s", t.Tid, t.Name, DecodeFault(f, code))
	t.Note.Lock()
	t.Note.Isdoomed = true
	t.Note.Unlock()
}
