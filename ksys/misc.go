package ksys

import (
	"fmt"

	"nyxkernel/defs"
	"nyxkernel/klog"
	"nyxkernel/proc"
)

// kbReadSpins bounds KB_READ's wait for a keystroke. The original busy-spins
// with interrupts enabled until one arrives; a hosted process has no
// interrupt source to wait on, so this polls the ring with a short sleep
// between tries instead of looping forever, and gives up with EAGAIN once
// no test or caller has fed the ring in that time.
const kbReadSpins = 200

// sysGetKb copies out the oldest pending keyboard event, or EAGAIN if
// none is queued. The original SYSCALL_GET_KB instead maps the shared
// kbd_buffer_state_t struct directly into the caller's address space;
// this hosted ring has no single physical page a user pml4 could be
// handed, so GET_KB here is adapted to a one-shot copy_to_user of the
// next event, matching the same "hand the caller the next keystroke"
// intent without exposing kernel memory to the process.
func (d *Dispatcher) sysGetKb(p *proc.Process, uaddr uint64) int64 {
	e, ok := d.Kbd.Pop()
	if !ok {
		return errVal(defs.EAGAIN)
	}
	b := []byte{byte(e.Code), byte(e.Code >> 8), byte(e.State), e.Mods}
	if !p.AS.CopyOut(uaddr, b) {
		return errVal(defs.EFAULT)
	}
	return 0
}

// sysKbRead blocks (bounded) until a keystroke is available and returns
// its scancode in the low bits of the result, mirroring the original's
// kbd_buffer_pop-into-rax convention.
func (d *Dispatcher) sysKbRead(p *proc.Process) int64 {
	for i := 0; i < kbReadSpins; i++ {
		if e, ok := d.Kbd.Pop(); ok {
			return int64(e.Code)
		}
		d.Clock.SleepMs(1)
	}
	return errVal(defs.EAGAIN)
}

// sysPrint copies in a NUL-terminated string and writes it verbatim to
// the console, the raw passthrough the original's SYSCALL_PRINT performs
// via printf("%s", ...) — unlike klog.Printf, no subsystem prefix or
// trailing newline is added.
func (d *Dispatcher) sysPrint(p *proc.Process, uaddr uint64) int64 {
	s, err := CopyInString(p.AS, uaddr, defs.PATH_MAX)
	if err != 0 {
		return errVal(err)
	}
	fmt.Fprint(klog.Out, s.String())
	return 0
}

// sysPrintPtr prints a raw pointer value, mirroring the original's
// printf("%p", ...).
func (d *Dispatcher) sysPrintPtr(addr uint64) int64 {
	fmt.Fprintf(klog.Out, "%#x", addr)
	return 0
}

// sysSleep blocks the calling thread for ms milliseconds.
func (d *Dispatcher) sysSleep(ms uint64) int64 {
	d.Clock.SleepMs(int(ms))
	return 0
}
