// Package apic models the two pieces of interrupt-controller hardware
// package irq depends on: the per-core Local APIC (end-of-interrupt
// signaling) and the shared I/O APIC (external IRQ line routing to
// vectors). Neither piece of real hardware exists in a hosted process,
// so both are counters and routing tables a test can assert against
// instead of MMIO register writes — the same substitution mem.Arena
// makes for physical memory.
package apic

import "nyxkernel/klock"

// LAPIC is the hosted stand-in for a core's Local APIC.
type LAPIC struct {
	mu       klock.Spin
	eoiCount uint64
}

// EOI records an end-of-interrupt signal; package irq calls this after
// every IOAPIC-routed dispatch returns.
func (l *LAPIC) EOI() {
	l.mu.Lock()
	l.eoiCount++
	l.mu.Unlock()
}

// EOICount reports how many EOIs have been sent, for tests asserting
// the dispatcher acknowledges every IRQ it handles.
func (l *LAPIC) EOICount() uint64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.eoiCount
}

// IOAPIC routes external IRQ lines (0-23 on real hardware) to vectors
// in the shared dispatch table.
type IOAPIC struct {
	mu     klock.Spin
	routes map[int]int // irq line -> vector
}

// NewIOAPIC returns an IOAPIC with no lines routed.
func NewIOAPIC() *IOAPIC {
	return &IOAPIC{routes: make(map[int]int)}
}

// RouteIRQ directs IRQ line irq to vector.
func (io *IOAPIC) RouteIRQ(irqLine, vector int) {
	io.mu.Lock()
	defer io.mu.Unlock()
	io.routes[irqLine] = vector
}

// VectorFor returns the vector IRQ line irq is routed to, if any.
func (io *IOAPIC) VectorFor(irqLine int) (int, bool) {
	io.mu.Lock()
	defer io.mu.Unlock()
	v, ok := io.routes[irqLine]
	return v, ok
}
