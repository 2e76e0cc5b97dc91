package heap

import (
	"testing"

	"nyxkernel/mem"
	"nyxkernel/oommsg"
	"nyxkernel/vm"
)

func newTestHeap(t *testing.T, nframes int) (*Heap, *mem.PhysMem) {
	t.Helper()
	pm, err := mem.NewPhysMem(nframes)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })
	as, err := vm.NewAddrSpace(pm)
	if err != nil {
		t.Fatalf("NewAddrSpace: %v", err)
	}
	return New(as, pm, 0x10000000), pm
}

func TestAllocWritableRoundTrip(t *testing.T) {
	h, _ := newTestHeap(t, 64)
	va, err := h.Alloc(64)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	b := h.bytesAt(va)
	b[0] = 0x42
	if h.bytesAt(va)[0] != 0x42 {
		t.Fatal("write to allocation not visible on reread")
	}
}

func TestFreeThenReallocReusesSegment(t *testing.T) {
	h, _ := newTestHeap(t, 64)
	va1, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc 1: %v", err)
	}
	h.Free(va1)
	va2, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc 2: %v", err)
	}
	if va1 != va2 {
		t.Fatalf("expected reuse of freed segment: va1=%x va2=%x", va1, va2)
	}
}

func TestSplitLeavesUsableRemainder(t *testing.T) {
	h, _ := newTestHeap(t, 64)
	// Force a single big free segment via one grow, then allocate small.
	big, err := h.Alloc(mem.PGSIZE * growPages - headerSize - 64)
	if err != nil {
		t.Fatalf("Alloc big: %v", err)
	}
	h.Free(big)

	small, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc small: %v", err)
	}
	// the remainder should have been split off and be independently
	// allocatable without triggering another grow.
	rest, err := h.Alloc(32)
	if err != nil {
		t.Fatalf("Alloc rest: %v", err)
	}
	if small == rest {
		t.Fatal("two allocations returned the same address")
	}
}

func TestDoubleFreePanics(t *testing.T) {
	h, _ := newTestHeap(t, 64)
	va, _ := h.Alloc(16)
	h.Free(va)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on double free")
		}
	}()
	h.Free(va)
}

func TestGrowExhaustionNotifiesOOM(t *testing.T) {
	// Only enough frames for the zero page plus growPages+1 usable
	// frames; ask for one page more than that so grow must exhaust the
	// allocator. A goroutine drains oommsg.OomCh and refuses to resume,
	// so Alloc must surface an error rather than loop forever.
	h, _ := newTestHeap(t, growPages+2)

	done := make(chan struct{})
	go func() {
		defer close(done)
		msg := <-oommsg.OomCh
		msg.Resume <- false
	}()

	_, err := h.Alloc(mem.PGSIZE*(growPages+2) - headerSize)
	<-done
	if err == nil {
		t.Fatal("expected an out-of-memory error")
	}
}
