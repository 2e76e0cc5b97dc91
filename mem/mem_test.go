package mem

import (
	"sync"
	"testing"
)

func TestAllocFreeRoundTrip(t *testing.T) {
	a := NewAllocator(0, 16)
	if a.NFree() != 16 {
		t.Fatalf("NFree = %d, want 16", a.NFree())
	}
	f, ok := a.Alloc()
	if !ok {
		t.Fatal("Alloc failed on non-empty allocator")
	}
	if a.IsFree(f) {
		t.Fatal("freshly allocated frame reported free")
	}
	if a.NFree() != 15 {
		t.Fatalf("NFree = %d, want 15", a.NFree())
	}
	a.Free(f)
	if !a.IsFree(f) {
		t.Fatal("freed frame not reported free (P2)")
	}
	if a.NFree() != 16 {
		t.Fatalf("NFree = %d, want 16 after free", a.NFree())
	}
}

func TestAllocExhaustion(t *testing.T) {
	a := NewAllocator(0, 2)
	a.Alloc()
	a.Alloc()
	if _, ok := a.Alloc(); ok {
		t.Fatal("expected allocator exhaustion")
	}
}

func TestMarkReservedExcludesFromFreeList(t *testing.T) {
	// Boot scenario from spec.md §8: [0..0x100000 RESERVED, 0x100000..0x2000000 USABLE].
	const pgsize = PGSIZE
	total := 0x2000000 / pgsize
	reservedUpTo := FrameNum(0x100000 / pgsize)
	a := NewAllocator(0, total)
	a.MarkReserved(0, reservedUpTo)

	for i := 0; i < total; i++ {
		f, ok := a.Alloc()
		if !ok {
			break
		}
		if f < reservedUpTo {
			t.Fatalf("allocator handed out reserved frame %d", f)
		}
	}
}

func TestRefcountCOWSharing(t *testing.T) {
	a := NewAllocator(0, 4)
	f, _ := a.Alloc()
	a.Refup(f)
	if a.Refcnt(f) != 2 {
		t.Fatalf("refcnt = %d, want 2", a.Refcnt(f))
	}
	if a.Refdown(f) {
		t.Fatal("frame freed while a reference remained")
	}
	if !a.Refdown(f) {
		t.Fatal("frame not freed at zero refcount")
	}
	if !a.IsFree(f) {
		t.Fatal("frame should be back on the free list")
	}
}

func TestConcurrentAllocNoDoubleAllocation(t *testing.T) {
	// Scenario 6: two threads each Alloc 10000 times; union of frames
	// returned must have cardinality 20000 (no double allocation).
	const perThread = 10000
	a := NewAllocator(0, 2*perThread)

	var mu sync.Mutex
	seen := make(map[FrameNum]bool, 2*perThread)
	var wg sync.WaitGroup
	for t := 0; t < 2; t++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perThread; i++ {
				f, ok := a.Alloc()
				if !ok {
					panic("unexpected exhaustion")
				}
				mu.Lock()
				if seen[f] {
					panic("frame double-allocated")
				}
				seen[f] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	if len(seen) != 2*perThread {
		t.Fatalf("len(seen) = %d, want %d", len(seen), 2*perThread)
	}
}

func TestArenaDmapZero(t *testing.T) {
	ar, err := NewArena(4)
	if err != nil {
		t.Fatalf("NewArena: %v", err)
	}
	defer ar.Close()
	p := ar.Dmap(1)
	p[0] = 0xAB
	if ar.Dmap(1)[0] != 0xAB {
		t.Fatal("write through Dmap not visible on re-Dmap")
	}
	ar.Zero(1)
	if ar.Dmap(1)[0] != 0 {
		t.Fatal("Zero did not clear the frame")
	}
}

func TestPhysMemZeroPageShared(t *testing.T) {
	pm, err := NewPhysMem(8)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	defer pm.Arena.Close()
	if pm.Alloc.Refcnt(pm.ZeroFrame) < 1 {
		t.Fatal("zero page should have a standing reference")
	}
}
