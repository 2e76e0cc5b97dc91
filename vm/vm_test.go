package vm

import (
	"testing"

	"nyxkernel/defs"
	"nyxkernel/mem"
)

func newTestSpace(t *testing.T, nframes int) (*AddrSpace, *mem.PhysMem) {
	t.Helper()
	pm, err := mem.NewPhysMem(nframes)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })
	as, err := NewAddrSpace(pm)
	if err != nil {
		t.Fatalf("NewAddrSpace: %v", err)
	}
	return as, pm
}

func TestMapTranslateUnmap(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	f, ok := pm.RefpgNew()
	if !ok {
		t.Fatal("RefpgNew failed")
	}
	const va = uint64(0x1000)
	if err := as.Map(f.Addr(), va, mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	pa, ok := as.Translate(va)
	if !ok {
		t.Fatal("Translate: no mapping after Map")
	}
	if pa.ToFrame() != f {
		t.Fatalf("Translate returned frame %d, want %d", pa.ToFrame(), f)
	}
	as.Unmap(va, mem.PGSIZE)
	if _, ok := as.Translate(va); ok {
		t.Fatal("Translate found a mapping after Unmap")
	}
}

func TestMultiPageMapSpansTables(t *testing.T) {
	as, pm := newTestSpace(t, 600)
	f, _ := pm.RefpgNew()
	const va = uint64(0x200000) // crosses a PD boundary with enough pages
	const npages = 520           // > 512 entries, forces a second PT
	if err := as.Map(f.Addr(), va, npages*mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	last := va + uint64(npages-1)*mem.PGSIZE
	if _, ok := as.Translate(last); !ok {
		t.Fatal("last page of multi-table mapping did not translate")
	}
}

func TestAnonFaultZeroFill(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	const va = uint64(0x40000)
	as.AddRegion(&Region{Start: va, Len: mem.PGSIZE, Perms: FlagWrite, Mtype: VANON})

	if err := as.PageFault(va, 0|FaultUser); err != 0 {
		t.Fatalf("PageFault (read): %v", err)
	}
	pa, ok := as.Translate(va)
	if !ok {
		t.Fatal("no mapping installed by read fault")
	}
	_ = pa
}

func TestAnonCOWWriteCopies(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	const va = uint64(0x50000)
	as.AddRegion(&Region{Start: va, Len: mem.PGSIZE, Perms: FlagWrite, Mtype: VANON})

	// first touch: read fault installs the shared zero page COW.
	if err := as.PageFault(va, FaultUser); err != 0 {
		t.Fatalf("read fault: %v", err)
	}
	zeroPA, _ := as.Translate(va)
	if zeroPA.ToFrame() != pm.ZeroFrame {
		t.Fatalf("expected shared zero frame, got %d", zeroPA.ToFrame())
	}

	// second touch: write fault must copy off the shared zero page.
	if err := as.PageFault(va, FaultUser|FaultWrite); err != 0 {
		t.Fatalf("write fault: %v", err)
	}
	ownedPA, _ := as.Translate(va)
	if ownedPA.ToFrame() == pm.ZeroFrame {
		t.Fatal("write fault left mapping on the shared zero frame")
	}
	if pm.Alloc.Refcnt(ownedPA.ToFrame()) != 1 {
		t.Fatalf("owned frame refcnt = %d, want 1", pm.Alloc.Refcnt(ownedPA.ToFrame()))
	}
}

func TestGuardRegionFaultsEFAULT(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	const va = uint64(0x60000)
	as.AddRegion(&Region{Start: va, Len: mem.PGSIZE, Perms: 0, Mtype: VANON})
	if err := as.PageFault(va, FaultUser); err != -defs.EFAULT {
		t.Fatalf("guard region fault = %v, want EFAULT", err)
	}
}

func TestReadOnlyRegionWriteFaultsEFAULT(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	const va = uint64(0x70000)
	as.AddRegion(&Region{Start: va, Len: mem.PGSIZE, Perms: 0 /* no write */, Mtype: VANON})
	// give it a non-zero, non-write perms value distinct from guard: use
	// a marker bit that isn't FlagWrite so Perms != 0 but writeok stays false.
	as.regions.regions[0].Perms = Flags(1 << 7)
	if err := as.PageFault(va, FaultUser|FaultWrite); err != -defs.EFAULT {
		t.Fatalf("read-only write fault = %v, want EFAULT", err)
	}
}

func TestUnmappedAddressFaultsEFAULT(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	if err := as.PageFault(0x99999000, FaultUser); err != -defs.EFAULT {
		t.Fatalf("unmapped fault = %v, want EFAULT", err)
	}
}

func TestFlushTLBBumpsGeneration(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	g0 := as.TLBGeneration()
	as.FlushTLBOne(0x1000)
	if as.TLBGeneration() != g0+1 {
		t.Fatal("FlushTLBOne did not bump generation")
	}
	as.FlushTLBAll()
	if as.TLBGeneration() != g0+2 {
		t.Fatal("FlushTLBAll did not bump generation")
	}
}

func TestShootdownCallbackInvoked(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	var gotVA uint64
	var gotCount int
	as.SetShootdown(func(va uint64, n int) {
		gotVA, gotCount = va, n
	})
	as.FlushTLBOne(0x2000)
	if gotVA != 0x2000 || gotCount != 1 {
		t.Fatalf("shootdown callback got (%x, %d), want (0x2000, 1)", gotVA, gotCount)
	}
}
