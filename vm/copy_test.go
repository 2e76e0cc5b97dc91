package vm

import (
	"testing"

	"nyxkernel/mem"
)

func TestValidatePagesRequiresUserPresentWritable(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	f, _ := pm.RefpgNew()
	const va = uint64(0x3000)
	if err := as.Map(f.Addr(), va, mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if !as.ValidatePages(va, mem.PGSIZE, false) {
		t.Fatal("ValidatePages(read) should succeed on a present user page")
	}
	if !as.ValidatePages(va, mem.PGSIZE, true) {
		t.Fatal("ValidatePages(write) should succeed on a writable user page")
	}
	if as.ValidatePages(va+mem.PGSIZE, mem.PGSIZE, false) {
		t.Fatal("ValidatePages should fail on an unmapped page")
	}
}

func TestValidatePagesRejectsReadOnlyForWrite(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	f, _ := pm.RefpgNew()
	const va = uint64(0x4000)
	if err := as.Map(f.Addr(), va, mem.PGSIZE, 0); err != nil {
		t.Fatalf("Map: %v", err)
	}
	if as.ValidatePages(va, mem.PGSIZE, true) {
		t.Fatal("ValidatePages(write) should fail on a read-only page")
	}
}

func TestCopyInOutRoundTrip(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	f, _ := pm.RefpgNew()
	const va = uint64(0x5000)
	if err := as.Map(f.Addr(), va, mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map: %v", err)
	}

	src := []byte("hello, user space")
	if !as.CopyOut(va+100, src) {
		t.Fatal("CopyOut failed")
	}
	dst := make([]byte, len(src))
	if !as.CopyIn(va+100, dst) {
		t.Fatal("CopyIn failed")
	}
	if string(dst) != string(src) {
		t.Fatalf("CopyIn = %q, want %q", dst, src)
	}
}

func TestCopySpanningPageBoundary(t *testing.T) {
	as, pm := newTestSpace(t, 64)
	f0, _ := pm.RefpgNew()
	f1, _ := pm.RefpgNew()
	const va = uint64(0x6000)
	if err := as.Map(f0.Addr(), va, mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map page 0: %v", err)
	}
	if err := as.Map(f1.Addr(), va+mem.PGSIZE, mem.PGSIZE, FlagWrite); err != nil {
		t.Fatalf("Map page 1: %v", err)
	}

	src := make([]byte, 32)
	for i := range src {
		src[i] = byte(i)
	}
	spanVA := va + mem.PGSIZE - 16
	if !as.CopyOut(spanVA, src) {
		t.Fatal("CopyOut spanning pages failed")
	}
	dst := make([]byte, len(src))
	if !as.CopyIn(spanVA, dst) {
		t.Fatal("CopyIn spanning pages failed")
	}
	for i := range src {
		if dst[i] != src[i] {
			t.Fatalf("byte %d = %d, want %d", i, dst[i], src[i])
		}
	}
}

func TestCopyInFailsOnUnmappedRange(t *testing.T) {
	as, _ := newTestSpace(t, 64)
	dst := make([]byte, 8)
	if as.CopyIn(0x70000, dst) {
		t.Fatal("CopyIn should fail against an unmapped address")
	}
}
