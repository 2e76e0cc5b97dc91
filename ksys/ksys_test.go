package ksys

import (
	"testing"

	"nyxkernel/defs"
	"nyxkernel/fd"
	"nyxkernel/kbd"
	"nyxkernel/mem"
	"nyxkernel/proc"
	"nyxkernel/timer"
	"nyxkernel/vfs"
	"nyxkernel/vfskfs"
	"nyxkernel/vm"
)

// scratchVAs are pre-mapped, writable user pages every test environment
// gets up front, so a test can hand any of them to a syscall as the
// address of a path string, a stat buffer, or an I/O buffer without
// repeating the Map boilerplate per test.
var scratchVAs = []uint64{0x2000, 0x3000, 0x4000, 0x5000, 0x6000}

type testEnv struct {
	d  *Dispatcher
	p  *proc.Process
	pm *mem.PhysMem
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	pm, err := mem.NewPhysMem(512)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })

	cache, _ := vfskfs.Mount(0, 0, defs.S_IRWXU|defs.S_IRWXG|defs.S_IRWXO)

	p, err := proc.CreateProc("test", nil, pm)
	if err != nil {
		t.Fatalf("CreateProc: %v", err)
	}
	p.Uid = 0

	rootH, herr := vfs.OpenHandle(cache, vfs.RootIndex)
	if herr != 0 {
		t.Fatalf("OpenHandle root: %v", herr)
	}
	p.Cwd = fd.MkRootCwd(&fd.Fd_t{Fops: rootH})

	for _, va := range scratchVAs {
		f, ok := pm.RefpgNew()
		if !ok {
			t.Fatal("RefpgNew: out of test frames")
		}
		if err := p.AS.Map(f.Addr(), va, mem.PGSIZE, vm.FlagWrite); err != nil {
			t.Fatalf("Map scratch page: %v", err)
		}
	}

	clock := timer.NewClock()
	clock.Start()
	t.Cleanup(clock.Stop)

	d := &Dispatcher{Cache: cache, Kbd: kbd.NewRing(pm), Clock: clock}
	return &testEnv{d: d, p: p, pm: pm}
}

// putString NUL-terminates s and copies it into the process's address
// space at va, for passing as a path or symlink-target argument.
func putString(t *testing.T, e *testEnv, va uint64, s string) {
	t.Helper()
	b := append([]byte(s), 0)
	if !e.p.AS.CopyOut(va, b) {
		t.Fatalf("CopyOut %q at %#x", s, va)
	}
}

func getBytes(t *testing.T, e *testEnv, va uint64, n int) []byte {
	t.Helper()
	buf := make([]byte, n)
	if !e.p.AS.CopyIn(va, buf) {
		t.Fatalf("CopyIn %d bytes at %#x", n, va)
	}
	return buf
}
