package smp

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"nyxkernel/boot"
	"nyxkernel/mem"
	"nyxkernel/vm"
)

func testHandoff(n int) *boot.Handoff {
	h := &boot.Handoff{CPUs: []boot.CPUDesc{{LapicID: 0, IsBSP: true}}}
	for i := 1; i <= n; i++ {
		h.CPUs = append(h.CPUs, boot.CPUDesc{LapicID: uint32(i)})
	}
	return h
}

func TestBringUpRunsOneInitPerAP(t *testing.T) {
	pm, err := mem.NewPhysMem(32)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })
	as, err := vm.NewAddrSpace(pm)
	if err != nil {
		t.Fatalf("NewAddrSpace: %v", err)
	}

	h := testHandoff(3)
	var started int32
	err = BringUp(context.Background(), h, as, nil, func(c Core) error {
		atomic.AddInt32(&started, 1)
		return nil
	})
	if err != nil {
		t.Fatalf("BringUp: %v", err)
	}
	if started != 3 {
		t.Fatalf("init ran %d times, want 3 (BSP excluded)", started)
	}
}

func TestBringUpPropagatesFirstError(t *testing.T) {
	pm, err := mem.NewPhysMem(32)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })
	as, err := vm.NewAddrSpace(pm)
	if err != nil {
		t.Fatalf("NewAddrSpace: %v", err)
	}

	h := testHandoff(2)
	boom := errors.New("AP never signaled")
	err = BringUp(context.Background(), h, as, nil, func(c Core) error {
		if c.Desc.LapicID == 2 {
			return boom
		}
		return nil
	})
	if err == nil {
		t.Fatal("expected BringUp to return the AP failure")
	}
}

func TestBringUpInstallsSharedShootdown(t *testing.T) {
	pm, err := mem.NewPhysMem(32)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })
	as, err := vm.NewAddrSpace(pm)
	if err != nil {
		t.Fatalf("NewAddrSpace: %v", err)
	}

	h := testHandoff(1)
	var calls int32
	sd := func(va uint64, n int) { atomic.AddInt32(&calls, 1) }
	if err := BringUp(context.Background(), h, as, sd, func(c Core) error {
		return nil
	}); err != nil {
		t.Fatalf("BringUp: %v", err)
	}

	as.FlushTLBOne(0x1000)
	if calls != 1 {
		t.Fatalf("shootdown called %d times after FlushTLBOne, want 1", calls)
	}
}
