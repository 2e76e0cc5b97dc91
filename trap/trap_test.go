package trap

import (
	"strings"
	"testing"

	"nyxkernel/irq"
	"nyxkernel/mem"
	"nyxkernel/proc"
)

func TestDecodeFaultDecodesValidInstruction(t *testing.T) {
	nop := []byte{0x90}
	msg := DecodeFault(irq.Frame{Vector: irq.VecPageFault, CR2: 0x4000, CR3: 0x1000}, nop)
	if !strings.Contains(msg, "NOP") {
		t.Fatalf("diagnostic = %q, want it to mention NOP", msg)
	}
	if !strings.Contains(msg, "cr2=0x4000") {
		t.Fatalf("diagnostic = %q, want cr2=0x4000", msg)
	}
}

func TestDecodeFaultHandlesUndecodableBytes(t *testing.T) {
	msg := DecodeFault(irq.Frame{Vector: irq.VecPageFault}, nil)
	if !strings.Contains(msg, "undecodable") {
		t.Fatalf("diagnostic = %q, want it to flag an undecodable instruction", msg)
	}
}

func TestTerminateMarksThreadDoomed(t *testing.T) {
	pm, err := mem.NewPhysMem(64)
	if err != nil {
		t.Fatalf("NewPhysMem: %v", err)
	}
	t.Cleanup(func() { pm.Arena.Close() })

	p, err := proc.CreateProc("faulter", nil, pm)
	if err != nil {
		t.Fatalf("CreateProc: %v", err)
	}
	th, err := p.CreateThread("main", func(int) {}, 0)
	if err != nil {
		t.Fatalf("CreateThread: %v", err)
	}

	Terminate(th, irq.Frame{Vector: irq.VecPageFault, CR2: 0x5000}, []byte{0x90})

	if !th.Note.Isdoomed {
		t.Fatal("Terminate did not mark the thread doomed")
	}
}
