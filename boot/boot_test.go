package boot

import (
	"testing"

	"nyxkernel/mem"
)

func checksummedTable(sig string, payload []byte) []byte {
	hdr := make([]byte, 8)
	copy(hdr[0:4], sig)
	body := append(hdr, payload...)
	var sum byte
	for _, b := range body {
		sum += b
	}
	return append(body, -sum)
}

func TestVerifyChecksumAcceptsWellFormedTable(t *testing.T) {
	tbl := checksummedTable("APIC", []byte{1, 2, 3, 4})
	if !VerifyChecksum(tbl) {
		t.Fatal("well-formed table rejected")
	}
}

func TestVerifyChecksumRejectsCorruptedTable(t *testing.T) {
	tbl := checksummedTable("FACP", []byte{1, 2, 3, 4})
	tbl[len(tbl)-1] ^= 0xff
	if VerifyChecksum(tbl) {
		t.Fatal("corrupted table accepted")
	}
}

func TestVerifyTablesReportsFirstFailure(t *testing.T) {
	good := checksummedTable("APIC", []byte{9})
	bad := checksummedTable("FACP", []byte{9})
	bad[len(bad)-1] ^= 0xff

	err := VerifyTables(map[string][]byte{"APIC": good, "FACP": bad})
	if err == nil {
		t.Fatal("expected a checksum error")
	}
	cerr, ok := err.(*ErrChecksum)
	if !ok {
		t.Fatalf("error type = %T, want *ErrChecksum", err)
	}
	if cerr.Signature != "FACP" {
		t.Fatalf("Signature = %q, want FACP", cerr.Signature)
	}
}

func TestVerifyTablesAcceptsAllGood(t *testing.T) {
	good1 := checksummedTable("APIC", []byte{1})
	good2 := checksummedTable("FACP", []byte{2})
	if err := VerifyTables(map[string][]byte{"APIC": good1, "FACP": good2}); err != nil {
		t.Fatalf("VerifyTables: %v", err)
	}
}

func TestUsableRegionsFiltersByType(t *testing.T) {
	h := &Handoff{MemMap: []MemRegion{
		{Base: 0, Length: 0x100000, Type: Reserved},
		{Base: 0x100000, Length: 0x1f00000, Type: Usable},
		{Base: 0x2000000, Length: 0x1000, Type: AcpiReclaimable},
	}}
	usable := h.UsableRegions()
	if len(usable) != 1 {
		t.Fatalf("UsableRegions returned %d entries, want 1", len(usable))
	}
	if usable[0].Base != mem.PhysAddr(0x100000) {
		t.Fatalf("usable region base = %#x, want 0x100000", usable[0].Base)
	}
}

func TestBSPLookup(t *testing.T) {
	h := &Handoff{CPUs: []CPUDesc{
		{LapicID: 0, IsBSP: true},
		{LapicID: 1, IsBSP: false},
	}}
	bsp, ok := h.BSP()
	if !ok {
		t.Fatal("BSP not found")
	}
	if bsp.LapicID != 0 {
		t.Fatalf("BSP LapicID = %d, want 0", bsp.LapicID)
	}

	none := &Handoff{CPUs: []CPUDesc{{LapicID: 1}}}
	if _, ok := none.BSP(); ok {
		t.Fatal("expected no BSP found")
	}
}
