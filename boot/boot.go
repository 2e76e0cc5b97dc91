// Package boot models the bootloader-to-kernel handoff spec.md §6
// describes: a memory map, a framebuffer record, the HHDM offset, and
// per-CPU descriptors discovered before the kernel proper takes over.
// No teacher package covers this directly (the retrieved pack has no
// arch-init precedent); the field set below is grounded on
// original_source/src/arch/x86_64/acpi/acpi.c and .../kernel.h, written
// in the plain-struct style the rest of this module uses for boot-time
// data (mem.PhysMem, vm.Region).
package boot

import "nyxkernel/mem"

// RegionType classifies one entry of the bootloader memory map.
type RegionType int

const (
	Usable RegionType = iota
	ReclaimableBootloader
	AcpiReclaimable
	AcpiNVS
	Reserved
	Bad
	Kernel
	Framebuffer
)

// MemRegion is one entry of the bootloader-reported memory map.
type MemRegion struct {
	Base   mem.PhysAddr
	Length uint64
	Type   RegionType
}

// FBInfo is the framebuffer record handed off by the bootloader,
// spec.md's fb_info.
type FBInfo struct {
	Addr   mem.PhysAddr
	Width  int
	Height int
	Pitch  int
	Bpp    int
}

// CPUDesc is one entry of the SMP descriptor table the bootloader (or,
// on real hardware, the MADT) reports: which LAPIC id belongs to which
// logical processor, and whether it is the boot processor.
type CPUDesc struct {
	LapicID uint32
	IsBSP   bool
}

// PagingMode records which page-table format the bootloader left the
// CPU in; this kernel only ever runs 4-level paging, but the handoff
// still reports it so the paging engine can refuse to start on a
// bootloader that set up 5-level tables.
type PagingMode int

const (
	Paging4Level PagingMode = iota
	Paging5Level
)

// Handoff is everything the kernel proper needs from whatever brought
// it to its entry point: the memory map (fed into mem.NewAllocator's
// MarkReserved calls), the HHDM offset, the RSDP's physical address,
// the framebuffer, the paging mode, and the per-CPU descriptor table
// smp.BringUp iterates.
type Handoff struct {
	MemMap     []MemRegion
	HHDMOffset uint64
	RSDP       mem.PhysAddr
	FB         FBInfo
	Paging     PagingMode
	CPUs       []CPUDesc
}

// UsableRegions returns the subset of the memory map the frame
// allocator may carve free frames from.
func (h *Handoff) UsableRegions() []MemRegion {
	var out []MemRegion
	for _, r := range h.MemMap {
		if r.Type == Usable {
			out = append(out, r)
		}
	}
	return out
}

// BSP returns the boot-strap processor's descriptor, and false if the
// handoff reported none (a malformed or single-core handoff).
func (h *Handoff) BSP() (CPUDesc, bool) {
	for _, c := range h.CPUs {
		if c.IsBSP {
			return c, true
		}
	}
	return CPUDesc{}, false
}
