// Package mem implements the physical frame allocator (spec.md C2) and the
// physical-memory access primitives (the HHDM) the paging engine (package
// vm) and the kernel heap (package heap) are built on.
package mem

const (
	// PGSHIFT is the base-2 exponent of the page size.
	PGSHIFT = 12
	// PGSIZE is the size of a single page in bytes.
	PGSIZE = 1 << PGSHIFT
	// PGOFFSET masks the in-page offset of an address.
	PGOFFSET = PGSIZE - 1
	// PGMASK masks the page-aligned part of an address.
	PGMASK = ^uint64(PGOFFSET)
)

// PhysAddr is a physical address.
type PhysAddr uint64

// FrameNum is a physical frame number: PhysAddr >> PGSHIFT.
type FrameNum uint32

// ToFrame converts a physical address to its containing frame number.
func (p PhysAddr) ToFrame() FrameNum { return FrameNum(uint64(p) >> PGSHIFT) }

// Addr returns the physical address of the start of frame f.
func (f FrameNum) Addr() PhysAddr { return PhysAddr(uint64(f) << PGSHIFT) }

// Page is one page-sized byte buffer, the unit the allocator hands out.
type Page = [PGSIZE]byte
