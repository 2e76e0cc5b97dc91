// Package vm implements the paging engine (spec.md C3): a 4-level
// canonical x86-64 page table walker, autocreate-on-demand intermediate
// tables, and copy-on-write page-fault handling. It is the teacher's
// vm.Vm_t/as.go generalized from a single fixed pmap layout to the
// map/find_page/unmap/translate/flush_tlb_* operation set the
// specification names explicitly.
package vm

import "nyxkernel/mem"

// PTE_* are the page-table-entry flag bits, grounded on the teacher's
// mem/mem.go PTE_P/W/U/G/PCD/PS/PTE_ADDR plus the COW/WASCOW/D/A bits
// vm/as.go references but that were not present in the retrieved
// mem/mem.go — this package owns the full bit layout.
const (
	PTE_P      uint64 = 1 << 0 // present
	PTE_W      uint64 = 1 << 1 // writable
	PTE_U      uint64 = 1 << 2 // user-accessible
	PTE_PCD    uint64 = 1 << 4 // cache disable
	PTE_A      uint64 = 1 << 5 // accessed
	PTE_D      uint64 = 1 << 6 // dirty
	PTE_PS     uint64 = 1 << 7 // page size (huge page at PD/PDPT level)
	PTE_G      uint64 = 1 << 8 // global
	PTE_COW    uint64 = 1 << 9 // software: copy-on-write
	PTE_WASCOW uint64 = 1 << 10 // software: was COW, now exclusively owned

	// PTE_ADDR masks the physical frame address out of an entry.
	PTE_ADDR = uint64(mem.PGMASK)
)

const (
	// entsPerTable is the number of entries in one level of the radix tree.
	entsPerTable = 512
	// idxBits is the width of each level's index (9 bits -> 512 entries).
	idxBits = 9
	idxMask = entsPerTable - 1
)

// Flags bundles the permission bits a caller asks Map for; the walker
// adds PTE_P itself and derives PTE_U from the virtual address's
// position relative to KERNBASE, per spec.md 4.2.
type Flags uint64

const (
	FlagWrite Flags = 1 << iota
	FlagCOW
)

// KERNBASE is the canonical boundary between user and kernel address
// ranges; any virtual address below it is a user address and is mapped
// with PTE_U set.
const KERNBASE = uint64(0xffff800000000000)

// USERMIN is the lowest valid user virtual address (page zero is never
// mappable, matching the teacher's guard-page convention).
const USERMIN = uint64(mem.PGSIZE)

func pteIndices(va uint64) (l4, l3, l2, l1 int) {
	l4 = int((va >> 39) & idxMask)
	l3 = int((va >> 30) & idxMask)
	l2 = int((va >> 21) & idxMask)
	l1 = int((va >> 12) & idxMask)
	return
}
