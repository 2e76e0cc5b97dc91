package vm

import (
	"nyxkernel/mem"
	"nyxkernel/util"
)

// table is a view over one 4 KiB page-table-level frame: 512 8-byte
// entries, read/written through the physical-memory HHDM the same way
// the teacher's Pmap_t ([512]Pa_t) is indexed, but backed by raw bytes
// since our frames are [PGSIZE]byte rather than [512]uint64.
type table struct {
	bytes []byte
}

func loadTable(pm *mem.PhysMem, f mem.FrameNum) table {
	return table{bytes: pm.Arena.Dmap(f)}
}

func (t table) get(i int) uint64 {
	return uint64(util.Readn(t.bytes, 8, i*8))
}

func (t table) set(i int, v uint64) {
	util.Writen(t.bytes, 8, i*8, int(v))
}

// walk descends the 4-level radix tree rooted at root to find the leaf
// PTE for va, allocating and zeroing intermediate tables along the way
// when autocreate is set. It returns the table holding the leaf entry
// and the index of that entry within it, or ok=false when a table is
// missing and autocreate is false, or when C2 is exhausted.
func walk(pm *mem.PhysMem, root mem.FrameNum, va uint64, autocreate bool) (table, int, bool) {
	l4, l3, l2, l1 := pteIndices(va)
	cur := loadTable(pm, root)
	idxs := [3]int{l4, l3, l2}
	for _, idx := range idxs {
		ent := cur.get(idx)
		var next mem.FrameNum
		if ent&PTE_P == 0 {
			if !autocreate {
				return table{}, 0, false
			}
			f, ok := pm.RefpgNew()
			if !ok {
				return table{}, 0, false
			}
			next = f
			flags := PTE_P | PTE_W
			if va < KERNBASE {
				flags |= PTE_U
			}
			cur.set(idx, uint64(next.Addr())|flags)
		} else {
			next = mem.PhysAddr(ent & PTE_ADDR).ToFrame()
			if va < KERNBASE && ent&PTE_U == 0 {
				cur.set(idx, ent|PTE_U)
			}
		}
		cur = loadTable(pm, next)
	}
	return cur, l1, true
}

// pteAt returns a pointer-like (table, index) pair for va's leaf entry
// without walking further than necessary; exists for callers (page
// fault handling) that already hold the lock and want get/set access.
func pteAt(pm *mem.PhysMem, root mem.FrameNum, va uint64, autocreate bool) (table, int, bool) {
	return walk(pm, root, va, autocreate)
}
