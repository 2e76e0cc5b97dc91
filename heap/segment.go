package heap

import (
	"nyxkernel/mem"
	"nyxkernel/util"
)

// Segment header layout, relative to a segment's virtual address:
//
//	[0:8]   size (payload bytes, not counting the header)
//	[8:16]  prev free-list pointer (virtual address, 0 = none)
//	[16:24] next free-list pointer (virtual address, 0 = none)
//	[24]    free flag (0 = used, 1 = free)
const (
	offSize = 0
	offPrev = 8
	offNext = 16
	offFree = 24
)

// bytesAt returns the mapped byte slice starting at virtual address va
// through the end of its containing page; it is the heap's only way to
// touch its own backing memory, translating through the address space
// exactly as the syscall layer's copy_to_kernel/copy_to_user would.
func (h *Heap) bytesAt(va uint64) []byte {
	pa, ok := h.as.Translate(va)
	if !ok {
		panic("heap: access to unmapped heap memory")
	}
	off := int(va & uint64(mem.PGOFFSET))
	return h.pm.Arena.Dmap(pa.ToFrame())[off:]
}

// readU64/writeU64 loop across a page boundary the same way the
// teacher's vm.Vm_t.Userreadn/Userwriten do, since a segment field can
// straddle two mapped frames that are not contiguous in the arena.
func (h *Heap) readU64(va uint64) uint64 {
	var ret uint64
	for i := 0; i < 8; {
		s := h.bytesAt(va + uint64(i))
		n := 8 - i
		if len(s) < n {
			n = len(s)
		}
		ret |= uint64(util.Readn(s, n, 0)) << (8 * uint(i))
		i += n
	}
	return ret
}

func (h *Heap) writeU64(va uint64, v uint64) {
	for i := 0; i < 8; {
		s := h.bytesAt(va + uint64(i))
		n := 8 - i
		if len(s) < n {
			n = len(s)
		}
		util.Writen(s, n, 0, int(v>>(8*uint(i))))
		i += n
	}
}

func (h *Heap) readSize(seg uint64) int   { return int(h.readU64(seg + offSize)) }
func (h *Heap) writeSize(seg uint64, v int) { h.writeU64(seg+offSize, uint64(v)) }

func (h *Heap) readPrev(seg uint64) uint64    { return h.readU64(seg + offPrev) }
func (h *Heap) writePrev(seg uint64, v uint64) { h.writeU64(seg+offPrev, v) }

func (h *Heap) readNext(seg uint64) uint64    { return h.readU64(seg + offNext) }
func (h *Heap) writeNext(seg uint64, v uint64) { h.writeU64(seg+offNext, v) }

func (h *Heap) readFree(seg uint64) bool {
	return h.bytesAt(seg+offFree)[0] != 0
}

func (h *Heap) setFree(seg uint64, free bool) {
	b := h.bytesAt(seg + offFree)
	if free {
		b[0] = 1
	} else {
		b[0] = 0
	}
}
