// Package heap implements the kernel heap (spec.md C4): a segregated
// first-fit free list over memory the heap itself grows into through
// package vm, with a process-wide spin lock serializing every access.
package heap

import (
	"nyxkernel/klock"
	"nyxkernel/mem"
	"nyxkernel/oommsg"
	"nyxkernel/util"
	"nyxkernel/vm"
)

// headerSize is the {size, prev, next, free} segment header: three
// 8-byte fields plus a 1-byte flag, exactly the 25 bytes spec.md 4.3
// specifies.
const headerSize = 8 + 8 + 8 + 1

// minSplit is the smallest remainder (header + payload) worth splitting
// off a larger free segment into its own segment, per spec.md 4.3.
const minSplit = headerSize + 16

// growPages is the minimum number of pages heap.grow maps on every
// call, amortizing the cost of extending the heap for small requests.
const growPages = 4

// Heap is a kernel heap instance: one per address space (or, in a
// single-kernel-heap configuration, one process-wide instance), backed
// by an AddrSpace it grows into and the PhysMem frames that back the
// growth.
type Heap struct {
	mu klock.Spin

	as *vm.AddrSpace
	pm *mem.PhysMem

	base uint64 // fixed start of the heap's virtual region
	top  uint64 // first unmapped virtual address past the heap

	freeHead uint64 // virtual address of the first free segment, 0 = empty
}

// New creates a heap that grows upward from base, which must be page
// aligned and must not collide with any other region the caller has
// already registered in as.
func New(as *vm.AddrSpace, pm *mem.PhysMem, base uint64) *Heap {
	return &Heap{as: as, pm: pm, base: base, top: base}
}

// Alloc reserves size bytes and returns the virtual address of the
// payload, or an error if the heap cannot grow to satisfy the request
// (package oommsg is notified before giving up).
func (h *Heap) Alloc(size int) (uint64, error) {
	if size <= 0 {
		return 0, errHeap("alloc: size must be positive")
	}
	need := util.Roundup(size, 8)

	h.mu.Lock()
	defer h.mu.Unlock()

	for {
		if va, ok := h.takeFree(need); ok {
			return va, nil
		}
		if err := h.grow(need); err != nil {
			return 0, err
		}
	}
}

// takeFree scans the free list first-fit for a segment that can hold
// need bytes of payload, splitting off the remainder when it is large
// enough to form its own free segment.
func (h *Heap) takeFree(need int) (uint64, bool) {
	prev := uint64(0)
	cur := h.freeHead
	for cur != 0 {
		size := h.readSize(cur)
		if size >= need {
			h.unlinkFree(prev, cur)
			if rem := size - need; rem >= minSplit {
				h.splitOff(cur, need, rem)
			} else {
				h.setFree(cur, false)
			}
			return cur + headerSize, true
		}
		prev = cur
		cur = h.readNext(cur)
	}
	return 0, false
}

// splitOff carves a used segment of `need` payload bytes out of the
// free segment at cur (whose total size is need+rem), leaving a fresh
// free segment of `rem` bytes immediately after it on the free list.
func (h *Heap) splitOff(cur uint64, need, rem int) {
	h.writeSize(cur, need)
	h.setFree(cur, false)

	newFree := cur + headerSize + uint64(need)
	h.writeSize(newFree, rem-headerSize)
	h.setFree(newFree, true)
	h.pushFree(newFree)
}

func (h *Heap) unlinkFree(prev, cur uint64) {
	next := h.readNext(cur)
	if prev == 0 {
		h.freeHead = next
	} else {
		h.writeNext(prev, next)
	}
	if next != 0 {
		h.writePrev(next, prev)
	}
}

func (h *Heap) pushFree(va uint64) {
	h.writePrev(va, 0)
	h.writeNext(va, h.freeHead)
	if h.freeHead != 0 {
		h.writePrev(h.freeHead, va)
	}
	h.freeHead = va
}

// grow extends the heap by at least enough pages to hold a segment of
// `need` payload bytes plus its header, mapping fresh zeroed frames
// through vm and adding the new space as one free segment. It retries
// against package oommsg when the underlying frame allocator is
// exhausted, matching the spec's allowance for a reclaim-and-retry
// policy rather than an unconditional failure.
func (h *Heap) grow(need int) error {
	wantBytes := headerSize + need
	pages := (wantBytes + mem.PGSIZE - 1) / mem.PGSIZE
	if pages < growPages {
		pages = growPages
	}

	frames := make([]mem.FrameNum, 0, pages)
	for len(frames) < pages {
		f, ok := h.pm.RefpgNew()
		if !ok {
			for _, fr := range frames {
				h.pm.Alloc.Free(fr)
			}
			if !h.notifyOOM(pages * mem.PGSIZE) {
				return errHeap("grow: out of memory")
			}
			frames = frames[:0]
			continue
		}
		frames = append(frames, f)
	}

	start := h.top
	va := start
	for _, f := range frames {
		if err := h.as.Map(f.Addr(), va, mem.PGSIZE, vm.FlagWrite); err != nil {
			return err
		}
		va += mem.PGSIZE
	}
	h.top = va

	h.writeSize(start, pages*mem.PGSIZE-headerSize)
	h.setFree(start, true)
	h.pushFree(start)
	return nil
}

// notifyOOM blocks on oommsg.OomCh until a receiver resumes or gives up.
func (h *Heap) notifyOOM(need int) bool {
	resume := make(chan bool, 1)
	oommsg.OomCh <- oommsg.Oommsg_t{Need: need, Resume: resume}
	return <-resume
}

// Free releases the allocation at va (as returned by Alloc). Adjacent
// free-segment coalescing is deferred, per spec.md 4.3's explicit
// allowance.
func (h *Heap) Free(va uint64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	seg := va - headerSize
	if h.readFree(seg) {
		panic("heap: double free")
	}
	h.setFree(seg, true)
	h.pushFree(seg)
}

type errHeap string

func (e errHeap) Error() string { return string(e) }
