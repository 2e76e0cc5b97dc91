package mem

import "nyxkernel/klock"

// sentinel marks the end of a free list and the head's "prev".
const sentinel = ^FrameNum(0)

// frameDesc is the per-frame descriptor spec.md §3 describes as a fixed
// packed record keyed by frame number: {prev, next, usable, refcount}.
// This implementation keeps the four fields as plain Go struct fields
// rather than a literal bit-packed 13-byte blob — see DESIGN.md for why —
// but preserves the invariant verbatim: a descriptor is on the free list
// iff refcount == 0 && usable, and prev/next form a doubly linked list
// with the sentinel marking both ends.
type frameDesc struct {
	prev, next FrameNum
	usable     bool
	refcount   int32
}

// Allocator is the intrusive O(1) free-list frame allocator (spec.md C2).
type Allocator struct {
	mu    klock.Spin
	descs []frameDesc
	head  FrameNum
	start FrameNum // first frame number this allocator covers
	free  int
}

// NewAllocator builds an allocator over nframes frames starting at frame
// number start, with every frame initially usable and free. Callers
// carve out reserved ranges (the descriptor array's own backing frames,
// boot-reported reserved regions) with MarkReserved before handing the
// allocator to the rest of the kernel.
func NewAllocator(start FrameNum, nframes int) *Allocator {
	a := &Allocator{
		descs: make([]frameDesc, nframes),
		start: start,
		head:  sentinel,
	}
	for i := nframes - 1; i >= 0; i-- {
		a.descs[i] = frameDesc{prev: sentinel, next: a.head, usable: true}
		if a.head != sentinel {
			a.descs[a.head].prev = FrameNum(i)
		}
		a.head = FrameNum(i)
	}
	a.free = nframes
	return a
}

func (a *Allocator) idx(f FrameNum) int {
	i := int(f) - int(a.start)
	if i < 0 || i >= len(a.descs) {
		panic("mem: frame out of range for this allocator")
	}
	return i
}

func (a *Allocator) unlink(i int) {
	d := &a.descs[i]
	if d.prev != sentinel {
		a.descs[d.prev].next = d.next
	} else {
		a.head = d.next
	}
	if d.next != sentinel {
		a.descs[d.next].prev = d.prev
	}
}

// MarkReserved removes [lo, hi) from the free list without touching
// refcounts of frames already allocated; it is used once at boot to
// exclude boot-reserved regions (and the descriptor array's own frames)
// before the allocator is published.
func (a *Allocator) MarkReserved(lo, hi FrameNum) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for f := lo; f < hi; f++ {
		i := a.idx(f)
		d := &a.descs[i]
		if d.refcount == 0 && d.usable {
			a.unlink(i)
		}
		d.usable = false
	}
}

// Alloc unlinks the head of the free list in O(1) and returns it with
// refcount 1. It never zeroes the frame — callers needing zeroed memory
// do so explicitly through the Arena.
func (a *Allocator) Alloc() (FrameNum, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.head == sentinel {
		return 0, false
	}
	f := a.head
	i := a.idx(f)
	a.unlink(i)
	a.descs[i].refcount = 1
	a.free--
	return f, true
}

// free_ re-inserts f at the head of the free list, matching spec.md's O(1)
// free. It is the caller's responsibility to have already dropped
// refcount to zero via Refdown; free_ panics otherwise to catch double
// frees early.
func (a *Allocator) free_(f FrameNum) {
	i := a.idx(f)
	d := &a.descs[i]
	if d.refcount != 0 {
		panic("mem: free of frame with live references")
	}
	d.prev = sentinel
	d.next = a.head
	if a.head != sentinel {
		a.descs[a.head].prev = f
	}
	a.head = f
	a.free++
}

// Refcnt returns the current reference count of frame f.
func (a *Allocator) Refcnt(f FrameNum) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return int(a.descs[a.idx(f)].refcount)
}

// Refup increments the reference count of frame f (copy-on-write sharing).
func (a *Allocator) Refup(f FrameNum) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.descs[a.idx(f)].refcount++
}

// Refdown decrements the reference count of frame f, freeing it (and
// returning true) when it reaches zero.
func (a *Allocator) Refdown(f FrameNum) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.idx(f)
	d := &a.descs[i]
	if d.refcount <= 0 {
		panic("mem: refdown of frame with no references")
	}
	d.refcount--
	if d.refcount == 0 {
		a.free_(f)
		return true
	}
	return false
}

// Free is the external O(1) free used by first-time owners (refcount was
// exactly 1).
func (a *Allocator) Free(f FrameNum) {
	a.mu.Lock()
	defer a.mu.Unlock()
	i := a.idx(f)
	d := &a.descs[i]
	if d.refcount != 1 {
		panic("mem: Free called on a frame with refcount != 1; use Refdown for shared frames")
	}
	d.refcount = 0
	a.free_(f)
}

// NFree reports the number of currently free frames (used by tests and by
// the D_PROF diagnostic surface).
func (a *Allocator) NFree() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.free
}

// IsFree reports whether frame f is currently on the free list — the
// direct P2 invariant check used by tests.
func (a *Allocator) IsFree(f FrameNum) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	d := a.descs[a.idx(f)]
	return d.refcount == 0 && d.usable
}
