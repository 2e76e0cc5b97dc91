package mem

// PhysMem ties an Arena (byte-addressable physical memory) to an
// Allocator (the free-frame bookkeeping) and is the single object the
// rest of the kernel depends on for physical memory. It plays the role of
// the teacher's global Physmem_t.
type PhysMem struct {
	Arena *Arena
	Alloc *Allocator
	// ZeroFrame is a single frame of zeros shared read-only by every
	// fresh anonymous mapping until it is copy-on-write'd.
	ZeroFrame FrameNum
}

// NewPhysMem constructs a PhysMem over nframes frames starting at frame 0,
// reserving one frame as the shared zero page.
func NewPhysMem(nframes int) (*PhysMem, error) {
	a, err := NewArena(nframes)
	if err != nil {
		return nil, err
	}
	alloc := NewAllocator(0, nframes)
	zf, ok := alloc.Alloc()
	if !ok {
		a.Close()
		return nil, errNoMem("reserving zero page")
	}
	a.Zero(zf)
	// the zero page is referenced by every COW mapping that hasn't
	// faulted yet; give it an extra permanent reference so Refdown from
	// unmapping a single mapping never frees it.
	alloc.Refup(zf)
	return &PhysMem{Arena: a, Alloc: alloc, ZeroFrame: zf}, nil
}

// RefpgNew allocates a zeroed frame. The returned frame's refcount is 1.
func (p *PhysMem) RefpgNew() (FrameNum, bool) {
	f, ok := p.Alloc.Alloc()
	if !ok {
		return 0, false
	}
	p.Arena.Zero(f)
	return f, true
}

// RefpgNewNozero allocates an uninitialized frame.
func (p *PhysMem) RefpgNewNozero() (FrameNum, bool) {
	return p.Alloc.Alloc()
}

type memErr string

func (m memErr) Error() string { return string(m) }

func errNoMem(where string) error { return memErr("mem: out of memory: " + where) }
