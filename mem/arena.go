package mem

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// Arena is the kernel's single abstraction over "physical memory": a flat
// byte region addressable by frame number. A bare-metal build's Arena
// would be the real DRAM range Limine reports as usable, accessed through
// the HHDM; the hosted Arena here backs the same interface with a real
// anonymous mmap via golang.org/x/sys/unix, so that Alloc/Free, page-table
// walks, and COW-on-fault all exercise real, page-granular host memory
// rather than a plain Go slice — the same trick the teacher uses to back
// fs.Disk_i with a real *os.File in ufs/driver.go.
type Arena struct {
	mem      []byte
	nframes  int
	dmapinit bool
}

// NewArena mmaps an anonymous region of nframes pages and returns the
// Arena backing it. Call Close to release the mapping.
func NewArena(nframes int) (*Arena, error) {
	if nframes <= 0 {
		return nil, fmt.Errorf("mem: NewArena: nframes must be positive")
	}
	size := nframes * PGSIZE
	b, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, fmt.Errorf("mem: mmap %d bytes: %w", size, err)
	}
	return &Arena{mem: b, nframes: nframes, dmapinit: true}, nil
}

// Close unmaps the arena. The arena must not be used afterward.
func (a *Arena) Close() error {
	if !a.dmapinit {
		return nil
	}
	a.dmapinit = false
	return unix.Munmap(a.mem)
}

// NFrames reports the number of frames backing the arena.
func (a *Arena) NFrames() int { return a.nframes }

// Dmap returns the direct-mapped byte slice for frame f — the kernel's one
// and only way to read or write physical memory, matching spec.md's
// "HHDM provides kernel-virtual access to every physical frame".
func (a *Arena) Dmap(f FrameNum) []byte {
	if !a.dmapinit {
		panic("mem: Dmap before arena init")
	}
	off := int(f) * PGSIZE
	if off < 0 || off+PGSIZE > len(a.mem) {
		panic("mem: Dmap: frame out of range")
	}
	return a.mem[off : off+PGSIZE : off+PGSIZE]
}

// Zero clears frame f.
func (a *Arena) Zero(f FrameNum) {
	p := a.Dmap(f)
	for i := range p {
		p[i] = 0
	}
}
