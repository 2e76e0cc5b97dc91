package vm

// FileBacking is the minimal surface a file-backed region needs from
// whatever holds its data (the vfs package's node handles, in this
// kernel); it plays the role of the teacher's fdops.Fdops_i as seen
// from vm/as.go's Vmadd_file/Vmadd_sharefile.
type FileBacking interface {
	// Filepage returns the bytes of the page covering the given file
	// offset, for the page-fault handler to copy from or map directly.
	Filepage(foff int) ([]byte, error)
}

// Mtype classifies a virtual memory region the way the teacher's
// vm.mtype_t does: anonymous-private, anonymous-shared, or file-backed.
type Mtype int

const (
	VANON Mtype = iota
	VSANON
	VFILE
)

// Region describes one mapped interval of an address space: [Start,
// Start+Len) bytes, its mapping type, and the permission bits a fault
// in this region is allowed to grant. Perms == 0 marks a guard region:
// any fault inside it is a hard error, matching spec.md's isguard check
// in Sys_pgfault.
type Region struct {
	Start, Len uint64
	Perms      Flags
	Mtype      Mtype

	// File-backed region state (Mtype == VFILE).
	File    FileBacking
	FileOff int
	Shared  bool
}

func (r *Region) contains(va uint64) bool {
	return va >= r.Start && va < r.Start+r.Len
}

// regionList is the teacher's Vmregion_t simplified to an unsorted
// slice kept in insertion order: a process has at most a few dozen live
// mappings, so a linear scan is plenty for the hosted model, where
// the Go runtime (not a from-scratch interval tree) owns the slice
// growth.
type regionList struct {
	regions []*Region
}

func (rl *regionList) insert(r *Region) {
	rl.regions = append(rl.regions, r)
}

func (rl *regionList) lookup(va uint64) (*Region, bool) {
	for _, r := range rl.regions {
		if r.contains(va) {
			return r, true
		}
	}
	return nil, false
}

func (rl *regionList) remove(r *Region) {
	for i, rr := range rl.regions {
		if rr == r {
			rl.regions = append(rl.regions[:i], rl.regions[i+1:]...)
			return
		}
	}
}

// clear drops every region, used when an address space is torn down.
func (rl *regionList) clear() {
	rl.regions = nil
}
