package vm

import "nyxkernel/mem"

// RegionAt returns the region covering va, if any — memprotect consults
// this to learn the permissions a mapping was created with, since it
// must never grant back more than that.
func (as *AddrSpace) RegionAt(va uint64) (*Region, bool) {
	as.mu.Lock()
	defer as.mu.Unlock()
	return as.regions.lookup(va)
}

// Protect updates the PTE flags covering [virt, virt+length) to flags,
// clearing PTE_W when flags lacks FlagWrite and leaving every other bit
// untouched. It never sets PTE_W unless flags has FlagWrite; callers
// (ksys's MEMPROTECT handler) are responsible for rejecting a request
// that would grant a permission the backing region never had, per
// spec.md's "memprotect MUST NOT add permissions that the mapping
// lacked at creation" — Protect itself only ever applies the requested
// bits to whatever is already present, so it cannot create a mapping
// that didn't exist.
func (as *AddrSpace) Protect(virt uint64, length int, flags Flags) error {
	as.mu.Lock()

	npages := (length + mem.PGOFFSET) / mem.PGSIZE
	va := pageAlign(virt)
	for i := 0; i < npages; i++ {
		t, idx, ok := as.findPage(va, false)
		if !ok {
			as.mu.Unlock()
			return errOOM("protect: unmapped page")
		}
		ent := t.get(idx)
		if ent&PTE_P == 0 {
			as.mu.Unlock()
			return errOOM("protect: unmapped page")
		}
		ent &^= PTE_W
		if flags&FlagWrite != 0 {
			ent |= PTE_W
		}
		t.set(idx, ent)
		va += mem.PGSIZE
	}
	if r, ok := as.regions.lookup(pageAlign(virt)); ok {
		r.Perms = flags
	}
	as.mu.Unlock()

	as.flushRange(pageAlign(virt), npages)
	return nil
}
