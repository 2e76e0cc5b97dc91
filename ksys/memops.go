package ksys

import (
	"nyxkernel/defs"
	"nyxkernel/mem"
	"nyxkernel/proc"
	"nyxkernel/vfs"
	"nyxkernel/vm"
)

// mmapFlags translates the wire-level MEMMAP_WR/MEMMAP_EX bitmask into
// vm.Flags; execute permission has no PTE bit in this paging engine
// (no NX-based distinction is modeled), so only the write bit carries
// through.
func mmapFlags(wire uint64) vm.Flags {
	f := vm.Flags(0)
	if wire&defs.MEMMAP_WR != 0 {
		f |= vm.FlagWrite
	}
	return f
}

// populateAnon eagerly allocates and maps npages fresh frames starting
// at addr, always writable so the caller can populate them before
// optionally dropping write access with Protect. Real demand paging
// (MEMMAP's bare anonymous case) instead registers a lazy Region and
// leaves population to vm.PageFault; this eager path is only for the
// two calls that hand over initial contents (MEMMAP_FROM_BUFFER,
// MEMMAP_FILE), which need the frames to exist up front to copy into.
func (d *Dispatcher) populateAnon(p *proc.Process, addr, length uint64) defs.Err_t {
	npages := int((length + uint64(mem.PGOFFSET)) / mem.PGSIZE)
	va := addr
	for i := 0; i < npages; i++ {
		f, ok := p.PM.RefpgNew()
		if !ok {
			return defs.ENOMEM
		}
		if err := p.AS.Map(f.Addr(), va, mem.PGSIZE, vm.FlagWrite); err != nil {
			return defs.ENOMEM
		}
		va += mem.PGSIZE
	}
	return 0
}

// sysMemmap registers a lazily-populated anonymous region; no frame is
// allocated until the first page fault touches it, per spec.md's
// fault-driven population.
func (d *Dispatcher) sysMemmap(p *proc.Process, addr, length, flags uint64) int64 {
	p.AS.AddRegion(&vm.Region{Start: addr, Len: length, Perms: mmapFlags(flags), Mtype: vm.VANON})
	return int64(addr)
}

func (d *Dispatcher) sysMemmapFromBuffer(p *proc.Process, addr, length, flags, ubuf, ubuflen uint64) int64 {
	buf, err := CopyToKernel(p.AS, ubuf, int(ubuflen))
	if err != 0 {
		return errVal(err)
	}
	mf := mmapFlags(flags)
	if perr := d.populateAnon(p, addr, length); perr != 0 {
		return errVal(perr)
	}
	n := len(buf)
	if uint64(n) > length {
		n = int(length)
	}
	if !p.AS.CopyOut(addr, buf[:n]) {
		return errVal(defs.EFAULT)
	}
	if mf&vm.FlagWrite == 0 {
		p.AS.Protect(addr, int(length), mf)
	}
	p.AS.AddRegion(&vm.Region{Start: addr, Len: length, Perms: mf, Mtype: vm.VANON})
	return int64(addr)
}

func (d *Dispatcher) sysMemmapFile(p *proc.Process, addr, length, flags, ufd, fileOff uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	if _, serr := h.Seek(int(int64(fileOff)), defs.SEEK_SET); serr != 0 {
		return errVal(serr)
	}
	buf := make([]byte, length)
	nr, rerr := h.Read(buf)
	if rerr != 0 {
		return errVal(rerr)
	}

	mf := mmapFlags(flags)
	if perr := d.populateAnon(p, addr, length); perr != 0 {
		return errVal(perr)
	}
	if !p.AS.CopyOut(addr, buf[:nr]) {
		return errVal(defs.EFAULT)
	}
	if mf&vm.FlagWrite == 0 {
		p.AS.Protect(addr, int(length), mf)
	}
	p.AS.AddRegion(&vm.Region{Start: addr, Len: length, Perms: mf, Mtype: vm.VFILE, FileOff: int(fileOff)})
	return int64(addr)
}

// sysMemprotect enforces spec.md's "MUST NOT add permissions that the
// mapping lacked at creation": it rejects a request to add write
// access to a region that was not created writable, before handing
// off to vm.AddrSpace.Protect (which itself can only apply the
// requested bits to already-present PTEs, never create a mapping).
func (d *Dispatcher) sysMemprotect(p *proc.Process, addr, length, flags uint64) int64 {
	r, ok := p.AS.RegionAt(addr)
	if !ok {
		return errVal(defs.EINVAL)
	}
	mf := mmapFlags(flags)
	if mf&vm.FlagWrite != 0 && r.Perms&vm.FlagWrite == 0 {
		return errVal(defs.EINVAL)
	}
	if err := p.AS.Protect(addr, int(length), mf); err != nil {
		return errVal(defs.EFAULT)
	}
	return 0
}

// sysAllocPage allocates one fresh zeroed physical frame and returns
// its physical address; it installs no mapping in p's address space.
func (d *Dispatcher) sysAllocPage(p *proc.Process) int64 {
	f, ok := p.PM.RefpgNew()
	if !ok {
		return errVal(defs.ENOMEM)
	}
	return int64(f.Addr())
}
