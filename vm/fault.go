package vm

import (
	"nyxkernel/defs"
	"nyxkernel/mem"
)

// FaultWrite and FaultUser mirror the error-code bits the real CPU
// pushes on a page fault (bit 1 = write, bit 2 = user), matching
// spec.md's "examines CR2 and error-code bits" wording for the
// exception dispatcher in C6; vm only cares about these two bits.
const (
	FaultWrite = 1 << 1
	FaultUser  = 1 << 2
)

// PageFault resolves a fault at virtual address va with the given
// error code, installing whatever mapping makes the access valid or
// returning an error when it cannot. It is the generalized form of the
// teacher's Sys_pgfault: guard-page and permission checks first, then
// copy-on-write materialization, anonymous zero-fill, or file-backed
// population depending on the covering region's Mtype.
func (as *AddrSpace) PageFault(va uint64, ecode uint64) defs.Err_t {
	as.mu.Lock()
	defer as.mu.Unlock()

	r, ok := as.regions.lookup(va)
	if !ok {
		return -defs.EFAULT
	}
	isguard := r.Perms == 0
	iswrite := ecode&FaultWrite != 0
	writeok := r.Perms&FlagWrite != 0
	if isguard || (iswrite && !writeok) {
		return -defs.EFAULT
	}

	t, idx, ok := walk(as.pm, as.root, pageAlign(va), true)
	if !ok {
		return -defs.ENOMEM
	}
	ent := t.get(idx)

	// Two threads raced on the same fault; the page is already usable.
	if (iswrite && ent&PTE_WASCOW != 0) || (!iswrite && ent&PTE_P != 0) {
		return 0
	}

	switch {
	case r.Mtype == VFILE && r.Shared:
		return as.faultSharedFile(r, va, t, idx)
	case iswrite:
		return as.faultWrite(r, va, ent, t, idx)
	default:
		return as.faultRead(r, va, t, idx)
	}
}

func (as *AddrSpace) faultSharedFile(r *Region, va uint64, t table, idx int) defs.Err_t {
	foff := r.FileOff + int(va-r.Start)
	pg, err := r.File.Filepage(foff)
	if err != nil {
		return -defs.EIO
	}
	f, ok := as.pm.RefpgNewNozero()
	if !ok {
		return -defs.ENOMEM
	}
	copy(as.pm.Arena.Dmap(f), pg)
	perms := PTE_P | PTE_U
	if r.Perms&FlagWrite != 0 {
		perms |= PTE_W
	}
	t.set(idx, uint64(f.Addr())|perms)
	as.flushRangeLocked(va, 1)
	return 0
}

func (as *AddrSpace) faultWrite(r *Region, va uint64, ent uint64, t table, idx int) defs.Err_t {
	cow := ent&PTE_COW != 0
	var src []byte
	if cow {
		srcFrame := mem.PhysAddr(ent & PTE_ADDR).ToFrame()
		// sole owner: reuse in place instead of copying.
		if as.pm.Alloc.Refcnt(srcFrame) == 1 && srcFrame != as.pm.ZeroFrame {
			t.set(idx, (ent&^PTE_COW)|PTE_W|PTE_WASCOW)
			as.flushRangeLocked(va, 1)
			return 0
		}
		src = as.pm.Arena.Dmap(srcFrame)
	} else if r.Mtype == VFILE {
		foff := r.FileOff + int(va-r.Start)
		pg, err := r.File.Filepage(foff)
		if err != nil {
			return -defs.EIO
		}
		src = pg
	} else {
		src = as.pm.Arena.Dmap(as.pm.ZeroFrame)
	}

	f, ok := as.pm.RefpgNewNozero()
	if !ok {
		return -defs.ENOMEM
	}
	copy(as.pm.Arena.Dmap(f), src)
	if cow {
		as.pm.Alloc.Refdown(mem.PhysAddr(ent & PTE_ADDR).ToFrame())
	}
	t.set(idx, uint64(f.Addr())|PTE_P|PTE_U|PTE_W|PTE_WASCOW)
	as.flushRangeLocked(va, 1)
	return 0
}

func (as *AddrSpace) faultRead(r *Region, va uint64, t table, idx int) defs.Err_t {
	perms := PTE_P | PTE_U
	var frame mem.FrameNum
	switch r.Mtype {
	case VANON:
		frame = as.pm.ZeroFrame
		as.pm.Alloc.Refup(frame)
		if r.Perms&FlagWrite != 0 {
			perms |= PTE_COW
		}
	case VFILE:
		foff := r.FileOff + int(va-r.Start)
		pg, err := r.File.Filepage(foff)
		if err != nil {
			return -defs.EIO
		}
		f, ok := as.pm.RefpgNewNozero()
		if !ok {
			return -defs.ENOMEM
		}
		copy(as.pm.Arena.Dmap(f), pg)
		frame = f
		if r.Perms&FlagWrite != 0 {
			perms |= PTE_COW
		}
	default:
		return -defs.EFAULT
	}
	t.set(idx, uint64(frame.Addr())|perms)
	as.flushRangeLocked(va, 1)
	return 0
}

// flushRangeLocked is flushRange for callers that already hold as.mu
// (fault handling runs under the address-space lock end to end, per
// spec.md's Lockassert_pmap discipline in the teacher).
func (as *AddrSpace) flushRangeLocked(startva uint64, pgcount int) {
	as.tlbGen++
	as.lastFlushed = startva
	sd := as.shootdown
	if sd != nil {
		sd(startva, pgcount)
	}
}
