package vm

import "nyxkernel/mem"

// ValidatePages walks every page covering [virt, virt+length) and
// reports whether each is present and user-accessible, and (when
// forWrite is set) writable — the page-walk validation spec.md's
// syscall dispatcher runs before any copy, so a bad user pointer fails
// with EFAULT and no partial effect.
func (as *AddrSpace) ValidatePages(virt uint64, length int, forWrite bool) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	va := pageAlign(virt)
	end := virt + uint64(length)
	for va < end {
		t, idx, ok := as.findPage(va, false)
		if !ok {
			return false
		}
		ent := t.get(idx)
		if ent&PTE_P == 0 || ent&PTE_U == 0 {
			return false
		}
		if forWrite && ent&PTE_W == 0 {
			return false
		}
		va += mem.PGSIZE
	}
	return true
}

// CopyIn copies len(dst) bytes starting at the user virtual address
// virt into dst, page at a time through the HHDM — the kernel side of
// copy_to_kernel. Callers must have validated the range with
// ValidatePages first; CopyIn itself still reports false rather than
// faulting if a page turns out unmapped.
func (as *AddrSpace) CopyIn(virt uint64, dst []byte) bool {
	return as.copyPages(virt, dst, false)
}

// CopyOut copies src into the user address space starting at virt,
// page at a time through the HHDM — the kernel side of copy_to_user.
func (as *AddrSpace) CopyOut(virt uint64, src []byte) bool {
	return as.copyPages(virt, src, true)
}

func (as *AddrSpace) copyPages(virt uint64, buf []byte, toUser bool) bool {
	as.mu.Lock()
	defer as.mu.Unlock()

	va := virt
	off := 0
	remaining := len(buf)
	for remaining > 0 {
		pageOff := int(va & uint64(mem.PGOFFSET))
		n := mem.PGSIZE - pageOff
		if n > remaining {
			n = remaining
		}
		t, idx, ok := as.findPage(va, false)
		if !ok {
			return false
		}
		ent := t.get(idx)
		if ent&PTE_P == 0 {
			return false
		}
		frame := mem.PhysAddr(ent & PTE_ADDR).ToFrame()
		page := as.pm.Arena.Dmap(frame)
		if toUser {
			copy(page[pageOff:pageOff+n], buf[off:off+n])
		} else {
			copy(buf[off:off+n], page[pageOff:pageOff+n])
		}
		off += n
		remaining -= n
		va += uint64(n)
	}
	return true
}
