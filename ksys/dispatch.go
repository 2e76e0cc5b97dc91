package ksys

import (
	"nyxkernel/defs"
	"nyxkernel/kbd"
	"nyxkernel/proc"
	"nyxkernel/timer"
	"nyxkernel/vfs"
)

// Dispatcher holds the kernel-wide state a syscall handler needs
// beyond the calling process itself: the single fscache every process
// shares, the keyboard ring GET_KB/KB_READ map and drain, and the
// clock SLEEP blocks on. One Dispatcher serves every ring-3 entry.
type Dispatcher struct {
	Cache *vfs.Cache
	Kbd   *kbd.Ring
	Clock *timer.Clock
}

// errVal casts a negative errno onto the syscall return register's
// convention — this is the only place that conversion happens, so
// every handler below can just return a defs.Err_t.
func errVal(e defs.Err_t) int64 { return -int64(e) }

// Dispatch is the int 0x80 entry point's kernel-side continuation:
// call number in num, up to five arguments in a0..a4, per spec.md
// §4.9/§6's ABI. It never partially applies a call that fails
// argument validation — each handler validates every user pointer it
// touches before copying through it.
func (d *Dispatcher) Dispatch(p *proc.Process, num uint64, a0, a1, a2, a3, a4 uint64) int64 {
	switch int(num) {
	case READ:
		return d.sysRead(p, a0, a1, a2)
	case WRITE:
		return d.sysWrite(p, a0, a1, a2)
	case OPEN:
		return d.sysOpen(p, a0, a1, a2)
	case CLOSE:
		return d.sysClose(p, a0)
	case STAT:
		return d.sysStat(p, a0, a1)
	case FSTAT:
		return d.sysFstat(p, a0, a1)
	case LSTAT:
		return d.sysStat(p, a0, a1) // symlinks are not followed differently: this kernel never auto-follows
	case POLL:
		return errVal(defs.ENOSYS)
	case LSEEK:
		return d.sysLseek(p, a0, a1, a2)
	case GETDENTS:
		return d.sysGetdents(p, a0, a1, a2)
	case MKDIR:
		return d.sysMkdir(p, a0, a1)
	case RMDIR:
		return d.sysRmdir(p, a0)
	case RENAME:
		return d.sysRename(p, a0, a1)
	case CHMOD:
		return d.sysChmod(p, a0, a1)
	case FCHMOD:
		return d.sysFchmod(p, a0, a1)
	case CHOWN:
		return d.sysChown(p, a0, a1, a2)
	case FCHOWN:
		return d.sysFchown(p, a0, a1, a2)
	case LCHOWN:
		return d.sysChown(p, a0, a1, a2) // no symlink-follow distinction in this cache
	case GETCWD:
		return d.sysGetcwd(p, a0, a1)
	case CHDIR:
		return d.sysChdir(p, a0)
	case FCHDIR:
		return d.sysFchdir(p, a0)
	case LINK:
		return errVal(defs.ENOSYS) // hard links need a refcounted-by-name node this arena does not model
	case UNLINK:
		return d.sysUnlink(p, a0)
	case SYMLINK:
		return d.sysSymlink(p, a0, a1)
	case READLINK:
		return d.sysReadlink(p, a0, a1, a2)

	case MEMMAP:
		return d.sysMemmap(p, a0, a1, a2)
	case MEMMAP_FROM_BUFFER:
		return d.sysMemmapFromBuffer(p, a0, a1, a2, a3, a4)
	case MEMMAP_FILE:
		return d.sysMemmapFile(p, a0, a1, a2, a3, a4)
	case MEMPROTECT:
		return d.sysMemprotect(p, a0, a1, a2)
	case ALLOC_PAGE:
		return d.sysAllocPage(p)

	case GET_FB:
		return errVal(defs.ENOSYS) // framebuffer rendering is out of scope; no fb record is wired from boot handoff
	case GET_KB:
		return d.sysGetKb(p, a0)
	case PRINT:
		return d.sysPrint(p, a0)
	case PRINT_PTR:
		return d.sysPrintPtr(a0)
	case KB_READ:
		return d.sysKbRead(p)
	case SLEEP:
		return d.sysSleep(a0)
	}
	return errVal(defs.ENOSYS)
}
