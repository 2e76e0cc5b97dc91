// Package ksys implements the syscall dispatcher (spec.md §4.9): the
// ring-3 int 0x80 entry point's kernel-side half. It validates every
// user pointer a call receives against the caller's address space
// before touching it, copies arguments across the privilege boundary
// page at a time, and routes filesystem calls to package vfs and
// memory calls to package vm. It is named ksys rather than syscall to
// avoid shadowing the standard library package of that name.
//
// No teacher package in the retrieval pack implements a syscall
// dispatcher (the pack's own kernel/ directory holds only an
// ELF-entry-patching build tool, chentry.go, unrelated to this
// component), so this package is built directly from spec.md's
// operation list, in the idiom established by the packages it ties
// together: nyxkernel/vfs for path resolution, nyxkernel/vm for
// address-space manipulation, nyxkernel/proc for the calling process's
// fd table and cwd.
package ksys

// Call numbers. Spec.md §6 lists a subset; the rest are restored, at
// their original enum positions, from
// original_source/include/plenjos/syscall.h — the C header this spec
// was distilled from defines a strict superset and numbers every call
// sequentially from 0, so filling the gaps in place keeps every
// spec.md-listed number unchanged.
const (
	READ = iota
	WRITE
	OPEN
	CLOSE
	STAT
	FSTAT
	LSTAT
	POLL
	LSEEK
	GETDENTS
	MKDIR
	RMDIR
	RENAME
	CHMOD
	FCHMOD
	CHOWN
	FCHOWN
	LCHOWN
	GETCWD
	CHDIR
	FCHDIR
	LINK
	UNLINK
	SYMLINK
	READLINK
)

const (
	MEMMAP = 0x40 + iota
	MEMMAP_FROM_BUFFER
	MEMMAP_FILE
	MEMPROTECT
	ALLOC_PAGE
	GET_FB
	GET_KB
	PRINT
	PRINT_PTR
	KB_READ
	SLEEP
)
