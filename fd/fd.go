// Package fd implements the per-process file descriptor table entry
// and current-working-directory tracking, adapted from the teacher's
// fd package.
package fd

import (
	"sync"

	"nyxkernel/defs"
	"nyxkernel/fdops"
	"nyxkernel/ustr"
)

// File descriptor permission bits.
const (
	FD_READ    = 0x1
	FD_WRITE   = 0x2
	FD_CLOEXEC = 0x4
)

// Fd_t represents an open file descriptor: a reference to its backing
// operations and the permission bits it was opened with.
type Fd_t struct {
	Fops  fdops.Fdops_i
	Perms int
}

// Copyfd duplicates an open file descriptor by reopening its backing
// object (dup()/fork() fd-table cloning).
func Copyfd(f *Fd_t) (*Fd_t, defs.Err_t) {
	nfd := &Fd_t{}
	*nfd = *f
	if err := nfd.Fops.Reopen(); err != 0 {
		return nil, err
	}
	return nfd, 0
}

// Close_panic closes f and panics if the close fails — used where the
// kernel itself opened the descriptor and a close failure would
// indicate a kernel bug rather than a user error.
func Close_panic(f *Fd_t) {
	if f.Fops.Close() != 0 {
		panic("must succeed")
	}
}

// Cwd_t tracks a process's current working directory.
type Cwd_t struct {
	sync.Mutex // serializes chdir against concurrent path lookups
	Fd         *Fd_t
	Path       ustr.Ustr
}

// Fullpath joins cwd with p if p is not already absolute.
func (cwd *Cwd_t) Fullpath(p ustr.Ustr) ustr.Ustr {
	if p.IsAbsolute() {
		return p
	}
	full := append(append(ustr.Ustr{}, cwd.Path...), '/')
	return append(full, p...)
}

// Canonicalpath resolves path components (., .., repeated/trailing
// slashes) relative to cwd.
func (cwd *Cwd_t) Canonicalpath(p ustr.Ustr) ustr.Ustr {
	return ustr.Canonicalize(cwd.Fullpath(p))
}

// MkRootCwd constructs a Cwd_t rooted at "/".
func MkRootCwd(f *Fd_t) *Cwd_t {
	return &Cwd_t{Fd: f, Path: ustr.MkUstrRoot()}
}
