package ksys

import (
	"nyxkernel/defs"
	"nyxkernel/ustr"
	"nyxkernel/vm"
)

// stringChunk bounds how many bytes CopyInString validates and copies
// at a time while scanning for a NUL terminator.
const stringChunk = 64

// CopyToKernel validates n bytes starting at the user virtual address
// uaddr for reading and copies them into a fresh kernel buffer —
// spec.md's copy_to_kernel(dst, user_src, n), with dst allocated here
// rather than supplied by the caller.
func CopyToKernel(as *vm.AddrSpace, uaddr uint64, n int) ([]byte, defs.Err_t) {
	if !as.ValidatePages(uaddr, n, false) {
		return nil, defs.EFAULT
	}
	buf := make([]byte, n)
	if !as.CopyIn(uaddr, buf) {
		return nil, defs.EFAULT
	}
	return buf, 0
}

// CopyToUser validates len(src) bytes starting at uaddr for writing
// and copies src into the caller's address space — spec.md's
// copy_to_user(user_dst, src, n, ...).
func CopyToUser(as *vm.AddrSpace, uaddr uint64, src []byte) defs.Err_t {
	if !as.ValidatePages(uaddr, len(src), true) {
		return defs.EFAULT
	}
	if !as.CopyOut(uaddr, src) {
		return defs.EFAULT
	}
	return 0
}

// CopyInString scans a NUL-terminated string starting at uaddr,
// bounded by max (PATH_MAX or NAME_MAX per spec.md), validating and
// copying stringChunk bytes at a time rather than one byte at a time.
// A string with no terminator within max bytes fails with
// ENAMETOOLONG; an unreadable page fails with EFAULT.
func CopyInString(as *vm.AddrSpace, uaddr uint64, max int) (ustr.Ustr, defs.Err_t) {
	var out ustr.Ustr
	for total := 0; total < max; total += stringChunk {
		n := stringChunk
		if total+n > max {
			n = max - total
		}
		chunk, err := CopyToKernel(as, uaddr+uint64(total), n)
		if err != 0 {
			return nil, err
		}
		if i := indexZero(chunk); i >= 0 {
			return append(out, chunk[:i]...), 0
		}
		out = append(out, chunk...)
	}
	return nil, defs.ENAMETOOLONG
}

func indexZero(b []byte) int {
	for i, c := range b {
		if c == 0 {
			return i
		}
	}
	return -1
}
