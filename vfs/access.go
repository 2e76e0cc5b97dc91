package vfs

import "nyxkernel/defs"

// Access reports the read/write/execute permissions processUid has
// over a file owned by fileUid:fileGid with the given POSIX mode bits,
// per spec.md §4.8: uid 0 has RW always (and X if any execute bit is
// set anywhere in mode); otherwise the owner triad applies if uids
// match, else the "other" triad — group bits are intentionally never
// consulted, matching spec.md's explicitly accepted gap.
func Access(mode, fileUid, fileGid, processUid uint32) (r, w, x bool) {
	if processUid == 0 {
		anyExec := mode&(defs.S_IXUSR|defs.S_IXGRP|defs.S_IXOTH) != 0
		return true, true, anyExec
	}
	var triad uint32
	if fileUid == processUid {
		triad = (mode & defs.S_IRWXU) >> 6
	} else {
		triad = mode & defs.S_IRWXO
	}
	return triad&defs.S_IROTH != 0, triad&defs.S_IWOTH != 0, triad&defs.S_IXOTH != 0
}
