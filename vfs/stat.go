package vfs

import (
	"nyxkernel/defs"
	"nyxkernel/stat"
)

// Stat fills st with n's attributes, the way a real STAT/FSTAT/LSTAT
// syscall handler populates the struct it copies out to user space.
func Stat(n *Node, st *stat.Stat_t) {
	st.Wino(uint(0)) // the hosted arena has no stable on-disk inode number
	st.Wmode(uint(n.Mode) | stat.TypeMode(n.Type()))
	st.Wuid(uint(n.Uid))
	st.Wgid(uint(n.Gid))
	nlink := uint(1)
	if n.Type() == defs.T_DIR {
		nlink = 2
	}
	st.Wnlink(nlink)
}
