package vfs

import (
	"nyxkernel/defs"
	"nyxkernel/ustr"
)

// Unlink implements spec.md's unlink/rmdir: idx must have ref_count ==
// 0, the same precondition ReplaceNode enforces. It is marked doomed,
// spliced out of its parent's children list, given a chance to release
// back-end state through UnloadNode, and returned to the arena.
func Unlink(c *Cache, idx NodeIndex) defs.Err_t {
	n := c.Get(idx)
	if !n.markDoomed() {
		return defs.EBUSY
	}
	unlinkFromParent(c, n, idx)
	if n.vtable != nil {
		n.vtable.UnloadNode(n)
	}
	c.FreeNode(idx)
	return 0
}

// Rename splices node idx out of its current parent and relinks it
// under newParent with a new name, preserving its identity — open
// handles on idx remain valid, unlike ReplaceNode's destroy-and-
// substitute semantics.
func Rename(c *Cache, idx NodeIndex, newParent NodeIndex, newName ustr.Ustr) defs.Err_t {
	n := c.Get(idx)
	unlinkFromParent(c, n, idx)
	n.SetName(newName)
	np := c.Get(newParent)
	linkChildHead(c, np, idx, n, newParent)
	return 0
}

// DirEntry is one already-cached child of a directory node, the shape
// Readdir yields for GETDENTS to encode into dirent.Record.
type DirEntry struct {
	Name ustr.Ustr
	Type defs.Ftype_t
}

// Readdir lists dir's currently linked children. Back-ends in this
// kernel populate children lazily through LoadNode, so Readdir reports
// whatever has already been resolved into the live tree rather than
// forcing a bulk directory slurp — the same shape kernelfs's in-memory
// children and the disk back-ends' on-demand lookups already produce.
func Readdir(c *Cache, dirIdx NodeIndex) []DirEntry {
	dir := c.Get(dirIdx)
	dir.RLock()
	defer dir.RUnlock()
	var out []DirEntry
	idx := dir.firstChild
	for idx != NilIndex {
		n := c.Get(idx)
		out = append(out, DirEntry{Name: n.Name(), Type: n.Type()})
		idx = n.nextSibling
	}
	return out
}
