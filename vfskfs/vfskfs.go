// Package vfskfs is the kernelfs back-end (spec.md §4.10): an
// in-memory tree kernel code builds directly rather than loading from
// a disk, used for /dev-style entries. Children are created
// synchronously through CreateChild (a generic in-memory file/
// directory) or CreateDeviceFile (a node whose reads are produced by a
// per-node callback, e.g. to expose PCI device records on demand).
// There is no lazy backing store to consult, so LoadNode always
// reports ENOENT: anything kernelfs has is already linked into the
// live tree by whoever called one of the Create helpers.
package vfskfs

import (
	"encoding/binary"

	"nyxkernel/defs"
	"nyxkernel/hashtable"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

// ReadFunc produces bytes on demand for a callback-backed node,
// matching spec.md's "read on a kernelfs file invokes a per-node
// callback that produces bytes on demand."
type ReadFunc func(n *vfs.Node, off int, buf []byte) (int, defs.Err_t)

// kfsNode is a kernelfs node's back-end state: either a growable
// in-memory byte buffer (plain files and directories, both created via
// CreateChild) or a read callback (device files created via
// CreateDeviceFile). Never both.
type kfsNode struct {
	buf    []byte
	reader ReadFunc
}

// kfsTableSize is the bucket count for a kernelfs tree's name index;
// /dev trees are small and long-lived, so a fixed size needs no
// resizing logic.
const kfsTableSize = 64

// FS is the kernelfs vtable and the store of every live node's state,
// keyed by arena index (as an int32, the key type hashtable supports)
// since Node itself has no room for a Go slice or closure beyond its
// fixed InternalData blob.
type FS struct {
	nodes *hashtable.Hashtable_t
}

// Mount creates a fresh kernelfs tree with an empty root directory.
func Mount(uid, gid, mode uint32) (*vfs.Cache, *FS) {
	fs := &FS{nodes: hashtable.MkHash(kfsTableSize)}
	c := vfs.NewCache(uid, gid, mode)
	root := c.Get(vfs.RootIndex)
	root.SetVTable(fs)
	storeIdx(root, vfs.RootIndex)
	fs.nodes.Set(int32(vfs.RootIndex), &kfsNode{})
	return c, fs
}

func storeIdx(n *vfs.Node, idx vfs.NodeIndex) {
	b := n.InternalData()
	binary.LittleEndian.PutUint32(b[0:4], uint32(idx))
}

func loadIdx(n *vfs.Node) vfs.NodeIndex {
	b := n.InternalData()
	return vfs.NodeIndex(binary.LittleEndian.Uint32(b[0:4]))
}

// CreateChild allocates a plain in-memory node (file or directory);
// regular files start out empty and grow via Write. The caller links
// the returned index into parent's children, matching every other
// back-end's CreateChild convention in this codebase.
func (fs *FS) CreateChild(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr, typ defs.Ftype_t, uid, gid, mode uint32) (vfs.NodeIndex, defs.Err_t) {
	n, idx := c.AllocateNode(typ)
	n.SetName(name)
	n.Uid, n.Gid, n.Mode = uid, gid, mode
	n.SetVTable(fs)
	storeIdx(n, idx)

	fs.nodes.Set(int32(idx), &kfsNode{})
	return idx, 0
}

// CreateDeviceFile is the "helper" spec.md describes for synchronous
// kernelfs child creation with a read callback: reader is invoked on
// every Read against the returned node instead of a buffer. Unlike
// CreateChild, this is the entry point kernel code outside the
// syscall/RequestNode path uses directly (e.g. PCI enumeration adding
// a device record under /dev), so it locks parentIdx, links the new
// node into the tree, and unlocks in one synchronous call rather than
// leaving linking to a caller that may not be holding any lock yet.
func (fs *FS) CreateDeviceFile(c *vfs.Cache, parentIdx vfs.NodeIndex, name ustr.Ustr, uid, gid, mode uint32, reader ReadFunc) (vfs.NodeIndex, *vfs.Node, defs.Err_t) {
	n, idx := c.AllocateNode(defs.T_CHAR)
	n.SetName(name)
	n.Uid, n.Gid, n.Mode = uid, gid, mode
	n.SetVTable(fs)
	storeIdx(n, idx)

	fs.nodes.Set(int32(idx), &kfsNode{reader: reader})

	parent := c.Get(parentIdx)
	parent.Lock()
	vfs.LinkChild(c, parent, idx, n, parentIdx)
	parent.Unlock()
	return idx, n, 0
}

// LoadNode always misses: kernelfs has no backing store beyond the
// live tree itself.
func (fs *FS) LoadNode(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr) (vfs.NodeIndex, defs.Err_t) {
	return vfs.NilIndex, defs.ENOENT
}

// UnloadNode drops the node's back-end state from the FS's table.
func (fs *FS) UnloadNode(n *vfs.Node) defs.Err_t {
	fs.nodes.Del(int32(loadIdx(n)))
	return 0
}

func (fs *FS) get(idx vfs.NodeIndex) *kfsNode {
	v, ok := fs.nodes.Get(int32(idx))
	if !ok {
		return nil
	}
	return v.(*kfsNode)
}

// Read dispatches to the node's callback if it has one, else copies
// out of its in-memory buffer at the handle's offset.
func (fs *FS) Read(h *vfs.Handle, buf []byte) (int, defs.Err_t) {
	n := fs.get(h.Node)
	if n == nil {
		return 0, defs.EBADF
	}
	if n.reader != nil {
		return n.reader(h.Cache.Get(h.Node), h.Off, buf)
	}
	if h.Off >= len(n.buf) {
		return 0, 0
	}
	return copy(buf, n.buf[h.Off:]), 0
}

// Write grows a plain node's in-memory buffer; callback-backed device
// nodes are read-only.
func (fs *FS) Write(h *vfs.Handle, buf []byte) (int, defs.Err_t) {
	n := fs.get(h.Node)
	if n == nil {
		return 0, defs.EBADF
	}
	if n.reader != nil {
		return 0, defs.ENOSYS
	}
	end := h.Off + len(buf)
	if end > len(n.buf) {
		grown := make([]byte, end)
		copy(grown, n.buf)
		n.buf = grown
	}
	copy(n.buf[h.Off:end], buf)
	return len(buf), 0
}

// Seek implements the three SEEK_* origins; SEEK_END is unsupported on
// a callback-backed node, which has no a priori length.
func (fs *FS) Seek(h *vfs.Handle, off int, whence int) (int, defs.Err_t) {
	n := fs.get(h.Node)
	if n == nil {
		return 0, defs.EBADF
	}
	var base int
	switch whence {
	case defs.SEEK_SET:
		base = 0
	case defs.SEEK_CUR:
		base = h.Off
	case defs.SEEK_END:
		if n.reader != nil {
			return 0, defs.ENOSYS
		}
		base = len(n.buf)
	default:
		return 0, defs.EINVAL
	}
	r := base + off
	if r < 0 {
		return 0, defs.EINVAL
	}
	return r, 0
}

// Close has nothing to release: a node's state lives keyed by its
// arena index, not by handle.
func (fs *FS) Close(h *vfs.Handle) defs.Err_t { return 0 }
