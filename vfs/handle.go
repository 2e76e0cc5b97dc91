package vfs

import "nyxkernel/defs"

// Handle is an open reference to a Node: spec.md §3's vfs_handle. It
// implements nyxkernel/fdops.Fdops_i, so a Handle can be installed
// directly into a process's fd table (package proc/fd) the same way
// any other backing object is.
type Handle struct {
	Cache *Cache
	Node  NodeIndex
	Off   int
}

// OpenHandle acquires a reference on idx and returns a Handle over it,
// failing if the node is already doomed.
func OpenHandle(c *Cache, idx NodeIndex) (*Handle, defs.Err_t) {
	n := c.Get(idx)
	if !n.TryAcquire() {
		return nil, defs.ENOENT
	}
	return &Handle{Cache: c, Node: idx}, 0
}

func (h *Handle) node() *Node { return h.Cache.Get(h.Node) }

// Read dispatches to the node's vtable read operation at the handle's
// current offset, advancing it by the number of bytes read.
func (h *Handle) Read(dst []uint8) (int, defs.Err_t) {
	n := h.node()
	if n.vtable == nil {
		return 0, defs.ENOSYS
	}
	nr, err := n.vtable.Read(h, dst)
	if err == 0 {
		h.Off += nr
	}
	return nr, err
}

// Write dispatches to the node's vtable write operation at the
// handle's current offset, advancing it by the number of bytes written.
func (h *Handle) Write(src []uint8) (int, defs.Err_t) {
	n := h.node()
	if n.vtable == nil {
		return 0, defs.ENOSYS
	}
	nw, err := n.vtable.Write(h, src)
	if err == 0 {
		h.Off += nw
	}
	return nw, err
}

// Seek dispatches to the node's vtable seek operation, matching
// spec.md's "lseek is valid on any handle with a backing node."
func (h *Handle) Seek(off int, whence int) (int, defs.Err_t) {
	n := h.node()
	if n.vtable == nil {
		return 0, defs.ENOSYS
	}
	no, err := n.vtable.Seek(h, off, whence)
	if err == 0 {
		h.Off = no
	}
	return no, err
}

// Close releases the handle's reference and invokes the vtable's close
// hook.
func (h *Handle) Close() defs.Err_t {
	n := h.node()
	var err defs.Err_t
	if n.vtable != nil {
		err = n.vtable.Close(h)
	}
	n.Release()
	return err
}

// Reopen acquires an additional reference on the same node, the
// dup()-style fd-table clone operation fd.Copyfd calls.
func (h *Handle) Reopen() defs.Err_t {
	if !h.node().TryAcquire() {
		return defs.EBADF
	}
	return 0
}
