package vfs

import (
	"nyxkernel/defs"
	"nyxkernel/ustr"
)

// VTable is the per-node operations surface a back-end filesystem
// supplies, matching spec.md §4.8's vtable exactly: read/write/seek/
// close operate on an open Handle; load_node/create_child/unload_node
// manage the back-end's half of the node lifecycle.
type VTable interface {
	Read(h *Handle, buf []byte) (int, defs.Err_t)
	Write(h *Handle, buf []byte) (int, defs.Err_t)
	Seek(h *Handle, off int, whence int) (int, defs.Err_t)
	Close(h *Handle) defs.Err_t

	// LoadNode resolves name as a child of parent, allocating and
	// populating a new Node from c on success.
	LoadNode(c *Cache, parent *Node, name ustr.Ustr) (NodeIndex, defs.Err_t)
	// CreateChild creates a new child of parent with the given
	// attributes, allocating it from c.
	CreateChild(c *Cache, parent *Node, name ustr.Ustr, typ defs.Ftype_t, uid, gid, mode uint32) (NodeIndex, defs.Err_t)
	// UnloadNode releases any back-end state associated with n before
	// it is returned to the arena.
	UnloadNode(n *Node) defs.Err_t
}
