package vfs

import "nyxkernel/defs"

// ReplaceNode implements spec.md §4.8's replace_node: old must have
// ref_count == 0 (no live handles, no other cache linkage holding it
// beyond the slot itself), is CAS'd to -1 (doomed), unlinked from its
// parent/siblings, and new is linked under newParent at the head of
// its children. Returns new's index on success.
func ReplaceNode(c *Cache, old NodeIndex, newIdx NodeIndex, newParent NodeIndex) (NodeIndex, defs.Err_t) {
	oldNode := c.Get(old)
	if !oldNode.markDoomed() {
		return NilIndex, defs.EINVAL
	}
	unlinkFromParent(c, oldNode, old)

	parent := c.Get(newParent)
	newNode := c.Get(newIdx)
	linkChildHead(c, parent, newIdx, newNode, newParent)
	return newIdx, 0
}

// unlinkFromParent splices node out of its parent's children list.
func unlinkFromParent(c *Cache, node *Node, idx NodeIndex) {
	if node.parent == NilIndex {
		return
	}
	parent := c.Get(node.parent)
	if parent.firstChild == idx {
		parent.firstChild = node.nextSibling
	}
	if node.prevSibling != NilIndex {
		c.Get(node.prevSibling).nextSibling = node.nextSibling
	}
	if node.nextSibling != NilIndex {
		c.Get(node.nextSibling).prevSibling = node.prevSibling
	}
	node.nextSibling = NilIndex
	node.prevSibling = NilIndex
}

// Mount marks mountPoint as a mount point whose resolution substitutes
// fsRoot, matching spec.md's "a mount point is a node with MOUNT_POINT
// flag set; resolution crossing it silently substitutes the mounted
// filesystem's root node."
func Mount(c *Cache, mountPoint NodeIndex, fsRoot NodeIndex) {
	n := c.Get(mountPoint)
	n.flags |= FlagMountPoint
	n.mounted = fsRoot
}

// Unmount clears the mount point flag, restoring normal resolution.
func Unmount(c *Cache, mountPoint NodeIndex) {
	n := c.Get(mountPoint)
	n.flags &^= FlagMountPoint
	n.mounted = NilIndex
}
