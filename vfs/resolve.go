package vfs

import (
	"nyxkernel/defs"
	"nyxkernel/ustr"
)

// Status reports how RequestNode's resolution ended.
type Status int

const (
	// StatusFound means the returned node is the fully resolved path,
	// held read-locked.
	StatusFound Status = iota
	// StatusOneLevelAway means every token but the last resolved; the
	// returned node is the parent, held write-locked, with the last
	// token's name reported separately so a create operation can use
	// it without re-resolving.
	StatusOneLevelAway
)

// RequestNode resolves path against c, starting at c.Root(), following
// spec.md §4.8's exact steps: read-lock the root, tokenize (collapsing
// repeated/empty components), hand-over-hand read-lock each child in
// turn, and on a miss upgrade to a writer, double-check, then consult
// the back-end's LoadNode. Crossing a mount point silently substitutes
// the mounted filesystem's root. On StatusFound the returned node is
// held read-locked (caller calls RUnlock). On StatusOneLevelAway the
// returned node is the parent, held write-locked (caller calls Unlock),
// ready for a create operation using the path's final token.
func RequestNode(c *Cache, path ustr.Ustr) (NodeIndex, Status, defs.Err_t) {
	toks := ustr.Tokenize(path)

	cur := c.Root()
	curNode := c.Get(cur)
	curNode.RLock()

	for i, tok := range toks {
		cur, curNode = crossMountPoint(c, cur, curNode)

		child, childNode, found := lookupChild(c, curNode, tok)
		if found {
			childNode.RLock()
			curNode.RUnlock()
			cur, curNode = child, childNode
			continue
		}

		// Miss: upgrade to writer and double-check before consulting
		// the back-end, since another resolver may have raced us.
		curNode.Upgrade()
		child, childNode, found = lookupChild(c, curNode, tok)
		if found {
			childNode.RLock()
			curNode.Downgrade()
			curNode.RUnlock()
			cur, curNode = child, childNode
			continue
		}

		if curNode.vtable == nil {
			curNode.Unlock()
			return NilIndex, StatusFound, defs.ENOSYS
		}
		loaded, err := curNode.vtable.LoadNode(c, curNode, tok)
		if err == defs.ENOENT && i == len(toks)-1 {
			// Last token missing: caller may want to create it here.
			return cur, StatusOneLevelAway, 0
		}
		if err != 0 {
			curNode.Unlock()
			return NilIndex, StatusFound, err
		}
		loadedNode := c.Get(loaded)
		linkChildHead(c, curNode, loaded, loadedNode, cur)
		loadedNode.RLock()
		curNode.Downgrade()
		curNode.RUnlock()
		cur, curNode = loaded, loadedNode
	}

	cur, curNode = crossMountPoint(c, cur, curNode)
	return cur, StatusFound, 0
}

// crossMountPoint substitutes the mounted filesystem's root for idx if
// idx is a mount point, re-locking as a reader so the caller always
// holds a read lock on whatever it returns. node must already be
// read-locked on entry (it is released with RUnlock); the substitution
// preserves that lock discipline by acquiring
// the mounted root's read lock before releasing the mount point's.
func crossMountPoint(c *Cache, idx NodeIndex, node *Node) (NodeIndex, *Node) {
	if !node.IsMountPoint() {
		return idx, node
	}
	mroot := c.Get(node.mounted)
	mroot.RLock()
	node.RUnlock()
	return node.mounted, mroot
}

// lookupChild scans dir's children for name, hand-over-hand (the
// caller already holds dir's lock; lookupChild never locks dir itself,
// only inspects the already-held node).
func lookupChild(c *Cache, dir *Node, name ustr.Ustr) (NodeIndex, *Node, bool) {
	idx := dir.firstChild
	for idx != NilIndex {
		n := c.Get(idx)
		if n.Name().Eq(name) {
			return idx, n, true
		}
		idx = n.nextSibling
	}
	return NilIndex, nil, false
}

// linkChildHead links child at the head of parent's children list and
// sets its parent/name, matching "link out at the head of the children
// list" from spec.md §4.8 step 4.
func linkChildHead(c *Cache, parent *Node, childIdx NodeIndex, child *Node, parentIdx NodeIndex) {
	child.parent = parentIdx
	child.prevSibling = NilIndex
	child.nextSibling = parent.firstChild
	if old := parent.firstChild; old != NilIndex {
		c.Get(old).prevSibling = childIdx
	}
	parent.firstChild = childIdx
}

// LinkChild exposes linkChildHead to back-ends outside this package
// whose children are created synchronously rather than resolved lazily
// through LoadNode (e.g. vfskfs's device-file helper). parent must
// already be held write-locked by the caller.
func LinkChild(c *Cache, parent *Node, childIdx NodeIndex, child *Node, parentIdx NodeIndex) {
	linkChildHead(c, parent, childIdx, child, parentIdx)
}
