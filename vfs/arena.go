package vfs

import (
	"sync"
	"sync/atomic"

	"nyxkernel/defs"
)

// blockSize is the number of node slots per arena block. AllocateNode
// grows the arena by appending a whole block once every existing slot
// is claimed, per spec.md's "start with N slots, grow by appending
// blocks".
const blockSize = 64

// Cache owns the node arena and the index of its root.
type Cache struct {
	mu     sync.Mutex // serializes block growth only; slot claims are lock-free CAS
	blocks [][]Node
	root   NodeIndex
}

// NewCache allocates an arena with one initial block and an immortal
// root directory node.
func NewCache(rootUid, rootGid uint32, rootMode uint32) *Cache {
	c := &Cache{}
	c.blocks = append(c.blocks, make([]Node, blockSize))
	root := c.get(RootIndex)
	root.typ = int32(defs.T_DIR)
	root.refCount = 1
	root.parent = RootIndex
	root.firstChild = NilIndex
	root.nextSibling = NilIndex
	root.prevSibling = NilIndex
	root.mounted = NilIndex
	root.Uid, root.Gid, root.Mode = rootUid, rootGid, rootMode
	root.setName(nil)
	c.root = RootIndex
	return c
}

// Root returns the cache root's index.
func (c *Cache) Root() NodeIndex { return c.root }

// Get dereferences an index into its Node. Indices are never freed
// back to the OS (only recycled), so the returned pointer stays valid
// for the arena's lifetime.
func (c *Cache) Get(idx NodeIndex) *Node {
	return c.get(idx)
}

func (c *Cache) get(idx NodeIndex) *Node {
	b := int(idx) / blockSize
	s := int(idx) % blockSize
	return &c.blocks[b][s]
}

// AllocateNode claims a free slot (type byte == 0) and initializes it
// as a node of type t, growing the arena if every existing slot is
// claimed. t must not be defs.T_UNKNOWN, since that value IS the
// "free" marker CAS selects against.
func (c *Cache) AllocateNode(t defs.Ftype_t) (*Node, NodeIndex) {
	if t == defs.T_UNKNOWN {
		panic("vfs: AllocateNode requires a concrete type")
	}
	for {
		if idx, ok := c.scanFree(t); ok {
			n := c.get(idx)
			n.refCount = 1
			n.nameLen = 0
			n.flags = 0
			n.Uid, n.Gid, n.Mode = 0, 0, 0
			n.parent = NilIndex
			n.firstChild = NilIndex
			n.nextSibling = NilIndex
			n.prevSibling = NilIndex
			n.mounted = NilIndex
			n.vtable = nil
			n.internalData = [internalDataSize]byte{}
			return n, idx
		}
		c.grow()
	}
}

func (c *Cache) scanFree(t defs.Ftype_t) (NodeIndex, bool) {
	c.mu.Lock()
	nblocks := len(c.blocks)
	c.mu.Unlock()
	for b := 0; b < nblocks; b++ {
		blk := c.blocks[b]
		for s := range blk {
			if atomic.CompareAndSwapInt32(&blk[s].typ, int32(defs.T_UNKNOWN), int32(t)) {
				return NodeIndex(b*blockSize + s), true
			}
		}
	}
	return NilIndex, false
}

func (c *Cache) grow() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.blocks = append(c.blocks, make([]Node, blockSize))
}

// FreeNode clears a node's contents and releases its slot back to the
// arena for reuse; callers must have already doomed the node
// (refCount == -1) via ReplaceNode or equivalent teardown.
func (c *Cache) FreeNode(idx NodeIndex) {
	n := c.get(idx)
	if atomic.LoadInt32(&n.refCount) != -1 {
		panic("vfs: FreeNode of a node that is not doomed")
	}
	n.nameLen = 0
	n.flags = 0
	n.Uid, n.Gid, n.Mode = 0, 0, 0
	n.parent = NilIndex
	n.firstChild = NilIndex
	n.nextSibling = NilIndex
	n.prevSibling = NilIndex
	n.mounted = NilIndex
	n.vtable = nil
	n.internalData = [internalDataSize]byte{}
	atomic.StoreInt32(&n.refCount, 0)
	atomic.StoreInt32(&n.typ, int32(defs.T_UNKNOWN)) // release last: marks the slot free
}
