// Package vfs implements the in-memory filesystem cache (spec.md C9): a
// tree of Node records backed by a block-of-slots arena, resolved by
// hand-over-hand locking, and dispatched to pluggable back-ends through
// a per-node vtable. It follows the teacher's fs/super.go pattern of
// fixed-field accessors over a packed byte blob for the parts of Node
// a back-end owns (internalData), and adapts the teacher's hashtable's
// lock-striped CAS design from a hash bucket to a block-of-slots
// free-scan for node allocation.
package vfs

import (
	"sync/atomic"

	"nyxkernel/defs"
	"nyxkernel/klock"
	"nyxkernel/ustr"
)

// NodeIndex is an arena index identifying a Node. Parent/sibling/child
// links are stored as indices rather than pointers — per spec.md §9's
// design note, this breaks the cycles a tree of parent/child/sibling
// references would otherwise form, without needing reference-counted
// smart pointers that cannot break a cycle on their own.
type NodeIndex int32

// NilIndex marks the absence of a link (no parent, no sibling, no
// child, not mounted).
const NilIndex NodeIndex = -1

// RootIndex is the arena index of the immortal cache root, always the
// first slot allocated by NewCache.
const RootIndex NodeIndex = 0

// Node flag bits.
const (
	FlagDirty      uint8 = 1 << 0
	FlagMountPoint uint8 = 1 << 1
)

// internalDataSize is the opaque per-back-end blob size spec.md §3
// names.
const internalDataSize = 32

// Node represents one filesystem object in the cache: spec.md §3's
// fscache node, field for field.
type Node struct {
	mu klock.RW

	// refCount >= 0 counts live handles plus one for cache linkage;
	// -1 marks the node as torn down. typ == 0 (defs.T_UNKNOWN) marks
	// the slot itself as free for reuse by the arena. Both are CAS'd,
	// so they're stored as plain int32/Ftype-sized fields manipulated
	// only through atomic ops.
	refCount int32
	typ      int32

	name    [defs.NAME_MAX + 1]byte
	nameLen uint8
	flags   uint8

	Uid, Gid, Mode uint32

	parent      NodeIndex
	firstChild  NodeIndex
	nextSibling NodeIndex
	prevSibling NodeIndex

	// mounted is the root index of a mounted filesystem, valid only
	// when FlagMountPoint is set.
	mounted NodeIndex

	vtable VTable

	internalData [internalDataSize]byte
}

// Name returns the node's name as a Ustr.
func (n *Node) Name() ustr.Ustr { return ustr.Ustr(n.name[:n.nameLen]) }

func (n *Node) setName(name ustr.Ustr) {
	l := len(name)
	if l > defs.NAME_MAX {
		l = defs.NAME_MAX
	}
	copy(n.name[:], name[:l])
	n.nameLen = uint8(l)
}

// Type returns the node's type tag.
func (n *Node) Type() defs.Ftype_t { return defs.Ftype_t(atomic.LoadInt32(&n.typ)) }

// IsMountPoint reports whether resolution through this node should
// substitute the mounted filesystem's root.
func (n *Node) IsMountPoint() bool { return n.flags&FlagMountPoint != 0 }

// IsDirty reports whether the node has unwritten-back changes.
func (n *Node) IsDirty() bool { return n.flags&FlagDirty != 0 }

// SetDirty marks the node dirty.
func (n *Node) SetDirty() { n.flags |= FlagDirty }

// VTable returns the node's operations vtable.
func (n *Node) VTable() VTable { return n.vtable }

// SetVTable installs a back-end's operations vtable on a freshly
// allocated node. Back-ends live outside package vfs, so this is the
// only way they can populate a node they just got from AllocateNode.
func (n *Node) SetVTable(vt VTable) { n.vtable = vt }

// SetName sets a freshly allocated node's name; exported for the same
// reason as SetVTable.
func (n *Node) SetName(name ustr.Ustr) { n.setName(name) }

// InternalData exposes the opaque back-end blob for read/write by the
// owning back-end's own accessor helpers (mirroring the teacher's
// fs.Superblock_t field accessor pattern, generalized from one fixed
// struct to an arbitrary 32-byte scratch area).
func (n *Node) InternalData() *[internalDataSize]byte { return &n.internalData }

// RLock/RUnlock/Lock/Unlock/Upgrade/Downgrade expose the node's rw-lock
// directly, matching spec.md §4.8's hand-over-hand resolution discipline.
func (n *Node) RLock()     { n.mu.RLock() }
func (n *Node) RUnlock()   { n.mu.RUnlock() }
func (n *Node) Lock()      { n.mu.Lock() }
func (n *Node) Unlock()    { n.mu.Unlock() }
func (n *Node) Upgrade()   { n.mu.Upgrade() }
func (n *Node) Downgrade() { n.mu.Downgrade() }

// TryAcquire CAS-increments the reference count only if it is >= 0,
// matching spec.md's try_acquire; it fails once a node has been marked
// for destruction (refCount == -1).
func (n *Node) TryAcquire() bool {
	for {
		c := atomic.LoadInt32(&n.refCount)
		if c < 0 {
			return false
		}
		if atomic.CompareAndSwapInt32(&n.refCount, c, c+1) {
			return true
		}
	}
}

// Release decrements the reference count by one live handle.
func (n *Node) Release() {
	if atomic.AddInt32(&n.refCount, -1) < -1 {
		panic("vfs: Release underflow")
	}
}

// RefCount reports the current reference count.
func (n *Node) RefCount() int32 { return atomic.LoadInt32(&n.refCount) }

// markDoomed CAS-transitions refCount from 0 to -1, matching
// replace_node's precondition (old.ref_count == 0).
func (n *Node) markDoomed() bool {
	return atomic.CompareAndSwapInt32(&n.refCount, 0, -1)
}
