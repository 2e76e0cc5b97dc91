// Package hashtable implements a lock-striped hash table with a
// lock-free Get, adapted from the teacher's hashtable package. It
// backs vfskfs's name-to-node index for the in-memory /dev tree, the
// same role it plays in the teacher's own in-memory structures; its
// lock-striped CAS design also informs (without importing) the vfs
// package's own block-of-slots node arena.
package hashtable

import (
	"fmt"
	"hash/fnv"
	"sync"
	"sync/atomic"
	"unsafe"

	"nyxkernel/ustr"
)

type elem_t struct {
	key     interface{}
	value   interface{}
	keyHash uint32
	next    *elem_t
}

type bucket_t struct {
	sync.RWMutex
	first *elem_t
}

func (b *bucket_t) len() int {
	b.RLock()
	defer b.RUnlock()
	l := 0
	for e := b.first; e != nil; e = e.next {
		l++
	}
	return l
}

func (b *bucket_t) elems() []Pair_t {
	b.RLock()
	defer b.RUnlock()
	p := make([]Pair_t, 0)
	for e := b.first; e != nil; e = e.next {
		p = append(p, Pair_t{Key: e.key, Value: e.value})
	}
	return p
}

func (b *bucket_t) iter(f func(interface{}, interface{}) bool) bool {
	for e := b.first; e != nil; e = loadptr(&e.next) {
		if f(e.key, e.value) {
			return true
		}
	}
	return false
}

// Hashtable_t maps keys to values, protected internally by per-bucket
// locks; Get is lock-free (pointer chasing with atomic loads).
type Hashtable_t struct {
	table    []*bucket_t
	capacity int
	maxchain int
}

// MkHash allocates a new Hashtable_t with the given bucket count.
func MkHash(size int) *Hashtable_t {
	ht := &Hashtable_t{capacity: size, table: make([]*bucket_t, size), maxchain: 1}
	for i := range ht.table {
		ht.table[i] = &bucket_t{}
	}
	return ht
}

// String formats the table's bucket chains for debugging.
func (ht *Hashtable_t) String() string {
	s := ""
	for i, b := range ht.table {
		if b.first != nil {
			s += fmt.Sprintf("b %d:\n", i)
			for e := b.first; e != nil; e = loadptr(&e.next) {
				s += fmt.Sprintf("(%v, %v), ", e.keyHash, e.key)
			}
			s += "\n"
		}
	}
	return s
}

// Size returns the total number of elements stored in the table.
func (ht *Hashtable_t) Size() int {
	n := 0
	for _, b := range ht.table {
		n += b.len()
	}
	return n
}

// Pair_t is a key/value tuple returned by Elems.
type Pair_t struct {
	Key   interface{}
	Value interface{}
}

// Elems returns all key/value pairs currently stored.
func (ht *Hashtable_t) Elems() []Pair_t {
	p := make([]Pair_t, 0)
	for _, b := range ht.table {
		if n := b.elems(); n != nil {
			p = append(p, n...)
		}
	}
	return p
}

// Get looks up key and returns its value; lock-free.
func (ht *Hashtable_t) Get(key interface{}) (interface{}, bool) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	n := 0
	for e := loadptr(&b.first); e != nil; e = loadptr(&e.next) {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, true
		}
		n++
		if n > ht.maxchain {
			ht.maxchain = n
		}
	}
	return nil, false
}

// Set inserts a key/value pair, keeping each bucket's chain sorted by
// key hash; it returns false (and the existing value) if key was
// already present.
func (ht *Hashtable_t) Set(key interface{}, value interface{}) (interface{}, bool) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	b.Lock()
	defer b.Unlock()

	add := func(last *elem_t) {
		if last == nil {
			storeptr(&b.first, &elem_t{key: key, value: value, keyHash: kh, next: b.first})
		} else {
			storeptr(&last.next, &elem_t{key: key, value: value, keyHash: kh, next: last.next})
		}
	}

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && equal(e.key, key) {
			return e.value, false
		}
		if kh < e.keyHash {
			add(last)
			return value, true
		}
		last = e
	}
	add(last)
	return value, true
}

// Del removes a key from the table; it panics if the key is absent,
// matching the teacher's assumption that callers only delete keys they
// know are present.
func (ht *Hashtable_t) Del(key interface{}) {
	kh := khash(key)
	b := ht.table[ht.hash(kh)]
	b.Lock()
	defer b.Unlock()

	var last *elem_t
	for e := b.first; e != nil; e = e.next {
		if e.keyHash == kh && equal(e.key, key) {
			if last == nil {
				storeptr(&b.first, e.next)
			} else {
				storeptr(&last.next, e.next)
			}
			return
		}
		if kh < e.keyHash {
			panic("del of non-existing key")
		}
		last = e
	}
	panic("del of non-existing key")
}

// Iter applies f to each key/value pair until f returns true.
func (ht *Hashtable_t) Iter(f func(interface{}, interface{}) bool) bool {
	for _, b := range ht.table {
		if b.iter(f) {
			return true
		}
	}
	return false
}

func (ht *Hashtable_t) hash(keyHash uint32) int {
	return int(keyHash % uint32(len(ht.table)))
}

func loadptr(e **elem_t) *elem_t {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(e))
	return (*elem_t)(atomic.LoadPointer(ptr))
}

func storeptr(p **elem_t, n *elem_t) {
	ptr := (*unsafe.Pointer)(unsafe.Pointer(p))
	atomic.StorePointer(ptr, unsafe.Pointer(n))
}

func hashUstr(s ustr.Ustr) uint32 {
	h := fnv.New32a()
	h.Write(s)
	return h.Sum32()
}

func hashString(s string) uint32 {
	h := fnv.New32a()
	h.Write([]byte(s))
	return h.Sum32()
}

func khash(key interface{}) uint32 {
	return uint32(2654435761) * hash(key)
}

func hash(key interface{}) uint32 {
	switch x := key.(type) {
	case ustr.Ustr:
		return hashUstr(x)
	case int:
		return uint32(x)
	case int32:
		return uint32(x)
	case string:
		return hashString(x)
	}
	panic(fmt.Errorf("unsupported key type %T", key))
}

func equal(key1, key2 interface{}) bool {
	switch x := key1.(type) {
	case ustr.Ustr:
		return x.Eq(key2.(ustr.Ustr))
	case int32:
		return x == key2.(int32)
	case int:
		return x == key2.(int)
	case string:
		return x == key2.(string)
	}
	panic(fmt.Errorf("unsupported key type %T", key1))
}
