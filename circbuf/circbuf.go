// Package circbuf implements a single-reader/single-writer circular
// byte buffer backed by one physical page, adapted from the teacher's
// circbuf package. The teacher's version copies through an
// fdops.Userio_i abstraction for socket buffers; this adaptation copies
// plain byte slices instead, since its only consumer here (package kbd)
// moves bytes between an interrupt handler and a kernel reader, never
// through a user-copy path.
package circbuf

import (
	"nyxkernel/defs"
	"nyxkernel/mem"
)

// Circbuf_t is not safe for concurrent use; callers serialize access
// (package kbd does so with its own lock around the scancode ring).
type Circbuf_t struct {
	pm    *mem.PhysMem
	frame mem.FrameNum
	buf   []uint8
	bufsz int
	head  int
	tail  int
}

// Cb_init lazily arranges for a bufsz-byte (<= PGSIZE) ring to be
// backed by a page from pm; the page itself is allocated on first use.
func (cb *Circbuf_t) Cb_init(bufsz int, pm *mem.PhysMem) defs.Err_t {
	if bufsz <= 0 || bufsz > mem.PGSIZE {
		panic("bad circbuf size")
	}
	cb.pm = pm
	cb.bufsz = bufsz
	cb.head, cb.tail = 0, 0
	return 0
}

// Cb_ensure guarantees the backing page is allocated.
func (cb *Circbuf_t) Cb_ensure() defs.Err_t {
	if cb.buf != nil {
		return 0
	}
	f, ok := cb.pm.RefpgNewNozero()
	if !ok {
		return -defs.ENOMEM
	}
	cb.frame = f
	cb.buf = cb.pm.Arena.Dmap(f)[:cb.bufsz]
	return 0
}

// Cb_release drops the reference to the backing page.
func (cb *Circbuf_t) Cb_release() {
	if cb.buf == nil {
		return
	}
	cb.pm.Alloc.Free(cb.frame)
	cb.buf = nil
	cb.head, cb.tail = 0, 0
}

func (cb *Circbuf_t) Bufsz() int { return cb.bufsz }

// Full returns true when the buffer cannot accept more data.
func (cb *Circbuf_t) Full() bool { return cb.head-cb.tail == cb.bufsz }

// Empty reports whether the buffer contains any data.
func (cb *Circbuf_t) Empty() bool { return cb.head == cb.tail }

// Left returns the remaining write capacity in bytes.
func (cb *Circbuf_t) Left() int { return cb.bufsz - (cb.head - cb.tail) }

// Used returns the current number of unread bytes.
func (cb *Circbuf_t) Used() int { return cb.head - cb.tail }

// Copyin appends as much of src as fits without overflowing the ring,
// returning the number of bytes written.
func (cb *Circbuf_t) Copyin(src []uint8) (int, defs.Err_t) {
	if err := cb.Cb_ensure(); err != 0 {
		return 0, err
	}
	n := len(src)
	if room := cb.Left(); n > room {
		n = room
	}
	for i := 0; i < n; i++ {
		cb.buf[(cb.head+i)%cb.bufsz] = src[i]
	}
	cb.head += n
	return n, 0
}

// Copyout copies up to len(dst) unread bytes into dst and advances the
// tail, returning the number of bytes copied.
func (cb *Circbuf_t) Copyout(dst []uint8) (int, defs.Err_t) {
	if err := cb.Cb_ensure(); err != 0 {
		return 0, err
	}
	n := len(dst)
	if avail := cb.Used(); n > avail {
		n = avail
	}
	for i := 0; i < n; i++ {
		dst[i] = cb.buf[(cb.tail+i)%cb.bufsz]
	}
	cb.tail += n
	return n, 0
}
