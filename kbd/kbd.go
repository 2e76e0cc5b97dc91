// Package kbd implements the keyboard scancode ring the IRQ1 handler
// feeds and kernelfs's /dev/kbd node drains, grounded on
// original_source/include/plenjos/dev/kbd.h's kbd_buffer_state_t (a
// fixed 128-entry ring of key events) and adapted to the teacher's
// circbuf package for the underlying storage discipline.
package kbd

import (
	"nyxkernel/circbuf"
	"nyxkernel/defs"
	"nyxkernel/klock"
	"nyxkernel/mem"
)

// BufSize matches original_source's KBD_BUFFER_SIZE.
const BufSize = 128

// KeyState mirrors original_source's kbd_key_state enum.
type KeyState uint8

const (
	KeyReleased KeyState = 0
	KeyPressed  KeyState = 1
	KeyRepeat   KeyState = 2
)

// Event is the fixed-width record original_source calls kbd_event_t:
// a scancode, its transition state, and the live modifier mask. It is
// packed into 4 bytes (code:2, state:1, mods:1) to match the C
// __attribute__((packed)) layout byte-for-byte.
type Event struct {
	Code  uint16
	State KeyState
	Mods  uint8
}

func (e Event) encode() [4]byte {
	return [4]byte{byte(e.Code), byte(e.Code >> 8), byte(e.State), e.Mods}
}

func decodeEvent(b [4]byte) Event {
	return Event{
		Code:  uint16(b[0]) | uint16(b[1])<<8,
		State: KeyState(b[2]),
		Mods:  b[3],
	}
}

// Ring is the keyboard event ring buffer: a fixed-capacity queue an
// interrupt handler (producer) and a single reader (consumer, the
// kernelfs /dev/kbd node) share under a spin lock, since unlike
// circbuf's usual socket-buffer consumers, this one is fed directly
// from IRQ context where blocking is not an option.
type Ring struct {
	mu klock.Spin
	cb circbuf.Circbuf_t
}

// NewRing constructs a ring backed by a page from pm.
func NewRing(pm *mem.PhysMem) *Ring {
	r := &Ring{}
	r.cb.Cb_init(BufSize*4, pm)
	return r
}

// Push enqueues an event, silently dropping it if the ring is full —
// matching original_source's kbd_buffer_state_t.full behavior of
// refusing new scancodes rather than overwriting unread ones.
func (r *Ring) Push(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	enc := e.encode()
	r.cb.Copyin(enc[:])
}

// Pop dequeues the oldest event, or ok=false if the ring is empty.
func (r *Ring) Pop() (Event, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cb.Empty() {
		return Event{}, false
	}
	var buf [4]byte
	n, err := r.cb.Copyout(buf[:])
	if err != 0 || n != 4 {
		return Event{}, false
	}
	return decodeEvent(buf), true
}

// Len reports the number of queued, unread events.
func (r *Ring) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cb.Used() / 4
}

// ReadBytes drains up to len(dst) raw bytes of encoded events, the
// read(2) surface kernelfs's /dev/kbd node calls; it returns a whole
// number of events' worth of bytes. defs.Err_t is returned for
// interface symmetry with the rest of the vfs read path.
func (r *Ring) ReadBytes(dst []byte) (int, defs.Err_t) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := len(dst) - len(dst)%4
	got, _ := r.cb.Copyout(dst[:n])
	return got, 0
}
