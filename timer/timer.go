// Package timer implements the periodic tick source and timeout wheel
// (spec.md C7). A real build drives pit_count from the PIT's 2 kHz
// interrupt; the hosted build instead runs a goroutine that sleeps via
// golang.org/x/sys/unix.Nanosleep and increments the same counter, so
// sleep_ms/set_timeout callers see the same tick-counting semantics
// without depending on a real interrupt source — the same hosted
// substitution SPEC_FULL.md §1 makes for physical memory.
package timer

import (
	"sync/atomic"
	"time"

	"golang.org/x/sys/unix"
)

// TickHz is the PIT frequency spec.md 4.6 specifies.
const TickHz = 2000

const tickPeriod = time.Second / TickHz

// numSlots is the fixed timeout-wheel size spec.md 4.6 specifies.
const numSlots = 1024

// Slot states, per spec.md 4.6: 0 = free, claimedSentinel =
// claimed-but-not-yet-live, any other value = live (the tick count the
// timeout fires at).
const claimedSentinel = ^uint64(0)

// Clock drives pit_count and the timeout wheel.
type Clock struct {
	pitCount uint64 // atomic

	slots [numSlots]slot

	stop chan struct{}
}

type slot struct {
	ms   uint64 // 0 = free, claimedSentinel = claimed-not-live, else = live target tick
	cb   func(data interface{})
	data interface{}
}

// NewClock constructs a stopped Clock; call Start to begin ticking.
func NewClock() *Clock {
	return &Clock{stop: make(chan struct{})}
}

// Start launches the background goroutine that advances pit_count
// every tick, the hosted substitute for the PIT interrupt.
func (c *Clock) Start() {
	go func() {
		for {
			select {
			case <-c.stop:
				return
			default:
			}
			unix.Nanosleep(&unix.Timespec{Nsec: int64(tickPeriod)}, nil)
			atomic.AddUint64(&c.pitCount, 1)
		}
	}()
}

// Stop halts the tick goroutine.
func (c *Clock) Stop() { close(c.stop) }

// PitCount returns the current tick count.
func (c *Clock) PitCount() uint64 { return atomic.LoadUint64(&c.pitCount) }

// SleepMs busy-waits until at least ms milliseconds of ticks have
// elapsed, matching spec.md's "busy-waits on pit_count + n*2 >= target".
func (c *Clock) SleepMs(ms int) {
	target := c.PitCount() + uint64(ms)*(TickHz/1000)
	for c.PitCount() < target {
		// busy-wait, as specified; yield to avoid starving the ticking
		// goroutine on a GOMAXPROCS=1 host.
		time.Sleep(0)
	}
}

// SetTimeout reserves a slot that fires cb(data) once at least ms
// milliseconds have elapsed, returning the slot id (an index into the
// fixed 1024-slot array) or ok=false if every slot is claimed.
func (c *Clock) SetTimeout(ms int, cb func(data interface{}), data interface{}) (int, bool) {
	for i := range c.slots {
		s := &c.slots[i]
		if !atomic.CompareAndSwapUint64(&s.ms, 0, claimedSentinel) {
			continue
		}
		s.cb = cb
		s.data = data
		target := c.PitCount() + uint64(ms)*(TickHz/1000)
		if target == 0 || target == claimedSentinel {
			target = 1 // never collide with the free/claimed sentinels
		}
		atomic.StoreUint64(&s.ms, target)
		return i, true
	}
	return 0, false
}

// CancelTimeout frees a slot before it fires, returning false if it had
// already fired (or never existed).
func (c *Clock) CancelTimeout(id int) bool {
	if id < 0 || id >= numSlots {
		return false
	}
	s := &c.slots[id]
	old := atomic.SwapUint64(&s.ms, 0)
	return old != 0
}

// CheckExpired scans the wheel for live slots whose target tick has
// passed and runs their callbacks, freeing the slot afterward. Per
// spec.md 4.6, the wheel is deliberately not scanned on every tick —
// callers invoke this when the dispatcher returns to idle.
func (c *Clock) CheckExpired() {
	now := c.PitCount()
	for i := range c.slots {
		s := &c.slots[i]
		target := atomic.LoadUint64(&s.ms)
		if target == 0 || target == claimedSentinel || target > now {
			continue
		}
		if !atomic.CompareAndSwapUint64(&s.ms, target, 0) {
			continue
		}
		if s.cb != nil {
			s.cb(s.data)
		}
	}
}
