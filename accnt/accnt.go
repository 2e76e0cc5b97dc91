// Package accnt implements per-process CPU accounting (spec.md C8's
// proc.Accnt), adapted near-verbatim from the teacher's accnt package.
package accnt

import (
	"sync"
	"sync/atomic"
	"time"

	"nyxkernel/util"
)

// Accnt_t accumulates per-process accounting information. Userns and
// Sysns store runtime in nanoseconds; the embedded mutex lets callers
// take a consistent snapshot when exporting usage statistics (getrusage).
type Accnt_t struct {
	Userns int64
	Sysns  int64
	sync.Mutex
}

// Utadd adds delta nanoseconds to the user-time counter.
func (a *Accnt_t) Utadd(delta int) {
	atomic.AddInt64(&a.Userns, int64(delta))
}

// Systadd adds delta nanoseconds to the system-time counter.
func (a *Accnt_t) Systadd(delta int) {
	atomic.AddInt64(&a.Sysns, int64(delta))
}

// Now returns the current time in nanoseconds since the Unix epoch.
func (a *Accnt_t) Now() int {
	return int(time.Now().UnixNano())
}

// Io_time removes time spent waiting for I/O from system time.
func (a *Accnt_t) Io_time(since int) {
	a.Systadd(-(a.Now() - since))
}

// Sleep_time removes time spent sleeping from system time.
func (a *Accnt_t) Sleep_time(since int) {
	a.Systadd(-(a.Now() - since))
}

// Finish adds the time since inttime to system time, finalizing an
// accounting period (a syscall, an interrupt handler run).
func (a *Accnt_t) Finish(inttime int) {
	a.Systadd(a.Now() - inttime)
}

// Add merges another accounting record into this one, used when a
// reaped child's usage is folded into its parent's (getrusage
// RUSAGE_CHILDREN).
func (a *Accnt_t) Add(n *Accnt_t) {
	a.Lock()
	defer a.Unlock()
	a.Userns += n.Userns
	a.Sysns += n.Sysns
}

// Fetch returns a consistent snapshot encoded as a struct rusage.
func (a *Accnt_t) Fetch() []uint8 {
	a.Lock()
	defer a.Unlock()
	return a.To_rusage()
}

// To_rusage serializes user/system time as two struct timeval pairs,
// the layout getrusage's caller expects.
func (a *Accnt_t) To_rusage() []uint8 {
	const words = 4
	ret := make([]uint8, words*8)
	totv := func(nano int64) (int, int) {
		return int(nano / 1e9), int((nano % 1e9) / 1000)
	}
	off := 0
	write := func(nano int64) {
		s, us := totv(nano)
		util.Writen(ret, 8, off, s)
		off += 8
		util.Writen(ret, 8, off, us)
		off += 8
	}
	write(a.Userns)
	write(a.Sysns)
	return ret
}
