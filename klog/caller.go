package klog

import (
	"fmt"
	"runtime"
	"sync"
)

// DistinctCaller de-duplicates diagnostics coming from the same call chain,
// adapted from the teacher's caller.Distinct_caller_t. It is used to keep a
// hot, repeatedly-faulting path (e.g. a user thread hammering an unmapped
// page) from flooding the debug console with one line per occurrence.
type DistinctCaller struct {
	mu      sync.Mutex
	Enabled bool
	seen    map[uintptr]bool
}

func (dc *DistinctCaller) pchash(pcs []uintptr) uintptr {
	var ret uintptr
	for _, pc := range pcs {
		pc = pc*1103515245 + 12345
		ret ^= pc
	}
	return ret
}

// Distinct reports whether the current call chain has not been seen before,
// returning a formatted stack trace the first time around.
func (dc *DistinctCaller) Distinct() (bool, string) {
	dc.mu.Lock()
	defer dc.mu.Unlock()
	if !dc.Enabled {
		return false, ""
	}
	if dc.seen == nil {
		dc.seen = make(map[uintptr]bool)
	}
	pcs := make([]uintptr, 30)
	got := runtime.Callers(3, pcs)
	if got == 0 {
		return false, ""
	}
	pcs = pcs[:got]
	h := dc.pchash(pcs)
	if dc.seen[h] {
		return false, ""
	}
	dc.seen[h] = true
	frames := runtime.CallersFrames(pcs)
	s := ""
	for {
		fr, more := frames.Next()
		if s == "" {
			s = fmt.Sprintf("%v (%v:%v)\n", fr.Function, fr.File, fr.Line)
		} else {
			s += fmt.Sprintf("\t%v (%v:%v)\n", fr.Function, fr.File, fr.Line)
		}
		if !more {
			break
		}
	}
	return true, s
}
