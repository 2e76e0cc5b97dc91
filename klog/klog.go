// Package klog is the kernel's one-line diagnostic console: every subsystem
// prints through here instead of importing a logging library, matching the
// teacher's own idiom of prefixed fmt.Printf diagnostics rather than a
// leveled logger (the kernel cannot allocate a logger before mem.Arena
// exists).
package klog

import (
	"fmt"
	"io"
	"os"
	"sync"
)

// Out is where diagnostics are written. Tests may redirect it; the hosted
// kernel defaults to stderr, a bare-metal build would point it at the
// framebuffer console or a serial port.
var Out io.Writer = os.Stderr

var mu sync.Mutex

// Printf writes one "subsystem: message" diagnostic line.
func Printf(subsystem, format string, args ...interface{}) {
	mu.Lock()
	defer mu.Unlock()
	fmt.Fprintf(Out, "%s: "+format+"\n", append([]interface{}{subsystem}, args...)...)
}
