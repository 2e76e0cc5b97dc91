package blockio

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// QueuedDisk wraps a Disk with a bounded count of concurrently
// in-flight ReadSectors calls, standing in for the fixed command-queue
// depth a real AHCI controller enforces in hardware. A hosted Disk
// backed by an *os.File or a byte slice has no such natural limit, so
// without this a back-end that fans out concurrent reads (vfsiso and
// vfsfat both read sectors on demand per path-resolution step) could
// issue unbounded concurrent I/O the real single-queue hardware this
// kernel targets could never sustain.
type QueuedDisk struct {
	Disk
	sem *semaphore.Weighted
}

// NewQueuedDisk wraps d, admitting at most depth concurrent
// ReadSectors calls; additional callers block until a slot frees.
func NewQueuedDisk(d Disk, depth int64) *QueuedDisk {
	return &QueuedDisk{Disk: d, sem: semaphore.NewWeighted(depth)}
}

// ReadSectors acquires a queue slot before delegating to the wrapped
// Disk, blocking (uninterruptibly — this package has no notion of a
// cancelable I/O request, matching spec.md's synchronous block-read
// contract) until one is free.
func (q *QueuedDisk) ReadSectors(lba uint64, count int, buf []byte) (int, error) {
	if err := q.sem.Acquire(context.Background(), 1); err != nil {
		return 0, err
	}
	defer q.sem.Release(1)
	return q.Disk.ReadSectors(lba, count, buf)
}
