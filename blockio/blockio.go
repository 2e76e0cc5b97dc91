// Package blockio implements the sector-addressable block device
// contract the C11 back-ends (vfsmbr/vfsiso/vfsfat/vfskfs) read
// through, adapted from the teacher's fs/blk.go Disk_i/Bdev_block_t
// pattern (synchronous request, ack channel) but generalized from
// "disk speaks in fixed BSIZE filesystem blocks" to "disk speaks in
// logical_sector_size sectors, which back-ends translate from" — the
// real distinction spec.md §4.10 draws between sector size and FS
// block size.
package blockio

import "nyxkernel/defs"

// Disk is the block I/O contract every back-end reads through:
// ReadSectors(lba, count, buf) -> (n, error), matching spec.md §4.10
// exactly. No back-end may assume sector size equals its own on-disk
// block size.
type Disk interface {
	ReadSectors(lba uint64, count int, buf []byte) (int, error)
	SectorSize() int
}

// MemDisk is an in-memory Disk backing test images and the hosted
// build's synthesized boot media, the hosted substitute for the
// teacher's ahci_disk_t — grounded on the same "disk is just bytes
// behind an interface" substitution mem.Arena makes for physical RAM.
type MemDisk struct {
	sectorSize int
	data       []byte
}

// NewMemDisk wraps data (which must be a whole number of sectorSize-
// byte sectors) as a Disk.
func NewMemDisk(data []byte, sectorSize int) *MemDisk {
	return &MemDisk{sectorSize: sectorSize, data: data}
}

// SectorSize reports the disk's logical sector size.
func (d *MemDisk) SectorSize() int { return d.sectorSize }

// ReadSectors copies count sectors starting at lba into buf.
func (d *MemDisk) ReadSectors(lba uint64, count int, buf []byte) (int, error) {
	off := int(lba) * d.sectorSize
	n := count * d.sectorSize
	if off < 0 || off+n > len(d.data) {
		return 0, defs.EIO
	}
	copy(buf, d.data[off:off+n])
	return n, nil
}

// WriteSectors writes count sectors starting at lba from buf; no
// read-only back-end calls it at runtime.
func (d *MemDisk) WriteSectors(lba uint64, count int, buf []byte) (int, error) {
	off := int(lba) * d.sectorSize
	n := count * d.sectorSize
	if off < 0 || off+n > len(d.data) || len(buf) < n {
		return 0, defs.EIO
	}
	copy(d.data[off:off+n], buf[:n])
	return n, nil
}
