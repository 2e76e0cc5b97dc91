// Package vfsmbr reads the MBR partition table (spec.md §4.10 back-end
// "MBR sector-0 four-entry enumeration"), grounded on
// original_source/src/devices/storage/mbr.c's drive_read_mbr: read one
// sector at LBA 0, walk the four fixed 16-byte partition_entry records
// at offset 446, and hand each non-empty entry's type byte to the
// matched back-end's Mount.
package vfsmbr

import (
	"encoding/binary"

	"nyxkernel/blockio"
	"nyxkernel/defs"
	"nyxkernel/vfs"
	"nyxkernel/vfsfat"
	"nyxkernel/vfsiso"
)

// Partition type bytes, restored from original_source's
// mbr_partition_type enum — only the ones a C11 back-end in this
// kernel actually mounts are named; the rest pass through as their raw
// byte for MountRoot's dispatch to ignore.
const (
	TypeEmpty      = 0x00
	TypeFAT12      = 0x01
	TypeFAT16Small = 0x04
	TypeFAT16Large = 0x06
	TypeFAT32      = 0x0B
	TypeFAT32LBA   = 0x0C
)

const (
	sigOffset      = 510
	partTableStart = 446
	partEntrySize  = 16
	numPartitions  = 4
	bootSignature  = 0xAA55
)

// Entry mirrors original_source's mbr_partition_entry, with the legacy
// CHS fields dropped (spec.md's back-ends only ever use LBA addressing).
type Entry struct {
	Bootable      bool
	Type          uint8
	StartingLBA   uint32
	SizeInSectors uint32
}

// Table is the four-entry partition table read from sector 0.
type Table struct {
	Entries [numPartitions]Entry
}

// Read reads and parses the MBR from d. MBR LBA fields are always
// expressed in 512-byte sectors regardless of the disk's logical
// sector size, per original_source's comment; callers translate
// Entry.StartingLBA into native sectors themselves (see StartLBAIn).
func Read(d blockio.Disk) (*Table, error) {
	buf := make([]byte, d.SectorSize())
	if _, err := d.ReadSectors(0, 1, buf); err != nil {
		return nil, err
	}
	if len(buf) < sigOffset+2 {
		return nil, defs.EIO
	}
	if sig := binary.LittleEndian.Uint16(buf[sigOffset:]); sig != bootSignature {
		return nil, defs.EINVAL
	}

	var t Table
	for i := 0; i < numPartitions; i++ {
		e := buf[partTableStart+i*partEntrySize : partTableStart+(i+1)*partEntrySize]
		t.Entries[i] = Entry{
			Bootable:      e[0] == 0x80,
			Type:          e[4],
			StartingLBA:   binary.LittleEndian.Uint32(e[8:12]),
			SizeInSectors: binary.LittleEndian.Uint32(e[12:16]),
		}
	}
	return &t, nil
}

// StartLBAIn translates a partition's 512-byte-sector StartingLBA into
// an LBA expressed in d's own logical sector size.
func (e Entry) StartLBAIn(d blockio.Disk) uint64 {
	return uint64(e.StartingLBA) * 512 / uint64(d.SectorSize())
}

// IsFAT reports whether e's type byte names one of the FAT variants
// this kernel's vfsfat back-end mounts.
func (e Entry) IsFAT() bool {
	switch e.Type {
	case TypeFAT12, TypeFAT16Small, TypeFAT16Large, TypeFAT32, TypeFAT32LBA:
		return true
	}
	return false
}

// MountRoot is the "MBR sector-0 four-entry enumeration calling the
// matched back-end's Mount" entry point: it reads d's partition table
// and mounts the first non-empty FAT entry it finds through vfsfat. A
// disk with no valid MBR signature is instead tried whole-disk as an
// ISO9660 volume through vfsiso, the shape a boot CD image takes (no
// partition table, the filesystem starting at LBA 0).
func MountRoot(d blockio.Disk, uid, gid, mode uint32) (*vfs.Cache, error) {
	t, err := Read(d)
	if err != nil {
		return vfsiso.Mount(d, 0, uid, gid, mode)
	}
	for _, e := range t.Entries {
		if e.Type == TypeEmpty {
			continue
		}
		if e.IsFAT() {
			return vfsfat.Mount(d, e.StartLBAIn(d), uid, gid, mode)
		}
	}
	return nil, defs.ENOENT
}
