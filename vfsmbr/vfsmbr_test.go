package vfsmbr

import (
	"encoding/binary"
	"testing"

	"nyxkernel/blockio"
	"nyxkernel/defs"
)

func buildMBR(entries []Entry) []byte {
	buf := make([]byte, 512)
	for i, e := range entries {
		off := partTableStart + i*partEntrySize
		if e.Bootable {
			buf[off] = 0x80
		}
		buf[off+4] = e.Type
		binary.LittleEndian.PutUint32(buf[off+8:], e.StartingLBA)
		binary.LittleEndian.PutUint32(buf[off+12:], e.SizeInSectors)
	}
	binary.LittleEndian.PutUint16(buf[sigOffset:], bootSignature)
	return buf
}

func TestReadParsesPartitions(t *testing.T) {
	img := buildMBR([]Entry{
		{Bootable: true, Type: TypeFAT32LBA, StartingLBA: 2048, SizeInSectors: 1000000},
	})
	d := blockio.NewMemDisk(img, 512)

	tbl, err := Read(d)
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	if !tbl.Entries[0].Bootable || tbl.Entries[0].Type != TypeFAT32LBA {
		t.Fatalf("entry 0 = %+v", tbl.Entries[0])
	}
	if tbl.Entries[0].StartingLBA != 2048 {
		t.Fatalf("StartingLBA = %d, want 2048", tbl.Entries[0].StartingLBA)
	}
	if !tbl.Entries[0].IsFAT() {
		t.Fatal("FAT32LBA entry should report IsFAT")
	}
	for i := 1; i < numPartitions; i++ {
		if tbl.Entries[i].Type != TypeEmpty {
			t.Fatalf("entry %d should be empty, got %+v", i, tbl.Entries[i])
		}
	}
}

func TestReadRejectsBadSignature(t *testing.T) {
	img := make([]byte, 512)
	d := blockio.NewMemDisk(img, 512)
	if _, err := Read(d); err == nil {
		t.Fatal("Read should reject a sector with no 0xAA55 signature")
	}
}

func TestStartLBAInTranslatesSectorSize(t *testing.T) {
	e := Entry{StartingLBA: 2048}
	d := blockio.NewMemDisk(make([]byte, 4096), 4096)
	if got := e.StartLBAIn(d); got != 256 {
		t.Fatalf("StartLBAIn = %d, want 256 (2048*512/4096)", got)
	}
}

// setFAT12Entry mirrors vfsfat's own helper of the same name (kept
// package-local since it's unexported there too).
func setFAT12Entry(buf []byte, cluster uint16, value uint16) {
	off := int(cluster) + int(cluster)/2
	existing := binary.LittleEndian.Uint16(buf[off:])
	var merged uint16
	if cluster&1 != 0 {
		merged = (existing & 0x000F) | (value << 4)
	} else {
		merged = (existing & 0xF000) | (value & 0x0FFF)
	}
	binary.LittleEndian.PutUint16(buf[off:], merged)
}

// buildMBRWithFAT12Partition synthesizes an MBR at sector 0 whose
// single partition entry points at a minimal one-file FAT12 volume
// starting at sector 1.
func buildMBRWithFAT12Partition() []byte {
	const (
		fatPartitionLBA = 1
		fatSectors      = 6 // boot, FAT, root dir, 3 data clusters
	)
	img := buildMBR([]Entry{
		{Bootable: true, Type: TypeFAT12, StartingLBA: fatPartitionLBA, SizeInSectors: fatSectors},
	})
	img = append(img, make([]byte, fatSectors*512)...)

	boot := img[1*512 : 2*512]
	binary.LittleEndian.PutUint16(boot[11:13], 512)
	boot[13] = 1 // sectors per cluster
	binary.LittleEndian.PutUint16(boot[14:16], 1) // reserved sectors
	boot[16] = 1                                  // numFATs
	binary.LittleEndian.PutUint16(boot[17:19], 16) // root entry count
	binary.LittleEndian.PutUint16(boot[19:21], fatSectors)
	binary.LittleEndian.PutUint16(boot[22:24], 1) // fatSize16
	binary.LittleEndian.PutUint16(boot[510:], 0xAA55)

	fat := img[2*512 : 3*512]
	setFAT12Entry(fat, 2, 0xFFF)

	root := img[3*512 : 4*512]
	copy(root[0:8], []byte("HELLO   "))
	copy(root[8:11], []byte("TXT"))
	root[11] = 0x20
	binary.LittleEndian.PutUint16(root[26:28], 2)
	binary.LittleEndian.PutUint32(root[28:32], 5)

	data := img[4*512 : 5*512]
	copy(data, []byte("hi!!!"))

	return img
}

func TestMountRootDispatchesFATPartitionToVfsfat(t *testing.T) {
	img := buildMBRWithFAT12Partition()
	d := blockio.NewMemDisk(img, 512)

	c, err := MountRoot(d, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("MountRoot: %v", err)
	}
	if c == nil {
		t.Fatal("MountRoot returned nil cache")
	}
}

// buildBareISOImage synthesizes an 18-block ISO9660 image with no MBR
// signature and an empty root directory, the shape a boot CD takes.
func buildBareISOImage() []byte {
	const (
		sectorSize = 2048
		numBlocks  = 18
		rootLBA    = 17
	)
	img := make([]byte, numBlocks*sectorSize)

	pvd := img[16*sectorSize : 17*sectorSize]
	pvd[0] = 1
	copy(pvd[1:6], []byte("CD001"))
	binary.LittleEndian.PutUint16(pvd[128:130], sectorSize)

	root := pvd[156:190]
	root[0] = 34
	binary.LittleEndian.PutUint32(root[2:6], rootLBA)
	binary.LittleEndian.PutUint32(root[10:14], sectorSize)
	root[25] = 1 << 1

	rootExtent := img[rootLBA*sectorSize : (rootLBA+1)*sectorSize]
	selfRec := rootExtent[0:34]
	selfRec[0] = 34
	binary.LittleEndian.PutUint32(selfRec[2:6], rootLBA)
	binary.LittleEndian.PutUint32(selfRec[10:14], sectorSize)
	selfRec[25] = 1 << 1
	selfRec[32] = 1
	selfRec[33] = 0

	return img
}

func TestMountRootFallsBackToVfsisoWithoutMBRSignature(t *testing.T) {
	img := buildBareISOImage()
	d := blockio.NewMemDisk(img, 2048)

	c, err := MountRoot(d, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("MountRoot: %v", err)
	}
	if c == nil {
		t.Fatal("MountRoot returned nil cache")
	}
}
