package main

import (
	"encoding/binary"
)

// MBR layout constants, matching vfsmbr's read side exactly: partition
// table at offset 446, 16 bytes per entry, signature at 510.
const (
	mbrPartTableStart = 446
	mbrPartEntrySize  = 16
	mbrSigOffset      = 510
	mbrTypeFAT12      = 0x01
	// fatPartitionLBA places the volume built by buildFATVolume
	// immediately after the MBR sector, the same placement
	// vfsmbr_test.go's buildMBRWithFAT12Partition uses.
	fatPartitionLBA = 1
)

// BuildImage assembles a full disk image: one MBR sector followed by a
// single bootable FAT12 partition holding files at its root.
func BuildImage(files map[string][]byte) ([]byte, error) {
	vol, err := buildFATVolume(files)
	if err != nil {
		return nil, err
	}
	volSectors := len(vol) / sectorSize

	img := make([]byte, sectorSize+len(vol))
	mbr := img[0:sectorSize]

	off := mbrPartTableStart
	mbr[off] = 0x80 // bootable
	mbr[off+4] = mbrTypeFAT12
	binary.LittleEndian.PutUint32(mbr[off+8:off+12], fatPartitionLBA)
	binary.LittleEndian.PutUint32(mbr[off+12:off+16], uint32(volSectors))
	binary.LittleEndian.PutUint16(mbr[mbrSigOffset:], bootSignature)

	copy(img[sectorSize:], vol)
	return img, nil
}
