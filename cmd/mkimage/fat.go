package main

import (
	"encoding/binary"
	"fmt"
	"sort"
	"strings"
)

// FAT12 disk-image construction, the inverse of vfsfat's read path:
// this kernel has no writer of its own (vfsfat/vfsiso/vfsmbr are all
// read-only back-ends per spec.md §4.10), so a boot image has to be
// assembled by a host-side tool instead, exactly the role the
// teacher's mkfs occupies for its own on-disk format. The byte layout
// below (boot sector field offsets, FAT12 12-bit packing, 8.3 root
// directory records) is the same layout vfsfat/vfsmbr already parse
// and test against, so a round trip through this package and back
// through vfsmbr.MountRoot is a meaningful correctness check.
const (
	sectorSize        = 512
	sectorsPerCluster = 1
	reservedSectors   = 1
	numFATs           = 1
	rootEntryCount    = 16
	rootDirSectors    = 1 // rootEntryCount*32 / sectorSize
	dirEntrySize      = 32
	bootSignature     = 0xAA55

	// firstDataCluster is FAT's convention: clusters 0 and 1 are
	// reserved (the media descriptor and a historical EOC marker), so
	// file data starts at cluster 2.
	firstDataCluster = 2
)

// fatFile is one file to place at the root of the built volume.
type fatFile struct {
	Name83  string // 11-byte space-padded 8.3 record from to83, e.g. "HELLO   TXT"
	Content []byte
}

// to83 converts an arbitrary base name into an upper-cased 8.3 name.
// Names that don't already fit 8.3 are rejected with an error — this tool targets
// the skeleton directories a kernel boot image actually needs (a
// handful of short-named executables and config files), not a general
// long-name-capable FAT writer (vfsfat's own reader skips long-name
// entries too, so writing them would be dead weight).
func to83(name string) (string, error) {
	base, ext, _ := strings.Cut(name, ".")
	base = strings.ToUpper(base)
	ext = strings.ToUpper(ext)
	if len(base) > 8 || len(ext) > 3 {
		return "", fmt.Errorf("mkimage: %q does not fit an 8.3 name", name)
	}
	rec := make([]byte, 11)
	for i := range rec {
		rec[i] = ' '
	}
	copy(rec[0:8], base)
	copy(rec[8:11], ext)
	return string(rec), nil
}

// setFAT12Entry packs value into cluster's 12-bit slot, the same
// even/odd-nibble scheme vfsmbr's test helper of the same name (and
// the original fat12_set_entry) implement.
func setFAT12Entry(buf []byte, cluster uint32, value uint16) {
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

// clustersNeeded returns how many sectorSize-byte clusters n bytes of
// content occupy (at least one, even for a zero-length file).
func clustersNeeded(n int) int {
	c := (n + sectorSize - 1) / sectorSize
	if c == 0 {
		c = 1
	}
	return c
}

// buildFATVolume assembles a complete FAT12 volume (boot sector, one
// FAT, the fixed-size root directory, and a data cluster heap) holding
// files at its root. Files are processed in a stable, sorted order so
// the same input always produces byte-identical output.
func buildFATVolume(files map[string][]byte) ([]byte, error) {
	names := make([]string, 0, len(files))
	for n := range files {
		names = append(names, n)
	}
	sort.Strings(names)

	if len(names) > rootEntryCount {
		return nil, fmt.Errorf("mkimage: %d files exceeds the %d-entry root directory", len(names), rootEntryCount)
	}

	totalClusters := 0
	entries := make([]fatFile, 0, len(names))
	for _, n := range names {
		name83, err := to83(n)
		if err != nil {
			return nil, err
		}
		entries = append(entries, fatFile{Name83: name83, Content: files[n]})
		totalClusters += clustersNeeded(len(files[n]))
	}

	// One FAT12 sector holds floor(512*8/12) = 341 entries, comfortably
	// more than firstDataCluster+totalClusters for any skeleton this
	// tool is meant to image; fatSectors is fixed at 1 accordingly.
	const fatSectors = 1
	maxAddressable := (sectorSize * 8) / 12
	if firstDataCluster+totalClusters > maxAddressable {
		return nil, fmt.Errorf("mkimage: %d data clusters exceeds a single FAT12 sector's %d-entry capacity", totalClusters, maxAddressable-firstDataCluster)
	}

	dataSectors := totalClusters * sectorsPerCluster
	volumeSectors := reservedSectors + numFATs*fatSectors + rootDirSectors + dataSectors

	img := make([]byte, volumeSectors*sectorSize)

	boot := img[0:sectorSize]
	binary.LittleEndian.PutUint16(boot[11:13], sectorSize)
	boot[13] = sectorsPerCluster
	binary.LittleEndian.PutUint16(boot[14:16], reservedSectors)
	boot[16] = numFATs
	binary.LittleEndian.PutUint16(boot[17:19], rootEntryCount)
	binary.LittleEndian.PutUint16(boot[19:21], uint16(volumeSectors))
	binary.LittleEndian.PutUint16(boot[22:24], fatSectors)
	binary.LittleEndian.PutUint16(boot[bootSigOffset:], bootSignature)

	fat := img[reservedSectors*sectorSize : (reservedSectors+fatSectors)*sectorSize]
	root := img[(reservedSectors+fatSectors)*sectorSize : (reservedSectors+fatSectors+rootDirSectors)*sectorSize]

	cluster := uint32(firstDataCluster)
	for i, f := range entries {
		n := clustersNeeded(len(f.Content))
		first := cluster
		for c := 0; c < n; c++ {
			this := cluster
			cluster++
			if c == n-1 {
				setFAT12Entry(fat, this, 0xFFF) // end of chain
			} else {
				setFAT12Entry(fat, this, uint16(cluster))
			}
			lba := reservedSectors + fatSectors + rootDirSectors + int(this-firstDataCluster)
			chunk := img[lba*sectorSize : (lba+1)*sectorSize]
			start := c * sectorSize
			end := start + sectorSize
			if end > len(f.Content) {
				end = len(f.Content)
			}
			if start < len(f.Content) {
				copy(chunk, f.Content[start:end])
			}
		}

		rec := root[i*dirEntrySize : (i+1)*dirEntrySize]
		copy(rec[0:11], f.Name83)
		rec[11] = 0x20 // ARCHIVE
		binary.LittleEndian.PutUint16(rec[20:22], uint16(first>>16))
		binary.LittleEndian.PutUint16(rec[26:28], uint16(first))
		binary.LittleEndian.PutUint32(rec[28:32], uint32(len(f.Content)))
	}

	return img, nil
}

const bootSigOffset = 510
