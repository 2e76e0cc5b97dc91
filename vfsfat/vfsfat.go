// Package vfsfat is the read-only FAT12/FAT16/FAT32 back-end (spec.md
// C11), grounded on original_source/src/vfs/fat/{fat,fat12,fat32}.{c,h}:
// BIOS Parameter Block parsing, fat_detect_type's cluster-count
// heuristic, the FAT12 12-bit-packed/FAT16 16-bit/FAT32 28-bit cluster
// chain walk, and 8.3 directory records. Long-name (attr == 0x0F)
// entries are skipped per spec.md's explicit "MAY be skipped by a
// minimal implementation" permission.
package vfsfat

import (
	"encoding/binary"

	"golang.org/x/text/cases"

	"nyxkernel/blockio"
	"nyxkernel/defs"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

// Type identifies which FAT width a mounted volume uses.
type Type int

const (
	TypeUnknown Type = iota
	TypeFAT12
	TypeFAT16
	TypeFAT32
)

const (
	dirEntrySize     = 32
	attrLongName     = 0x0F
	attrDirectory    = 0x10
	bootSigOffset    = 510
	bootSig          = 0xAA55
	fat12EntryBits   = 12
	fat16EOCMin      = 0xFFF8
	fat12EOCMin      = 0xFF8
	fat32EOCMin      = 0x0FFFFFF8
	fat32ClusterMask = 0x0FFFFFFF
)

// bpb holds the BIOS Parameter Block fields fat_detect_type and setup
// both need, decoded straight from the boot sector's packed layout
// (fat_boot_sector_generic).
type bpb struct {
	bytesPerSector    uint16
	sectorsPerCluster uint8
	reservedSectors   uint16
	numFATs           uint8
	rootEntryCount    uint16
	totalSectors16    uint16
	fatSize16         uint16
	totalSectors32    uint32
	fatSize32         uint32 // FAT32 extension, offset 36
	rootCluster       uint32 // FAT32 extension, offset 44
}

func parseBPB(buf []byte) bpb {
	b := bpb{
		bytesPerSector:    binary.LittleEndian.Uint16(buf[11:13]),
		sectorsPerCluster: buf[13],
		reservedSectors:   binary.LittleEndian.Uint16(buf[14:16]),
		numFATs:           buf[16],
		rootEntryCount:    binary.LittleEndian.Uint16(buf[17:19]),
		totalSectors16:    binary.LittleEndian.Uint16(buf[19:21]),
		fatSize16:         binary.LittleEndian.Uint16(buf[22:24]),
		totalSectors32:    binary.LittleEndian.Uint32(buf[32:36]),
	}
	if b.fatSize16 == 0 {
		b.fatSize32 = binary.LittleEndian.Uint32(buf[36:40])
		b.rootCluster = binary.LittleEndian.Uint32(buf[44:48])
	}
	return b
}

// detectType ports fat_detect_type's cluster-count heuristic exactly:
// FAT32 has no 16-bit FAT size field, and FAT12 vs FAT16 is decided by
// whether the volume has fewer than 4085 data clusters.
func detectType(b bpb) Type {
	if b.fatSize16 == 0 {
		return TypeFAT32
	}
	rootDirSectors := (uint32(b.rootEntryCount)*dirEntrySize + uint32(b.bytesPerSector) - 1) / uint32(b.bytesPerSector)
	totalSectors := uint32(b.totalSectors16)
	if totalSectors == 0 {
		totalSectors = b.totalSectors32
	}
	dataSectors := totalSectors - (uint32(b.reservedSectors) + uint32(b.numFATs)*uint32(b.fatSize16) + rootDirSectors)
	totalClusters := dataSectors / uint32(b.sectorsPerCluster)
	if totalClusters < 4085 {
		return TypeFAT12
	}
	return TypeFAT16
}

// FS is a mounted FAT volume: a vfs.VTable backed by a block device, a
// partition offset, and the layout fat12_setup/fat32_setup compute.
type FS struct {
	disk         blockio.Disk
	partStartLBA uint64
	typ          Type

	bytesPerSector    uint32
	sectorsPerCluster uint32

	fatStartLBA         uint32 // relative to partition start
	clusterHeapStartLBA uint32
	rootDirStartLBA     uint32 // FAT12/16 only
	rootDirSectors      uint32 // FAT12/16 only
	rootCluster         uint32 // FAT32 only
}

// Mount reads the boot sector at partStartLBA, detects the FAT width,
// and returns a Cache rooted at the volume's root directory.
//
// This back-end assumes the BPB's bytes_per_sector equals d.SectorSize
// (factor == 1 in original_source's terms): fat12_drive_read's
// sector-size-translation path for drives whose logical sector size
// differs from the FAT's own isn't carried over, since every back-end
// in this kernel is mounted against a disk already presenting its
// native sector size.
func Mount(d blockio.Disk, partStartLBA uint64, uid, gid, mode uint32) (*vfs.Cache, error) {
	buf := make([]byte, d.SectorSize())
	if _, err := d.ReadSectors(partStartLBA, 1, buf); err != nil {
		return nil, err
	}
	if binary.LittleEndian.Uint16(buf[bootSigOffset:]) != bootSig {
		return nil, defs.EINVAL
	}

	b := parseBPB(buf)
	typ := detectType(b)

	fs := &FS{
		disk:              d,
		partStartLBA:      partStartLBA,
		typ:               typ,
		bytesPerSector:    uint32(b.bytesPerSector),
		sectorsPerCluster: uint32(b.sectorsPerCluster),
		fatStartLBA:       uint32(b.reservedSectors),
	}

	rootState := nodeState{isDir: true}
	if typ == TypeFAT32 {
		fs.clusterHeapStartLBA = fs.fatStartLBA + uint32(b.numFATs)*b.fatSize32
		fs.rootCluster = b.rootCluster
		rootState.startCluster = b.rootCluster
	} else {
		fs.rootDirSectors = (uint32(b.rootEntryCount)*dirEntrySize + uint32(b.bytesPerSector) - 1) / uint32(b.bytesPerSector)
		fs.rootDirStartLBA = fs.fatStartLBA + uint32(b.numFATs)*uint32(b.fatSize16)
		fs.clusterHeapStartLBA = fs.rootDirStartLBA + fs.rootDirSectors
		rootState.isFixedRoot = true
	}

	c := vfs.NewCache(uid, gid, mode)
	n := c.Get(vfs.RootIndex)
	n.SetVTable(fs)
	storeState(n, rootState)
	return c, nil
}

// readFATBytes reads n bytes starting at byteOffset within the FAT
// region, transparently spanning a sector boundary — the generalized
// form of fat12_next_cluster's "entry straddles two sectors" case,
// made unconditional instead of only for the odd-cluster FAT12 path.
func readFATBytes(fs *FS, byteOffset int, n int) ([]byte, error) {
	sector := uint64(byteOffset) / uint64(fs.bytesPerSector)
	offInSector := int(uint64(byteOffset) % uint64(fs.bytesPerSector))
	nsectors := (offInSector + n + int(fs.bytesPerSector) - 1) / int(fs.bytesPerSector)
	buf := make([]byte, nsectors*int(fs.bytesPerSector))
	lba := fs.partStartLBA + uint64(fs.fatStartLBA) + sector
	if _, err := fs.disk.ReadSectors(lba, nsectors, buf); err != nil {
		return nil, err
	}
	return buf[offInSector : offInSector+n], nil
}

// nextCluster follows one step of the cluster chain, matching
// fat12_next_cluster/the FAT16/FAT32 equivalents (the original carries
// only a FAT12 walker; FAT16/32 are the same algorithm at a wider
// entry size, so this generalizes across all three per spec.md).
func (fs *FS) nextCluster(cluster uint32) (uint32, error) {
	switch fs.typ {
	case TypeFAT12:
		off := int(cluster) + int(cluster)/2
		b, err := readFATBytes(fs, off, 2)
		if err != nil {
			return 0, err
		}
		entry := binary.LittleEndian.Uint16(b)
		if cluster&1 != 0 {
			entry >>= 4
		} else {
			entry &= 0x0FFF
		}
		return uint32(entry), nil
	case TypeFAT16:
		b, err := readFATBytes(fs, int(cluster)*2, 2)
		if err != nil {
			return 0, err
		}
		return uint32(binary.LittleEndian.Uint16(b)), nil
	case TypeFAT32:
		b, err := readFATBytes(fs, int(cluster)*4, 4)
		if err != nil {
			return 0, err
		}
		return binary.LittleEndian.Uint32(b) & fat32ClusterMask, nil
	}
	return 0, defs.EINVAL
}

func (fs *FS) isEOC(cluster uint32) bool {
	switch fs.typ {
	case TypeFAT12:
		return cluster >= fat12EOCMin
	case TypeFAT16:
		return cluster >= fat16EOCMin
	case TypeFAT32:
		return cluster >= fat32EOCMin
	}
	return true
}

func (fs *FS) clusterLBA(cluster uint32) uint64 {
	return fs.partStartLBA + uint64(fs.clusterHeapStartLBA) + uint64(cluster-2)*uint64(fs.sectorsPerCluster)
}

func (fs *FS) readCluster(cluster uint32, buf []byte) error {
	_, err := fs.disk.ReadSectors(fs.clusterLBA(cluster), int(fs.sectorsPerCluster), buf)
	return err
}

func (fs *FS) bytesPerCluster() uint32 { return fs.bytesPerSector * fs.sectorsPerCluster }

// dirEntry is one parsed 8.3 fat32_directory_entry (the layout is
// identical across all three FAT widths).
type dirEntry struct {
	Name         string
	IsDir        bool
	FirstCluster uint32
	FileSize     uint32
}

var foldCaser = cases.Fold()

// normalize83 joins an 11-byte 8.3 name[8]+ext[3] field into "name.ext"
// (no dot if the extension is blank), trimming the space-padding FAT
// uses, and case-folds the result the same way vfsiso folds ISO9660
// identifiers.
func normalize83(raw []byte) string {
	name := trimPadded(raw[0:8])
	ext := trimPadded(raw[8:11])
	s := name
	if ext != "" {
		s = name + "." + ext
	}
	return foldCaser.String(s)
}

func trimPadded(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == ' ' {
		i--
	}
	return string(b[:i])
}

// parseEntries walks 32-byte directory records out of buf, skipping
// deleted (0xE5) and long-name (attr 0x0F) entries and stopping at the
// first all-zero name byte, matching fat12_parse_root's scan.
func parseEntries(buf []byte) []dirEntry {
	var out []dirEntry
	for off := 0; off+dirEntrySize <= len(buf); off += dirEntrySize {
		rec := buf[off : off+dirEntrySize]
		if rec[0] == 0x00 {
			break
		}
		if rec[0] == 0xE5 {
			continue
		}
		attr := rec[11]
		if attr == attrLongName {
			continue
		}
		name := normalize83(rec[0:11])
		if name == "." || name == ".." {
			continue
		}
		firstClusterHigh := binary.LittleEndian.Uint16(rec[20:22])
		firstClusterLow := binary.LittleEndian.Uint16(rec[26:28])
		out = append(out, dirEntry{
			Name:         name,
			IsDir:        attr&attrDirectory != 0,
			FirstCluster: uint32(firstClusterHigh)<<16 | uint32(firstClusterLow),
			FileSize:     binary.LittleEndian.Uint32(rec[28:32]),
		})
	}
	return out
}

// listDirectory reads a directory's full entry list: either the fixed
// root region (FAT12/16) or a cluster chain (FAT32 root and every
// subdirectory on any FAT width).
func (fs *FS) listDirectory(ns nodeState) ([]dirEntry, error) {
	if ns.isFixedRoot {
		buf := make([]byte, fs.rootDirSectors*fs.bytesPerSector)
		lba := fs.partStartLBA + uint64(fs.rootDirStartLBA)
		if _, err := fs.disk.ReadSectors(lba, int(fs.rootDirSectors), buf); err != nil {
			return nil, err
		}
		return parseEntries(buf), nil
	}

	var all []byte
	cluster := ns.startCluster
	for cluster >= 2 && !fs.isEOC(cluster) {
		buf := make([]byte, fs.bytesPerCluster())
		if err := fs.readCluster(cluster, buf); err != nil {
			return nil, err
		}
		all = append(all, buf...)
		next, err := fs.nextCluster(cluster)
		if err != nil {
			return nil, err
		}
		cluster = next
	}
	return parseEntries(all), nil
}

// nodeState is the back-end's InternalData layout for a vfs.Node,
// mirroring vfs_fat12_cache_node_data_t's fs-pointer-plus-start-
// cluster pair (the fs pointer itself lives in the Node's vtable
// field, set once at allocation, so only the cluster/size/kind needs
// storing here).
type nodeState struct {
	startCluster uint32
	fileSize     uint32
	isDir        bool
	isFixedRoot  bool
}

func storeState(n *vfs.Node, s nodeState) {
	b := n.InternalData()
	binary.LittleEndian.PutUint32(b[0:4], s.startCluster)
	binary.LittleEndian.PutUint32(b[4:8], s.fileSize)
	b[8] = 0
	if s.isDir {
		b[8] = 1
	}
	b[9] = 0
	if s.isFixedRoot {
		b[9] = 1
	}
}

func loadState(n *vfs.Node) nodeState {
	b := n.InternalData()
	return nodeState{
		startCluster: binary.LittleEndian.Uint32(b[0:4]),
		fileSize:     binary.LittleEndian.Uint32(b[4:8]),
		isDir:        b[8] != 0,
		isFixedRoot:  b[9] != 0,
	}
}

// LoadNode resolves name as a child of parent's directory.
func (fs *FS) LoadNode(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr) (vfs.NodeIndex, defs.Err_t) {
	ps := loadState(parent)
	entries, err := fs.listDirectory(ps)
	if err != nil {
		return vfs.NilIndex, defs.EIO
	}
	wanted := foldCaser.String(name.String())
	for _, e := range entries {
		if e.Name != wanted {
			continue
		}
		typ := defs.T_REGULAR
		if e.IsDir {
			typ = defs.T_DIR
		}
		n, idx := c.AllocateNode(typ)
		n.SetName(name)
		n.Mode = defs.S_IRUSR | defs.S_IXUSR | defs.S_IROTH | defs.S_IXOTH
		storeState(n, nodeState{startCluster: e.FirstCluster, fileSize: e.FileSize, isDir: e.IsDir})
		n.SetVTable(fs)
		return idx, 0
	}
	return vfs.NilIndex, defs.ENOENT
}

// CreateChild always fails: this back-end mounts FAT volumes read-only.
func (fs *FS) CreateChild(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr, typ defs.Ftype_t, uid, gid, mode uint32) (vfs.NodeIndex, defs.Err_t) {
	return vfs.NilIndex, defs.EROFS
}

// UnloadNode has no back-end state to release.
func (fs *FS) UnloadNode(n *vfs.Node) defs.Err_t { return 0 }

// Read walks the cluster chain to the handle's current offset and
// copies as much as fits into buf, generalizing
// fat12_file_read_func's loop across all three FAT widths.
func (fs *FS) Read(h *vfs.Handle, buf []byte) (int, defs.Err_t) {
	n := h.Cache.Get(h.Node)
	ns := loadState(n)
	if h.Off >= int(ns.fileSize) {
		return 0, 0
	}
	remaining := int(ns.fileSize) - h.Off
	want := len(buf)
	if want > remaining {
		want = remaining
	}

	bpc := int(fs.bytesPerCluster())
	clusterIndex := h.Off / bpc
	offsetInCluster := h.Off % bpc

	cluster := ns.startCluster
	for i := 0; i < clusterIndex; i++ {
		next, err := fs.nextCluster(cluster)
		if err != nil || fs.isEOC(next) {
			return 0, defs.EIO
		}
		cluster = next
	}

	out := buf[:want]
	clusterBuf := make([]byte, bpc)
	for len(out) > 0 {
		if err := fs.readCluster(cluster, clusterBuf); err != nil {
			return 0, defs.EIO
		}
		n := copy(out, clusterBuf[offsetInCluster:])
		out = out[n:]
		offsetInCluster = 0
		if len(out) == 0 {
			break
		}
		next, err := fs.nextCluster(cluster)
		if err != nil || fs.isEOC(next) {
			break
		}
		cluster = next
	}
	return want - len(out), 0
}

// Write always fails: this back-end mounts FAT volumes read-only.
func (fs *FS) Write(h *vfs.Handle, buf []byte) (int, defs.Err_t) { return 0, defs.EROFS }

// Seek implements the three SEEK_* origins against the node's known
// file size.
func (fs *FS) Seek(h *vfs.Handle, off int, whence int) (int, defs.Err_t) {
	ns := loadState(h.Cache.Get(h.Node))
	var base int
	switch whence {
	case defs.SEEK_SET:
		base = 0
	case defs.SEEK_CUR:
		base = h.Off
	case defs.SEEK_END:
		base = int(ns.fileSize)
	default:
		return 0, defs.EINVAL
	}
	n := base + off
	if n < 0 {
		return 0, defs.EINVAL
	}
	return n, 0
}

// Close has nothing to release.
func (fs *FS) Close(h *vfs.Handle) defs.Err_t { return 0 }
