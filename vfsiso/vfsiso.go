// Package vfsiso is the read-only ISO9660 back-end (spec.md C11): it
// parses the primary volume descriptor and walks logical-block-sized
// directory extents, grounded on
// original_source/src/vfs/iso9660/iso9660.h's
// iso9660_primary_volume_descriptor and iso9660_directory_record
// layouts. Every directory record's extent location and data length is
// stashed in a vfs.Node's InternalData blob, the same fixed-field-over-
// byte-blob pattern the teacher's fs/super.go uses for its superblock.
package vfsiso

import (
	"encoding/binary"

	"golang.org/x/text/cases"

	"nyxkernel/blockio"
	"nyxkernel/defs"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

// isoSectorSize is the fixed 2048-byte logical sector ECMA-119 volume
// descriptors are always addressed in, regardless of the underlying
// disk's own SectorSize. Media this back-end mounts is assumed to
// report a 2048-byte SectorSize itself, matching every CD/DVD image in
// practice; a disk with a different native sector size would need a
// translating wrapper, which spec.md does not ask this back-end to
// provide.
const isoSectorSize = 2048

// pvdLBA is the fixed logical-sector offset of the primary volume
// descriptor within the System Area.
const pvdLBA = 16

const (
	drTypePrimary = 1
	drIDOff       = 1
	drID          = "CD001"
)

// fileFlagDirectory is bit 1 of a directory record's file_flags byte.
const fileFlagDirectory = 1 << 1

// PrimaryVolumeDescriptor holds the fields this back-end needs out of
// the 2048-byte PVD sector.
type PrimaryVolumeDescriptor struct {
	SystemID         string
	VolumeID         string
	LogicalBlockSize int
	RootExtentLBA    uint32
	RootDataLength   uint32
}

// readPVD reads and parses the primary volume descriptor at pvdLBA
// within the partition starting at partStartLBA (in d's native
// sectors, already translated by the caller — e.g. vfsmbr.Entry.StartLBAIn).
func readPVD(d blockio.Disk, partStartLBA uint64) (*PrimaryVolumeDescriptor, error) {
	buf := make([]byte, isoSectorSize)
	if _, err := d.ReadSectors(partStartLBA+pvdLBA, 1, buf); err != nil {
		return nil, err
	}
	if buf[0] != drTypePrimary || string(buf[drIDOff:drIDOff+5]) != drID {
		return nil, defs.EINVAL
	}

	pvd := &PrimaryVolumeDescriptor{
		SystemID:         trimPadded(buf[8:40]),
		VolumeID:         trimPadded(buf[40:72]),
		LogicalBlockSize: int(binary.LittleEndian.Uint16(buf[128:130])),
	}
	root := buf[156:190]
	pvd.RootExtentLBA = binary.LittleEndian.Uint32(root[2:6])
	pvd.RootDataLength = binary.LittleEndian.Uint32(root[10:14])
	return pvd, nil
}

func trimPadded(b []byte) string {
	i := len(b)
	for i > 0 && b[i-1] == ' ' {
		i--
	}
	return string(b[:i])
}

// DirRecord is one parsed iso9660_directory_record.
type DirRecord struct {
	ExtentLBA  uint32
	DataLength uint32
	IsDir      bool
	Name       string
}

// parseDirRecord parses one directory record from buf[off:] and
// returns it along with the record's on-disk length (0 signals padding
// to the next logical block, per ECMA-119 — directory records never
// span a block boundary).
func parseDirRecord(buf []byte, off int) (DirRecord, int) {
	length := int(buf[off])
	if length == 0 {
		return DirRecord{}, 0
	}
	rec := buf[off : off+length]
	nameLen := int(rec[32])
	raw := rec[33 : 33+nameLen]
	return DirRecord{
		ExtentLBA:  binary.LittleEndian.Uint32(rec[2:6]),
		DataLength: binary.LittleEndian.Uint32(rec[10:14]),
		IsDir:      rec[25]&fileFlagDirectory != 0,
		Name:       normalizeName(raw),
	}, length
}

var foldCaser = cases.Fold()

// normalizeName applies spec.md's exact name-normalization rules: the
// special single-byte identifiers \0 and \1 become "." and "..", a
// ";version" suffix is stripped, the result is case-folded, and a
// trailing "." left over from an extension-less stripped name is
// dropped.
func normalizeName(raw []byte) string {
	if len(raw) == 1 && raw[0] == 0 {
		return "."
	}
	if len(raw) == 1 && raw[0] == 1 {
		return ".."
	}
	name := raw
	if i := indexByte(name, ';'); i >= 0 {
		name = name[:i]
	}
	s := foldCaser.String(string(name))
	if len(s) > 0 && s[len(s)-1] == '.' {
		s = s[:len(s)-1]
	}
	return s
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}

// readDirectory reads and parses every record of the directory extent
// (extentLBA, dataLength) at the filesystem's logical block size.
func readDirectory(d blockio.Disk, partStartLBA uint64, lbs int, extentLBA, dataLength uint32) ([]DirRecord, error) {
	nblocks := (int(dataLength) + lbs - 1) / lbs
	buf := make([]byte, nblocks*lbs)
	sectorsPerBlock := lbs / isoSectorSize
	if sectorsPerBlock < 1 {
		sectorsPerBlock = 1
	}
	lba := partStartLBA + uint64(extentLBA)*uint64(sectorsPerBlock)
	if _, err := d.ReadSectors(lba, nblocks*sectorsPerBlock, buf); err != nil {
		return nil, err
	}

	var recs []DirRecord
	for block := 0; block < nblocks; block++ {
		off := block * lbs
		end := off + lbs
		for off < end {
			rec, n := parseDirRecord(buf, off)
			if n == 0 {
				break // padding: advance to next block
			}
			if rec.Name != "." && rec.Name != ".." {
				recs = append(recs, rec)
			}
			off += n
		}
	}
	return recs, nil
}

// nodeState is the back-end's InternalData layout for a vfs.Node: the
// extent location and data length of the directory record it was
// loaded from, mirroring original_source's
// vfs_iso9660_cache_node_data_t.
type nodeState struct {
	extentLBA  uint32
	dataLength uint32
}

func storeState(n *vfs.Node, s nodeState) {
	b := n.InternalData()
	binary.LittleEndian.PutUint32(b[0:4], s.extentLBA)
	binary.LittleEndian.PutUint32(b[4:8], s.dataLength)
}

func loadState(n *vfs.Node) nodeState {
	b := n.InternalData()
	return nodeState{
		extentLBA:  binary.LittleEndian.Uint32(b[0:4]),
		dataLength: binary.LittleEndian.Uint32(b[4:8]),
	}
}

// FS is a mounted ISO9660 volume: a vfs.VTable backed by a block
// device and the partition offset it starts at. Unlike
// original_source's vfs_iso9660_handle_instance_data_t, no per-handle
// read cursor is needed here: vfs.Handle.Off already serves that role,
// since ISO9660 extents are contiguous and need no block-chain walk to
// translate an offset into an LBA.
type FS struct {
	disk         blockio.Disk
	partStartLBA uint64
	pvd          *PrimaryVolumeDescriptor
}

// Mount reads the primary volume descriptor at partStartLBA (already
// translated into d's native sector units) and returns a Cache rooted
// at the volume's root directory, ready to be grafted in with
// vfs.Mount.
func Mount(d blockio.Disk, partStartLBA uint64, uid, gid, mode uint32) (*vfs.Cache, error) {
	pvd, err := readPVD(d, partStartLBA)
	if err != nil {
		return nil, err
	}
	fs := &FS{
		disk:         d,
		partStartLBA: partStartLBA,
		pvd:          pvd,
	}

	c := vfs.NewCache(uid, gid, mode)
	setVTableAndState(c, vfs.RootIndex, fs, nodeState{
		extentLBA:  pvd.RootExtentLBA,
		dataLength: pvd.RootDataLength,
	})
	return c, nil
}

// setVTableAndState is a small helper since Node's vtable/internalData
// fields are only reachable through the package's own accessors.
func setVTableAndState(c *vfs.Cache, idx vfs.NodeIndex, fs *FS, s nodeState) {
	n := c.Get(idx)
	n.SetVTable(fs)
	storeState(n, s)
}

// LoadNode resolves name as a child of parent's directory extent.
func (fs *FS) LoadNode(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr) (vfs.NodeIndex, defs.Err_t) {
	ps := loadState(parent)
	recs, err := readDirectory(fs.disk, fs.partStartLBA, fs.pvd.LogicalBlockSize, ps.extentLBA, ps.dataLength)
	if err != nil {
		return vfs.NilIndex, defs.EIO
	}
	// rec.Name is already case-folded by normalizeName; fold the query
	// the same way so "/SUB" finds a directory stored as "sub".
	wanted := foldCaser.String(name.String())
	for _, rec := range recs {
		if rec.Name != wanted {
			continue
		}
		typ := defs.T_REGULAR
		if rec.IsDir {
			typ = defs.T_DIR
		}
		n, idx := c.AllocateNode(typ)
		n.SetName(name)
		n.Mode = defs.S_IRUSR | defs.S_IXUSR | defs.S_IROTH | defs.S_IXOTH
		setVTableAndState(c, idx, fs, nodeState{extentLBA: rec.ExtentLBA, dataLength: rec.DataLength})
		return idx, 0
	}
	return vfs.NilIndex, defs.ENOENT
}

// CreateChild always fails: ISO9660 media is mounted read-only.
func (fs *FS) CreateChild(c *vfs.Cache, parent *vfs.Node, name ustr.Ustr, typ defs.Ftype_t, uid, gid, mode uint32) (vfs.NodeIndex, defs.Err_t) {
	return vfs.NilIndex, defs.EROFS
}

// UnloadNode has no back-end state to release; the node's InternalData
// is reclaimed by the arena itself.
func (fs *FS) UnloadNode(n *vfs.Node) defs.Err_t { return 0 }

// Read copies from h's directory-record extent at h.Off, the LBA-from-
// seek translation spec.md asks for.
func (fs *FS) Read(h *vfs.Handle, buf []byte) (int, defs.Err_t) {
	s := loadState(h.Cache.Get(h.Node))
	if h.Off >= int(s.dataLength) {
		return 0, 0
	}
	remaining := int(s.dataLength) - h.Off
	want := len(buf)
	if want > remaining {
		want = remaining
	}
	lbs := fs.pvd.LogicalBlockSize
	sectorsPerBlock := lbs / isoSectorSize
	if sectorsPerBlock < 1 {
		sectorsPerBlock = 1
	}
	startBlock := h.Off / lbs
	blockOff := h.Off % lbs
	nblocks := (blockOff + want + lbs - 1) / lbs
	tmp := make([]byte, nblocks*lbs)
	lba := fs.partStartLBA + uint64(s.extentLBA+uint32(startBlock))*uint64(sectorsPerBlock)
	if _, err := fs.disk.ReadSectors(lba, nblocks*sectorsPerBlock, tmp); err != nil {
		return 0, defs.EIO
	}
	n2 := copy(buf[:want], tmp[blockOff:blockOff+want])
	return n2, 0
}

// Write always fails: ISO9660 media is mounted read-only.
func (fs *FS) Write(h *vfs.Handle, buf []byte) (int, defs.Err_t) { return 0, defs.EROFS }

// Seek implements the three SEEK_* origins against the node's known
// DataLength.
func (fs *FS) Seek(h *vfs.Handle, off int, whence int) (int, defs.Err_t) {
	s := loadState(h.Cache.Get(h.Node))
	var base int
	switch whence {
	case defs.SEEK_SET:
		base = 0
	case defs.SEEK_CUR:
		base = h.Off
	case defs.SEEK_END:
		base = int(s.dataLength)
	default:
		return 0, defs.EINVAL
	}
	n := base + off
	if n < 0 {
		return 0, defs.EINVAL
	}
	return n, 0
}

// Close has nothing to release: see FS's doc comment.
func (fs *FS) Close(h *vfs.Handle) defs.Err_t { return 0 }
