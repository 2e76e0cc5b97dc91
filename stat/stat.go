// Package stat mirrors the fixed-layout kstat structure copied to user space
// by the STAT/FSTAT/LSTAT syscalls.
package stat

import (
	"encoding/binary"

	"nyxkernel/defs"
)

// Size is the fixed wire width of an encoded Stat_t: eleven uint64
// fields, copied to user space byte-for-byte by STAT/FSTAT/LSTAT.
const Size = 11 * 8

// Stat_t mirrors a file's stat information. Field names follow the
// kernel-internal convention (leading underscore, read/write accessor
// pairs) the teacher uses for anything copied byte-for-byte to user space.
type Stat_t struct {
	_dev    uint
	_ino    uint
	_mode   uint
	_size   uint
	_rdev   uint
	_uid    uint
	_gid    uint
	_nlink  uint
	_blocks uint
	_mSec   uint
	_mNsec  uint
}

func (st *Stat_t) Wdev(v uint)    { st._dev = v }
func (st *Stat_t) Wino(v uint)    { st._ino = v }
func (st *Stat_t) Wmode(v uint)   { st._mode = v }
func (st *Stat_t) Wsize(v uint)   { st._size = v }
func (st *Stat_t) Wrdev(v uint)   { st._rdev = v }
func (st *Stat_t) Wuid(v uint)    { st._uid = v }
func (st *Stat_t) Wgid(v uint)    { st._gid = v }
func (st *Stat_t) Wnlink(v uint)  { st._nlink = v }
func (st *Stat_t) Wmtime(s, ns uint) {
	st._mSec = s
	st._mNsec = ns
}

func (st *Stat_t) Dev() uint   { return st._dev }
func (st *Stat_t) Ino() uint   { return st._ino }
func (st *Stat_t) Mode() uint  { return st._mode }
func (st *Stat_t) Size() uint  { return st._size }
func (st *Stat_t) Rdev() uint  { return st._rdev }
func (st *Stat_t) Uid() uint   { return st._uid }
func (st *Stat_t) Gid() uint   { return st._gid }
func (st *Stat_t) Nlink() uint { return st._nlink }

// Encode packs st into the fixed Size-byte wire layout the STAT family
// copies to user space.
func (st *Stat_t) Encode() []byte {
	b := make([]byte, Size)
	fields := []uint{st._dev, st._ino, st._mode, st._size, st._rdev, st._uid, st._gid, st._nlink, st._blocks, st._mSec, st._mNsec}
	for i, f := range fields {
		binary.LittleEndian.PutUint64(b[i*8:], uint64(f))
	}
	return b
}

// TypeMode returns the S_IF* bits corresponding to a defs.Ftype_t.
func TypeMode(t defs.Ftype_t) uint {
	switch t {
	case defs.T_DIR:
		return defs.S_IFDIR
	case defs.T_CHAR:
		return defs.S_IFCHR
	case defs.T_BLOCK:
		return defs.S_IFBLK
	case defs.T_FIFO:
		return defs.S_IFIFO
	case defs.T_SYMLINK:
		return defs.S_IFLNK
	case defs.T_SOCKET:
		return defs.S_IFSOCK
	default:
		return defs.S_IFREG
	}
}
