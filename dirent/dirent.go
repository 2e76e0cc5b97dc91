// Package dirent implements the fixed 264-byte directory-entry wire
// record spec.md §6 specifies, which back-ends fill sequentially into
// a user buffer on directory reads.
package dirent

import (
	"nyxkernel/defs"
	"nyxkernel/ustr"
)

// Size is the on-the-wire record size: name[NAME_MAX+1] + type:u8 +
// 7 reserved bytes = 256 + 1 + 7 = 264.
const Size = defs.NAME_MAX + 1 + 1 + 7

// Record is one directory entry as written to a user buffer.
type Record struct {
	Name ustr.Ustr
	Type defs.Ftype_t
}

// Encode writes r into the first Size bytes of dst, which must be at
// least Size bytes long. Short writes are never produced — callers
// that can't fit a full record must not call Encode.
func Encode(r Record, dst []byte) {
	if len(dst) < Size {
		panic("dirent: dst too small")
	}
	for i := range dst[:Size] {
		dst[i] = 0
	}
	n := len(r.Name)
	if n > defs.NAME_MAX {
		n = defs.NAME_MAX
	}
	copy(dst[:n], r.Name)
	dst[defs.NAME_MAX+1] = uint8(r.Type)
}

// Decode reads a Record out of the first Size bytes of src.
func Decode(src []byte) Record {
	name := ustr.MkUstrSlice(src[:defs.NAME_MAX+1])
	return Record{Name: name, Type: defs.Ftype_t(src[defs.NAME_MAX+1])}
}
