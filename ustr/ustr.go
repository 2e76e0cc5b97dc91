// Package ustr implements the kernel's path/name string type: a byte slice
// that avoids the Go string allocator on the hottest VFS path-resolution
// loop (no conversions in or out of native strings except at the edges).
package ustr

// Ustr represents an immutable path or name used by the kernel.
type Ustr []uint8

// Isdot reports whether the string equals ".".
func (us Ustr) Isdot() bool {
	return len(us) == 1 && us[0] == '.'
}

// Isdotdot reports whether the string equals "..".
func (us Ustr) Isdotdot() bool {
	return len(us) == 2 && us[0] == '.' && us[1] == '.'
}

// Eq compares two Ustr values byte for byte.
func (us Ustr) Eq(s Ustr) bool {
	if len(us) != len(s) {
		return false
	}
	for i, v := range us {
		if v != s[i] {
			return false
		}
	}
	return true
}

// MkUstr returns an empty Ustr.
func MkUstr() Ustr {
	return Ustr{}
}

// MkUstrRoot returns a Ustr for "/".
func MkUstrRoot() Ustr {
	return Ustr("/")
}

// DotDot is a reusable Ustr containing "..".
var DotDot = Ustr{'.', '.'}

// MkUstrSlice truncates buf at its first NUL byte.
func MkUstrSlice(buf []uint8) Ustr {
	for i := 0; i < len(buf); i++ {
		if buf[i] == 0 {
			return buf[:i]
		}
	}
	return buf
}

// Extend appends '/' and p to us and returns the new path.
func (us Ustr) Extend(p Ustr) Ustr {
	tmp := make(Ustr, len(us))
	copy(tmp, us)
	r := append(tmp, '/')
	return append(r, p...)
}

// ExtendStr is Extend for a native string component.
func (us Ustr) ExtendStr(p string) Ustr {
	return us.Extend(Ustr(p))
}

// IsAbsolute reports whether the path begins with '/'.
func (us Ustr) IsAbsolute() bool {
	return len(us) > 0 && us[0] == '/'
}

// IndexByte returns the index of b in us, or -1.
func (us Ustr) IndexByte(b uint8) int {
	for i, v := range us {
		if v == b {
			return i
		}
	}
	return -1
}

// String converts the Ustr to a native string.
func (us Ustr) String() string {
	return string(us)
}

// Tokenize splits an absolute or relative path into its non-empty
// components, collapsing repeated slashes, per spec.md §4.8 step 2.
func Tokenize(p Ustr) []Ustr {
	var toks []Ustr
	start := -1
	for i := 0; i <= len(p); i++ {
		if i < len(p) && p[i] != '/' {
			if start < 0 {
				start = i
			}
			continue
		}
		if start >= 0 {
			toks = append(toks, p[start:i])
			start = -1
		}
	}
	return toks
}

// Canonicalize resolves "." and ".." components and collapses repeated
// slashes, returning an absolute path.
func Canonicalize(p Ustr) Ustr {
	toks := Tokenize(p)
	stack := make([]Ustr, 0, len(toks))
	for _, t := range toks {
		switch {
		case t.Isdot():
			continue
		case t.Isdotdot():
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}
		default:
			stack = append(stack, t)
		}
	}
	out := Ustr{'/'}
	for i, t := range stack {
		if i > 0 {
			out = append(out, '/')
		}
		out = append(out, t...)
	}
	return out
}
