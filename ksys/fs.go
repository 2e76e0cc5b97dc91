package ksys

import (
	"nyxkernel/defs"
	"nyxkernel/dirent"
	"nyxkernel/fd"
	"nyxkernel/proc"
	"nyxkernel/stat"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

// resolvePath copies a NUL-terminated path string in from upath and
// canonicalizes it against p's cwd if it is relative.
func (d *Dispatcher) resolvePath(p *proc.Process, upath uint64) (ustr.Ustr, defs.Err_t) {
	raw, err := CopyInString(p.AS, upath, defs.PATH_MAX)
	if err != 0 {
		return nil, err
	}
	if raw.IsAbsolute() {
		return ustr.Canonicalize(raw), 0
	}
	if p.Cwd == nil {
		return nil, defs.EINVAL
	}
	return p.Cwd.Canonicalpath(raw), 0
}

func (d *Dispatcher) sysRead(p *proc.Process, ufd, ubuf, n uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	if h, ok := f.Fops.(*vfs.Handle); ok {
		if h.Cache.Get(h.Node).Type() == defs.T_DIR {
			return errVal(defs.EISDIR)
		}
	}
	buf := make([]byte, n)
	nr, err := f.Fops.Read(buf)
	if err != 0 {
		return errVal(err)
	}
	if cerr := CopyToUser(p.AS, ubuf, buf[:nr]); cerr != 0 {
		return errVal(cerr)
	}
	return int64(nr)
}

func (d *Dispatcher) sysWrite(p *proc.Process, ufd, ubuf, n uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	buf, err := CopyToKernel(p.AS, ubuf, int(n))
	if err != 0 {
		return errVal(err)
	}
	nw, werr := f.Fops.Write(buf)
	if werr != 0 {
		return errVal(werr)
	}
	return int64(nw)
}

func (d *Dispatcher) sysOpen(p *proc.Process, upath, flags, mode uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}

	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status == vfs.StatusFound {
		n := d.Cache.Get(idx)
		if flags&defs.O_EXCL != 0 && flags&defs.O_CREAT != 0 {
			n.RUnlock()
			return errVal(defs.EEXIST)
		}
		if flags&defs.O_DIRECTORY != 0 && n.Type() != defs.T_DIR {
			n.RUnlock()
			return errVal(defs.ENOTDIR)
		}
		r, w, _ := vfs.Access(n.Mode, n.Uid, n.Gid, p.Uid)
		if flags&defs.O_WRITE != 0 && !w || flags&defs.O_READ != 0 && !r {
			n.RUnlock()
			return errVal(defs.EACCES)
		}
		n.RUnlock()
		return d.finishOpen(p, idx, flags)
	}
	if status != vfs.StatusOneLevelAway {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}

	// ONE_LEVEL_AWAY: idx is the parent, write-locked.
	if flags&defs.O_CREAT == 0 {
		d.Cache.Get(idx).Unlock()
		return errVal(defs.ENOENT)
	}
	parent := d.Cache.Get(idx)
	toks := ustr.Tokenize(path)
	last := toks[len(toks)-1]
	vt := parent.VTable()
	if vt == nil {
		parent.Unlock()
		return errVal(defs.EROFS)
	}
	newIdx, cerr := vt.CreateChild(d.Cache, parent, last, defs.T_REGULAR, p.Uid, p.Uid, uint32(mode))
	if cerr != 0 {
		parent.Unlock()
		return errVal(cerr)
	}
	vfs.LinkChild(d.Cache, parent, newIdx, d.Cache.Get(newIdx), idx)
	parent.Unlock()
	return d.finishOpen(p, newIdx, flags)
}

func (d *Dispatcher) finishOpen(p *proc.Process, idx vfs.NodeIndex, flags uint64) int64 {
	h, err := vfs.OpenHandle(d.Cache, idx)
	if err != 0 {
		return errVal(err)
	}
	perms := 0
	if flags&defs.O_READ != 0 {
		perms |= fd.FD_READ
	}
	if flags&defs.O_WRITE != 0 {
		perms |= fd.FD_WRITE
	}
	n := p.AddFd(&fd.Fd_t{Fops: h, Perms: perms})
	return int64(n)
}

func (d *Dispatcher) sysClose(p *proc.Process, ufd uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	return errVal(f.Fops.Close())
}

func (d *Dispatcher) statNode(n *vfs.Node) []byte {
	var st stat.Stat_t
	vfs.Stat(n, &st)
	return st.Encode()
}

func (d *Dispatcher) sysStat(p *proc.Process, upath, ust uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	n := d.Cache.Get(idx)
	buf := d.statNode(n)
	n.RUnlock()
	if cerr := CopyToUser(p.AS, ust, buf); cerr != 0 {
		return errVal(cerr)
	}
	return 0
}

func (d *Dispatcher) sysFstat(p *proc.Process, ufd, ust uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	n := d.Cache.Get(h.Node)
	buf := d.statNode(n)
	if cerr := CopyToUser(p.AS, ust, buf); cerr != 0 {
		return errVal(cerr)
	}
	return 0
}

func (d *Dispatcher) sysLseek(p *proc.Process, ufd, off, whence uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	no, err := f.Fops.Seek(int(int64(off)), int(whence))
	if err != 0 {
		return errVal(err)
	}
	return int64(no)
}

func (d *Dispatcher) sysGetdents(p *proc.Process, ufd, ubuf, n uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	entries := vfs.Readdir(d.Cache, h.Node)
	max := int(n) / dirent.Size
	if max > len(entries) {
		max = len(entries)
	}
	out := make([]byte, max*dirent.Size)
	for i := 0; i < max; i++ {
		dirent.Encode(dirent.Record{Name: entries[i].Name, Type: entries[i].Type}, out[i*dirent.Size:(i+1)*dirent.Size])
	}
	if cerr := CopyToUser(p.AS, ubuf, out); cerr != 0 {
		return errVal(cerr)
	}
	return int64(len(out))
}

func (d *Dispatcher) sysMkdir(p *proc.Process, upath, mode uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status == vfs.StatusFound {
		d.Cache.Get(idx).RUnlock()
		return errVal(defs.EEXIST)
	}
	if status != vfs.StatusOneLevelAway {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	parent := d.Cache.Get(idx)
	toks := ustr.Tokenize(path)
	last := toks[len(toks)-1]
	vt := parent.VTable()
	if vt == nil {
		parent.Unlock()
		return errVal(defs.EROFS)
	}
	newIdx, cerr := vt.CreateChild(d.Cache, parent, last, defs.T_DIR, p.Uid, p.Uid, uint32(mode))
	if cerr != 0 {
		parent.Unlock()
		return errVal(cerr)
	}
	vfs.LinkChild(d.Cache, parent, newIdx, d.Cache.Get(newIdx), idx)
	parent.Unlock()
	return 0
}

func (d *Dispatcher) sysRmdir(p *proc.Process, upath uint64) int64 {
	return d.unlinkPath(p, upath, defs.T_DIR)
}

func (d *Dispatcher) sysUnlink(p *proc.Process, upath uint64) int64 {
	return d.unlinkPath(p, upath, defs.T_UNKNOWN)
}

// unlinkPath resolves path and removes it. wantType T_DIR (RMDIR)
// rejects a non-directory with ENOTDIR; wantType T_UNKNOWN (UNLINK)
// rejects a directory with EISDIR.
func (d *Dispatcher) unlinkPath(p *proc.Process, upath uint64, wantType defs.Ftype_t) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	n := d.Cache.Get(idx)
	typ := n.Type()
	n.RUnlock()
	if wantType == defs.T_DIR && typ != defs.T_DIR {
		return errVal(defs.ENOTDIR)
	}
	if wantType == defs.T_UNKNOWN && typ == defs.T_DIR {
		return errVal(defs.EISDIR)
	}
	if typ == defs.T_DIR && len(vfs.Readdir(d.Cache, idx)) > 0 {
		return errVal(defs.ENOTEMPTY)
	}
	return errVal(vfs.Unlink(d.Cache, idx))
}

func (d *Dispatcher) sysRename(p *proc.Process, uold, unew uint64) int64 {
	oldPath, err := d.resolvePath(p, uold)
	if err != 0 {
		return errVal(err)
	}
	newPath, err := d.resolvePath(p, unew)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, oldPath)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	d.Cache.Get(idx).RUnlock()

	newParentIdx, status, rerr := vfs.RequestNode(d.Cache, newPath)
	if status == vfs.StatusFound {
		d.Cache.Get(newParentIdx).RUnlock()
		return errVal(defs.EEXIST)
	}
	if status != vfs.StatusOneLevelAway {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	toks := ustr.Tokenize(newPath)
	last := toks[len(toks)-1]
	err2 := vfs.Rename(d.Cache, idx, newParentIdx, last)
	d.Cache.Get(newParentIdx).Unlock()
	return errVal(err2)
}

func (d *Dispatcher) sysChmod(p *proc.Process, upath, mode uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	n := d.Cache.Get(idx)
	n.Mode = uint32(mode)
	n.RUnlock()
	return 0
}

func (d *Dispatcher) sysFchmod(p *proc.Process, ufd, mode uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	d.Cache.Get(h.Node).Mode = uint32(mode)
	return 0
}

func (d *Dispatcher) sysChown(p *proc.Process, upath, uid, gid uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	n := d.Cache.Get(idx)
	n.Uid, n.Gid = uint32(uid), uint32(gid)
	n.RUnlock()
	return 0
}

func (d *Dispatcher) sysFchown(p *proc.Process, ufd, uid, gid uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	n := d.Cache.Get(h.Node)
	n.Uid, n.Gid = uint32(uid), uint32(gid)
	return 0
}

func (d *Dispatcher) sysGetcwd(p *proc.Process, ubuf, n uint64) int64 {
	if p.Cwd == nil {
		return errVal(defs.EINVAL)
	}
	path := p.Cwd.Path
	if uint64(len(path))+1 > n {
		return errVal(defs.ERANGE)
	}
	buf := append(append(ustr.Ustr{}, path...), 0)
	if cerr := CopyToUser(p.AS, ubuf, buf); cerr != 0 {
		return errVal(cerr)
	}
	return int64(len(buf))
}

func (d *Dispatcher) sysChdir(p *proc.Process, upath uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	n := d.Cache.Get(idx)
	typ := n.Type()
	n.RUnlock()
	if typ != defs.T_DIR {
		return errVal(defs.ENOTDIR)
	}
	if p.Cwd == nil {
		return errVal(defs.EINVAL)
	}
	p.Cwd.Lock()
	p.Cwd.Path = path
	p.Cwd.Unlock()
	return 0
}

func (d *Dispatcher) sysFchdir(p *proc.Process, ufd uint64) int64 {
	f, ok := p.GetFd(int(ufd))
	if !ok || f == nil {
		return errVal(defs.EBADF)
	}
	h, ok := f.Fops.(*vfs.Handle)
	if !ok {
		return errVal(defs.EINVAL)
	}
	n := d.Cache.Get(h.Node)
	if n.Type() != defs.T_DIR {
		return errVal(defs.ENOTDIR)
	}
	return errVal(defs.ENOSYS) // reconstructing an absolute path from a bare node index needs a name walk upward, not yet modeled
}

func (d *Dispatcher) sysSymlink(p *proc.Process, utarget, upath uint64) int64 {
	target, err := CopyInString(p.AS, utarget, defs.PATH_MAX)
	if err != 0 {
		return errVal(err)
	}
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusOneLevelAway {
		if status == vfs.StatusFound {
			d.Cache.Get(idx).RUnlock()
			return errVal(defs.EEXIST)
		}
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	parent := d.Cache.Get(idx)
	toks := ustr.Tokenize(path)
	last := toks[len(toks)-1]
	vt := parent.VTable()
	if vt == nil {
		parent.Unlock()
		return errVal(defs.EROFS)
	}
	newIdx, cerr := vt.CreateChild(d.Cache, parent, last, defs.T_SYMLINK, p.Uid, p.Uid, defs.S_IRWXU)
	if cerr != 0 {
		parent.Unlock()
		return errVal(cerr)
	}
	newNode := d.Cache.Get(newIdx)
	vfs.LinkChild(d.Cache, parent, newIdx, newNode, idx)
	parent.Unlock()

	h, herr := vfs.OpenHandle(d.Cache, newIdx)
	if herr != 0 {
		return errVal(herr)
	}
	_, werr := h.Write(target)
	h.Close()
	if werr != 0 {
		return errVal(werr)
	}
	return 0
}

func (d *Dispatcher) sysReadlink(p *proc.Process, upath, ubuf, n uint64) int64 {
	path, err := d.resolvePath(p, upath)
	if err != 0 {
		return errVal(err)
	}
	idx, status, rerr := vfs.RequestNode(d.Cache, path)
	if status != vfs.StatusFound {
		if rerr == 0 {
			rerr = defs.ENOENT
		}
		return errVal(rerr)
	}
	node := d.Cache.Get(idx)
	typ := node.Type()
	node.RUnlock()
	if typ != defs.T_SYMLINK {
		return errVal(defs.EINVAL)
	}
	h, herr := vfs.OpenHandle(d.Cache, idx)
	if herr != 0 {
		return errVal(herr)
	}
	buf := make([]byte, n)
	nr, rerr2 := h.Read(buf)
	h.Close()
	if rerr2 != 0 {
		return errVal(rerr2)
	}
	if cerr := CopyToUser(p.AS, ubuf, buf[:nr]); cerr != 0 {
		return errVal(cerr)
	}
	return int64(nr)
}
