package vfskfs

import (
	"fmt"
	"testing"

	"nyxkernel/defs"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

func TestCreateChildAndRequestNodeRoundTrip(t *testing.T) {
	c, fs := Mount(0, 0, defs.S_IRWXU)
	root := c.Get(vfs.RootIndex)

	root.Lock()
	idx, err := fs.CreateChild(c, root, ustr.Ustr("note.txt"), defs.T_REGULAR, 0, 0, defs.S_IRUSR|defs.S_IWUSR)
	if err != 0 {
		t.Fatalf("CreateChild: %v", err)
	}
	vfs.LinkChild(c, root, idx, c.Get(idx), vfs.RootIndex)
	root.Unlock()

	h, herr := vfs.OpenHandle(c, idx)
	if herr != 0 {
		t.Fatalf("OpenHandle: %v", herr)
	}
	if _, werr := h.Write([]byte("hello")); werr != 0 {
		t.Fatalf("Write: %v", werr)
	}
	if _, serr := h.Seek(0, defs.SEEK_SET); serr != 0 {
		t.Fatalf("Seek: %v", serr)
	}
	buf := make([]byte, 5)
	nr, rerr := h.Read(buf)
	if rerr != 0 || nr != 5 || string(buf) != "hello" {
		t.Fatalf("Read = %d, %v, %q", nr, rerr, buf)
	}
	h.Close()

	found, status, ferr := vfs.RequestNode(c, ustr.Ustr("/note.txt"))
	if ferr != 0 || status != vfs.StatusFound || found != idx {
		t.Fatalf("RequestNode = %d, %v, %v", found, status, ferr)
	}
	c.Get(found).RUnlock()
}

func TestCreateDeviceFileInvokesCallbackOnRead(t *testing.T) {
	c, fs := Mount(0, 0, defs.S_IRWXU)

	var gotOff []int
	reader := func(n *vfs.Node, off int, buf []byte) (int, defs.Err_t) {
		gotOff = append(gotOff, off)
		s := fmt.Sprintf("pci@%d", off)
		return copy(buf, s), 0
	}

	idx, _, err := fs.CreateDeviceFile(c, vfs.RootIndex, ustr.Ustr("pci0"), 0, 0, defs.S_IRUSR, reader)
	if err != 0 {
		t.Fatalf("CreateDeviceFile: %v", err)
	}

	found, status, ferr := vfs.RequestNode(c, ustr.Ustr("/pci0"))
	if ferr != 0 || status != vfs.StatusFound || found != idx {
		t.Fatalf("RequestNode = %d, %v, %v", found, status, ferr)
	}
	c.Get(found).RUnlock()

	h, herr := vfs.OpenHandle(c, idx)
	if herr != 0 {
		t.Fatalf("OpenHandle: %v", herr)
	}
	buf := make([]byte, 16)
	nr, rerr := h.Read(buf)
	if rerr != 0 || string(buf[:nr]) != "pci@0" {
		t.Fatalf("Read = %d, %v, %q", nr, rerr, buf[:nr])
	}
	h.Close()

	if len(gotOff) != 1 || gotOff[0] != 0 {
		t.Fatalf("reader invoked with offsets %v, want [0]", gotOff)
	}
}

func TestDeviceFileIsReadOnly(t *testing.T) {
	c, fs := Mount(0, 0, defs.S_IRWXU)
	reader := func(n *vfs.Node, off int, buf []byte) (int, defs.Err_t) { return 0, 0 }
	idx, _, err := fs.CreateDeviceFile(c, vfs.RootIndex, ustr.Ustr("ro0"), 0, 0, defs.S_IRUSR, reader)
	if err != 0 {
		t.Fatalf("CreateDeviceFile: %v", err)
	}

	h, herr := vfs.OpenHandle(c, idx)
	if herr != 0 {
		t.Fatalf("OpenHandle: %v", herr)
	}
	if _, werr := h.Write([]byte("x")); werr != defs.ENOSYS {
		t.Fatalf("Write = %v, want ENOSYS", werr)
	}
	if _, serr := h.Seek(0, defs.SEEK_END); serr != defs.ENOSYS {
		t.Fatalf("Seek(SEEK_END) = %v, want ENOSYS", serr)
	}
	h.Close()
}

func TestLoadNodeAlwaysMisses(t *testing.T) {
	c, fs := Mount(0, 0, defs.S_IRWXU)
	root := c.Get(vfs.RootIndex)
	root.RLock()
	_, err := fs.LoadNode(c, root, ustr.Ustr("nope"))
	root.RUnlock()
	if err != defs.ENOENT {
		t.Fatalf("LoadNode = %v, want ENOENT", err)
	}

	idx, status, rerr := vfs.RequestNode(c, ustr.Ustr("/nope"))
	if rerr != 0 {
		t.Fatalf("RequestNode: %v", rerr)
	}
	if status != vfs.StatusOneLevelAway {
		t.Fatalf("status = %v, want StatusOneLevelAway", status)
	}
	c.Get(idx).Unlock()
}

func TestUnloadNodeRemovesState(t *testing.T) {
	c, fs := Mount(0, 0, defs.S_IRWXU)
	root := c.Get(vfs.RootIndex)
	root.Lock()
	idx, err := fs.CreateChild(c, root, ustr.Ustr("tmp"), defs.T_REGULAR, 0, 0, defs.S_IRWXU)
	if err != 0 {
		t.Fatalf("CreateChild: %v", err)
	}
	root.Unlock()

	if uerr := fs.UnloadNode(c.Get(idx)); uerr != 0 {
		t.Fatalf("UnloadNode: %v", uerr)
	}
	if fs.get(idx) != nil {
		t.Fatalf("node state still present after UnloadNode")
	}
}
