package vfsfat

import (
	"encoding/binary"
	"testing"

	"nyxkernel/blockio"
	"nyxkernel/defs"
	"nyxkernel/ustr"
	"nyxkernel/vfs"
)

const sectorSz = 512

func padField(s string, n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = ' '
	}
	copy(b, s)
	return b
}

func putFATDirEntry(buf []byte, off int, name, ext string, attr byte, firstCluster, fileSize uint32) {
	rec := buf[off : off+dirEntrySize]
	copy(rec[0:8], padField(name, 8))
	copy(rec[8:11], padField(ext, 3))
	rec[11] = attr
	binary.LittleEndian.PutUint16(rec[20:22], uint16(firstCluster>>16))
	binary.LittleEndian.PutUint16(rec[26:28], uint16(firstCluster&0xFFFF))
	binary.LittleEndian.PutUint32(rec[28:32], fileSize)
}

// setFAT12Entry writes a 12-bit FAT entry the same way nextCluster's
// odd/even shift reads it, so the two are exact inverses regardless of
// write order (the even and odd halves of a shared byte are disjoint
// nibbles).
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

// buildFAT12Image synthesizes a minimal FAT12 volume: root dir has
// HELLO.TXT (cluster 2) and SUBDIR (cluster 3); SUBDIR contains
// NESTED.TXT (cluster 4). Layout: sector 0 boot sector, sector 1 FAT,
// sector 2 root directory, sectors 3/4/5 data clusters 2/3/4.
func buildFAT12Image(helloData, nestedData []byte) []byte {
	const (
		reservedSectors = 1
		numFATs         = 1
		rootEntryCount  = 16
		fatSize16       = 1
		rootDirSectors  = 1 // (16*32+511)/512
		totalClusters   = 10
		totalSectors    = reservedSectors + numFATs*fatSize16 + rootDirSectors + totalClusters
	)
	img := make([]byte, totalSectors*sectorSz)

	boot := img[0:sectorSz]
	binary.LittleEndian.PutUint16(boot[11:13], sectorSz)
	boot[13] = 1 // sectors per cluster
	binary.LittleEndian.PutUint16(boot[14:16], reservedSectors)
	boot[16] = numFATs
	binary.LittleEndian.PutUint16(boot[17:19], rootEntryCount)
	binary.LittleEndian.PutUint16(boot[19:21], totalSectors)
	binary.LittleEndian.PutUint16(boot[22:24], fatSize16)
	binary.LittleEndian.PutUint16(boot[bootSigOffset:], bootSig)

	fat := img[1*sectorSz : 2*sectorSz]
	setFAT12Entry(fat, 2, 0xFFF)
	setFAT12Entry(fat, 3, 0xFFF)
	setFAT12Entry(fat, 4, 0xFFF)

	root := img[2*sectorSz : 3*sectorSz]
	putFATDirEntry(root, 0, "HELLO", "TXT", 0x20, 2, uint32(len(helloData)))
	putFATDirEntry(root, dirEntrySize, "SUBDIR", "", attrDirectory, 3, 0)

	helloCluster := img[3*sectorSz : 4*sectorSz]
	copy(helloCluster, helloData)

	subdirCluster := img[4*sectorSz : 5*sectorSz]
	putFATDirEntry(subdirCluster, 0, "NESTED", "TXT", 0x20, 4, uint32(len(nestedData)))

	nestedCluster := img[5*sectorSz : 6*sectorSz]
	copy(nestedCluster, nestedData)

	return img
}

func TestMountDetectsFAT12(t *testing.T) {
	img := buildFAT12Image([]byte("hello world"), []byte("nest!"))
	d := blockio.NewMemDisk(img, sectorSz)

	c, err := Mount(d, 0, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	root := c.Get(vfs.RootIndex)
	fs := root.VTable().(*FS)
	if fs.typ != TypeFAT12 {
		t.Fatalf("typ = %v, want TypeFAT12", fs.typ)
	}
}

func TestLoadNodeFindsFileAndSubdirectory(t *testing.T) {
	data := []byte("hello world")
	nested := []byte("nest!")
	img := buildFAT12Image(data, nested)
	d := blockio.NewMemDisk(img, sectorSz)

	c, err := Mount(d, 0, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	idx, status, rerr := vfs.RequestNode(c, ustr.Ustr("/HELLO.TXT"))
	if rerr != 0 || status != vfs.StatusFound {
		t.Fatalf("RequestNode /HELLO.TXT = %d, %v, %v", idx, status, rerr)
	}
	n := c.Get(idx)
	if n.Type() != defs.T_REGULAR {
		t.Fatalf("type = %v, want T_REGULAR", n.Type())
	}
	n.RUnlock()

	h, herr := vfs.OpenHandle(c, idx)
	if herr != 0 {
		t.Fatalf("OpenHandle: %v", herr)
	}
	buf := make([]byte, len(data))
	nr, rerr2 := h.Read(buf)
	if rerr2 != 0 || nr != len(data) || string(buf) != string(data) {
		t.Fatalf("Read = %d, %v, %q", nr, rerr2, buf)
	}
	if cerr := h.Close(); cerr != 0 {
		t.Fatalf("Close: %v", cerr)
	}

	subIdx, subStatus, subErr := vfs.RequestNode(c, ustr.Ustr("/SUBDIR"))
	if subErr != 0 || subStatus != vfs.StatusFound {
		t.Fatalf("RequestNode /SUBDIR = %d, %v, %v", subIdx, subStatus, subErr)
	}
	sub := c.Get(subIdx)
	if sub.Type() != defs.T_DIR {
		t.Fatalf("type = %v, want T_DIR", sub.Type())
	}
	sub.RUnlock()

	nestedIdx, nestedStatus, nestedErr := vfs.RequestNode(c, ustr.Ustr("/SUBDIR/NESTED.TXT"))
	if nestedErr != 0 || nestedStatus != vfs.StatusFound {
		t.Fatalf("RequestNode /SUBDIR/NESTED.TXT = %d, %v, %v", nestedIdx, nestedStatus, nestedErr)
	}
	defer c.Get(nestedIdx).RUnlock()

	h2, herr2 := vfs.OpenHandle(c, nestedIdx)
	if herr2 != 0 {
		t.Fatalf("OpenHandle nested: %v", herr2)
	}
	buf2 := make([]byte, len(nested))
	nr2, rerr3 := h2.Read(buf2)
	if rerr3 != 0 || nr2 != len(nested) || string(buf2) != string(nested) {
		t.Fatalf("Read nested = %d, %v, %q", nr2, rerr3, buf2)
	}
	h2.Close()
}

func TestLoadNodeMissingReturnsOneLevelAway(t *testing.T) {
	img := buildFAT12Image(nil, nil)
	d := blockio.NewMemDisk(img, sectorSz)
	c, err := Mount(d, 0, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}

	idx, status, rerr := vfs.RequestNode(c, ustr.Ustr("/NOPE.TXT"))
	if rerr != 0 {
		t.Fatalf("RequestNode: %v", rerr)
	}
	if status != vfs.StatusOneLevelAway {
		t.Fatalf("status = %v, want StatusOneLevelAway", status)
	}
	c.Get(idx).Unlock()
}

func TestCreateChildAndWriteAreReadOnly(t *testing.T) {
	img := buildFAT12Image(nil, nil)
	d := blockio.NewMemDisk(img, sectorSz)
	c, err := Mount(d, 0, 0, 0, defs.S_IRWXU)
	if err != nil {
		t.Fatalf("Mount: %v", err)
	}
	root := c.Get(vfs.RootIndex)
	fs := root.VTable()
	root.Lock()
	if _, cerr := fs.CreateChild(c, root, ustr.Ustr("NEW.TXT"), defs.T_REGULAR, 0, 0, 0); cerr != defs.EROFS {
		t.Fatalf("CreateChild = %v, want EROFS", cerr)
	}
	root.Unlock()
	if _, werr := fs.Write(&vfs.Handle{Cache: c, Node: vfs.RootIndex}, []byte("x")); werr != defs.EROFS {
		t.Fatalf("Write = %v, want EROFS", werr)
	}
}

func TestDetectTypeFAT16AndFAT32(t *testing.T) {
	fat16 := bpb{
		bytesPerSector: 512, sectorsPerCluster: 1, reservedSectors: 1,
		numFATs: 1, rootEntryCount: 512, fatSize16: 32, totalSectors16: 20000,
	}
	if got := detectType(fat16); got != TypeFAT16 {
		t.Fatalf("detectType(fat16-shaped bpb) = %v, want TypeFAT16", got)
	}

	fat32 := bpb{bytesPerSector: 512, sectorsPerCluster: 8, fatSize16: 0, fatSize32: 1000}
	if got := detectType(fat32); got != TypeFAT32 {
		t.Fatalf("detectType(fat32-shaped bpb) = %v, want TypeFAT32", got)
	}
}

func TestNormalize83JoinsNameAndExtension(t *testing.T) {
	if got := normalize83([]byte("HELLO   TXT")); got != "hello.txt" {
		t.Fatalf("normalize83 = %q, want hello.txt", got)
	}
	if got := normalize83([]byte("README     ")); got != "readme" {
		t.Fatalf("normalize83 = %q, want readme", got)
	}
}
