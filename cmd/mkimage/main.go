// Command mkimage builds a bootable FAT12 disk image from a host
// skeleton directory, the hosted-build counterpart to the teacher's
// mkfs: that tool walks a skeleton directory with filepath.WalkDir and
// copies each file into a freshly created on-disk filesystem; mkimage
// walks the same way but writes a flat-root FAT12 volume wrapped in an
// MBR partition table, the format vfsmbr/vfsfat actually mount at boot.
// Subdirectories in the skeleton are rejected rather than silently
// flattened, since a 16-entry root directory with no subdirectory
// support (see fat.go) has no way to represent one.
package main

import (
	"fmt"
	"os"
	"path/filepath"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Fprintln(os.Stderr, "usage: mkimage <skeleton dir> <output image>")
		os.Exit(2)
	}
	skelDir, outPath := os.Args[1], os.Args[2]

	files, err := readSkeleton(skelDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}

	img, err := BuildImage(files)
	if err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: %v\n", err)
		os.Exit(1)
	}

	if err := os.WriteFile(outPath, img, 0644); err != nil {
		fmt.Fprintf(os.Stderr, "mkimage: writing %s: %v\n", outPath, err)
		os.Exit(1)
	}
}

// readSkeleton walks skelDir the way the teacher's addfiles walks its
// own skeleton tree, collecting each regular file's content keyed by
// its base name. Nested directories are rejected: this volume format
// has no subdirectory entries to put them in.
func readSkeleton(skelDir string) (map[string][]byte, error) {
	files := make(map[string][]byte)
	err := filepath.WalkDir(skelDir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if path == skelDir {
			return nil
		}
		if d.IsDir() {
			return fmt.Errorf("%s: subdirectories are not supported by this image format", path)
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		files[d.Name()] = data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", skelDir, err)
	}
	return files, nil
}
