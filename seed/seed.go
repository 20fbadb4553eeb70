// Package seed populates a freshly mounted filesystem from a host io/fs.FS
// tree, exercising mkdir / open(O_CREAT) / write end to end without
// hand-typing every file. Used by cmd/unixfsctl seed.
package seed

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"

	"github.com/blockkit/unixfs/process"
)

// excludedNames is host cruft that should never end up inside a seeded
// image.
var excludedNames = map[string]bool{
	".DS_Store": true,
	".git":      true,
}

// CopyTree walks src and recreates every directory and regular file under
// dstRoot inside p, via Mkdir and Open(O_CREAT)/Write. Non-regular files
// (symlinks, devices) are skipped; the filesystem has no link support.
func CopyTree(p *process.Process, src fs.FS, dstRoot string) error {
	return copyDir(p, src, ".", dstRoot)
}

func copyDir(p *process.Process, src fs.FS, srcDir, dstDir string) error {
	entries, err := fs.ReadDir(src, srcDir)
	if err != nil {
		return fmt.Errorf("read dir %s: %w", srcDir, err)
	}
	for _, entry := range entries {
		name := entry.Name()
		if excludedNames[name] {
			continue
		}
		srcPath := name
		if srcDir != "." {
			srcPath = path.Join(srcDir, name)
		}
		dstPath := path.Join(dstDir, name)

		info, err := entry.Info()
		if err != nil {
			return fmt.Errorf("stat %s: %w", srcPath, err)
		}
		if !info.Mode().IsRegular() && !entry.IsDir() {
			continue
		}

		if entry.IsDir() {
			if err := p.Mkdir(dstPath); err != nil {
				return fmt.Errorf("mkdir %s: %w", dstPath, err)
			}
			if err := copyDir(p, src, srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := copyFile(p, src, srcPath, dstPath); err != nil {
			return fmt.Errorf("copy file %s: %w", srcPath, err)
		}
	}
	return nil
}

func copyFile(p *process.Process, src fs.FS, srcPath, dstPath string) error {
	in, err := src.Open(srcPath)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	data, err := io.ReadAll(in)
	if err != nil {
		return err
	}

	fd, err := p.Open(dstPath, os.O_CREATE|os.O_TRUNC|os.O_RDWR)
	if err != nil {
		return err
	}
	defer func() { _ = p.Close(fd) }()

	written := uint32(0)
	for written < uint32(len(data)) {
		n, err := p.Write(fd, data[written:])
		if err != nil {
			return err
		}
		if n == 0 {
			return io.ErrShortWrite
		}
		written += n
	}
	return nil
}
