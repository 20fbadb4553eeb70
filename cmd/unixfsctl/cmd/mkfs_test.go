package cmd

import (
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/ufs"
)

// runCLI drives the real cobra command tree, so flag parsing and viper
// binding are exercised, not just the library underneath.
func runCLI(t *testing.T, args ...string) error {
	t.Helper()
	log.SetOutput(io.Discard)
	rootCmd.SetArgs(args)
	return rootCmd.Execute()
}

func TestMkfsCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cli.img")
	if err := runCLI(t, "mkfs", "--image", path, "--blocks", "16", "--inodes", "16"); err != nil {
		t.Fatalf("mkfs: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat image: %v", err)
	}
	if info.Size() != 16*blockdev.BlockSize {
		t.Errorf("image size = %d, expected %d", info.Size(), 16*blockdev.BlockSize)
	}

	// the flag-bound geometry must round-trip through a real mount
	storage, err := file.OpenFromPath(path, false)
	if err != nil {
		t.Fatalf("reopening image: %v", err)
	}
	defer func() { _ = storage.Close() }()
	fsys, err := ufs.Mount(storage, log)
	if err != nil {
		t.Fatalf("mounting formatted image: %v", err)
	}
	root, err := fsys.RootInode()
	if err != nil {
		t.Fatal(err)
	}
	if root.Kind() != ufs.KindDirectory || root.Number() != ufs.RootInodeNum {
		t.Errorf("root inode = number %d kind %v", root.Number(), root.Kind())
	}
}

func TestMkfsCommandErrors(t *testing.T) {
	existing := filepath.Join(t.TempDir(), "taken.img")
	if err := os.WriteFile(existing, []byte("already here"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name string
		args []string
	}{
		{"missing image flag", []string{"mkfs", "--image", ""}},
		{"existing image", []string{"mkfs", "--image", existing}},
		{"volume too small for metadata", []string{"mkfs", "--image", filepath.Join(t.TempDir(), "tiny.img"), "--blocks", "2", "--inodes", "16"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := runCLI(t, tt.args...); err == nil {
				t.Errorf("mkfs %v should fail", tt.args[1:])
			}
		})
	}
}
