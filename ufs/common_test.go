package ufs

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/blockkit/unixfs/backend"
	"github.com/blockkit/unixfs/backend/file"
	"github.com/blockkit/unixfs/blockdev"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

// testImage creates a fresh zero-filled image file of numBlocks blocks in a
// per-test temp dir and returns its storage plus the path for reopening.
func testImage(t *testing.T, numBlocks uint32) (backend.Storage, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.img")
	storage, err := file.CreateFromPath(path, int64(numBlocks)*blockdev.BlockSize)
	if err != nil {
		t.Fatalf("creating image: %v", err)
	}
	t.Cleanup(func() { _ = storage.Close() })
	return storage, path
}

func testFS(t *testing.T, numBlocks, numInodes uint32) *FileSystem {
	t.Helper()
	storage, _ := testImage(t, numBlocks)
	fs, err := Mkfs(storage, numBlocks, numInodes, testLogger())
	if err != nil {
		t.Fatalf("mkfs: %v", err)
	}
	return fs
}

func countAllocatedData(t *testing.T, fs *FileSystem) int {
	t.Helper()
	count := 0
	for i := uint32(0); i < fs.sb.layout.dataRegionLen; i++ {
		set, err := fs.sb.dataBitmap.IsSet(int(i))
		if err != nil {
			t.Fatalf("IsSet(%d): %v", i, err)
		}
		if set {
			count++
		}
	}
	return count
}
