package file

import (
	"bytes"
	"path/filepath"
	"testing"

	"github.com/blockkit/unixfs/backend"
)

func TestCreateFromPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image.img")
	storage, err := CreateFromPath(path, 8192)
	if err != nil {
		t.Fatalf("CreateFromPath: %v", err)
	}
	defer storage.Close()

	info, err := storage.Stat()
	if err != nil {
		t.Fatal(err)
	}
	if info.Size() != 8192 {
		t.Errorf("image size = %d, expected 8192", info.Size())
	}

	// refuses to clobber an existing file
	if _, err := CreateFromPath(path, 8192); err == nil {
		t.Errorf("CreateFromPath over an existing file should fail")
	}
	if _, err := CreateFromPath(path, 0); err == nil {
		t.Errorf("CreateFromPath with zero size should fail")
	}
	if _, err := CreateFromPath("", 8192); err == nil {
		t.Errorf("CreateFromPath with empty path should fail")
	}
}

func TestOpenFromPath(t *testing.T) {
	if _, err := OpenFromPath(filepath.Join(t.TempDir(), "missing.img"), false); err == nil {
		t.Errorf("OpenFromPath on a missing file should fail")
	}
	if _, err := OpenFromPath("", false); err == nil {
		t.Errorf("OpenFromPath with empty path should fail")
	}
}

func TestWritableRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rw.img")
	storage, err := CreateFromPath(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer storage.Close()

	w, err := storage.Writable()
	if err != nil {
		t.Fatalf("Writable: %v", err)
	}
	payload := []byte("written through the backend")
	if _, err := w.WriteAt(payload, 100); err != nil {
		t.Fatalf("WriteAt: %v", err)
	}
	got := make([]byte, len(payload))
	if _, err := storage.ReadAt(got, 100); err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("read back %q, expected %q", got, payload)
	}
}

func TestReadOnlyRefusesWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ro.img")
	storage, err := CreateFromPath(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	_ = storage.Close()

	reopened, err := OpenFromPath(path, true)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if _, err := reopened.Writable(); err != backend.ErrIncorrectOpenMode {
		t.Errorf("Writable on a read-only backend = %v, expected ErrIncorrectOpenMode", err)
	}
}

func TestSysReturnsOSFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sys.img")
	storage, err := CreateFromPath(path, 4096)
	if err != nil {
		t.Fatal(err)
	}
	defer storage.Close()
	osFile, err := storage.Sys()
	if err != nil {
		t.Fatalf("Sys: %v", err)
	}
	if osFile == nil {
		t.Errorf("Sys returned a nil *os.File for a path-backed storage")
	}
}
