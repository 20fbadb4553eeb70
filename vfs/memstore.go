package vfs

import (
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/blockkit/unixfs/backend"
)

// memStore is a minimal in-memory backend.Storage backing the trivial
// rootfs the VFS mounts at "/". The rootfs exists only to carry mount
// points as directory entries; no real image ever uses memStore.
type memStore struct {
	buf []byte
}

func newMemStore(size int64) *memStore {
	return &memStore{buf: make([]byte, size)}
}

var _ backend.Storage = (*memStore)(nil)

func (m *memStore) Stat() (fs.FileInfo, error) { return memInfo{size: int64(len(m.buf))}, nil }
func (m *memStore) Read(b []byte) (int, error) { return copy(b, m.buf), nil }
func (m *memStore) Close() error               { return nil }

func (m *memStore) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 || off >= int64(len(m.buf)) {
		return 0, io.EOF
	}
	n := copy(p, m.buf[off:])
	return n, nil
}

func (m *memStore) Seek(offset int64, whence int) (int64, error) { return offset, nil }

func (m *memStore) Sys() (*os.File, error) { return nil, backend.ErrNotSuitable }

func (m *memStore) Writable() (backend.WritableFile, error) { return m, nil }

func (m *memStore) WriteAt(p []byte, off int64) (int, error) {
	if off < 0 || off+int64(len(p)) > int64(len(m.buf)) {
		return 0, io.ErrShortBuffer
	}
	return copy(m.buf[off:], p), nil
}

type memInfo struct{ size int64 }

func (m memInfo) Name() string       { return "rootfs" }
func (m memInfo) Size() int64        { return m.size }
func (m memInfo) Mode() fs.FileMode  { return 0o644 }
func (m memInfo) ModTime() time.Time { return time.Time{} }
func (m memInfo) IsDir() bool        { return false }
func (m memInfo) Sys() any           { return nil }
