// Package file provides a backend.Storage implementation backed by a host
// file, e.g. a disk image on the local filesystem or an actual block
// device such as /dev/sda.
package file

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/blockkit/unixfs/backend"
)

type rawBackend struct {
	storage  fs.File
	readOnly bool
}

// New creates a backend.Storage from a provided fs.File.
func New(f fs.File, readOnly bool) backend.Storage {
	return rawBackend{
		storage:  f,
		readOnly: readOnly,
	}
}

// OpenFromPath creates a backend.Storage from a path to a device or image.
// Should pass a path to a block device e.g. /dev/sda or a path to a file
// /tmp/foo.img. The provided device/file must exist at the time you call
// OpenFromPath().
func OpenFromPath(pathName string, readOnly bool) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass device of file name")
	}

	if _, err := os.Stat(pathName); os.IsNotExist(err) {
		return nil, fmt.Errorf("provided device/file %s does not exist", pathName)
	}

	openMode := os.O_RDONLY

	if !readOnly {
		openMode |= os.O_RDWR
	}

	f, err := os.OpenFile(pathName, openMode, 0o600)
	if err != nil {
		return nil, fmt.Errorf("could not open device %s with mode %v: %w", pathName, openMode, err)
	}

	return rawBackend{
		storage:  f,
		readOnly: readOnly,
	}, nil
}

// CreateFromPath creates a backend.Storage from a path to an image file of
// the given size, zero-filled. Should pass a path to a file /tmp/foo.img.
// The provided file must not exist at the time you call CreateFromPath().
func CreateFromPath(pathName string, size int64) (backend.Storage, error) {
	if pathName == "" {
		return nil, errors.New("must pass device name")
	}
	if size <= 0 {
		return nil, errors.New("must pass valid device size to create")
	}
	f, err := os.OpenFile(pathName, os.O_RDWR|os.O_EXCL|os.O_CREATE, 0o666)
	if err != nil {
		return nil, fmt.Errorf("could not create device %s: %w", pathName, err)
	}
	err = f.Truncate(size)
	if err != nil {
		return nil, fmt.Errorf("could not expand device %s to size %d: %w", pathName, size, err)
	}

	return rawBackend{
		storage:  f,
		readOnly: false,
	}, nil
}

// backend.Storage interface guard
var _ backend.Storage = (*rawBackend)(nil)

// Sys returns the OS-specific file for ioctl/fsync calls via fd.
func (f rawBackend) Sys() (*os.File, error) {
	if osFile, ok := f.storage.(*os.File); ok {
		return osFile, nil
	}
	return nil, backend.ErrNotSuitable
}

// Writable returns a handle for read-write operations. Every WriteAt
// through it is followed by a platform fsync, so a completed write is
// acknowledged only once the host has durably accepted it.
func (f rawBackend) Writable() (backend.WritableFile, error) {
	rwFile, ok := f.storage.(backend.WritableFile)
	if !ok {
		return nil, backend.ErrNotSuitable
	}
	if f.readOnly {
		return nil, backend.ErrIncorrectOpenMode
	}
	osFile, _ := f.storage.(*os.File)
	return syncingWritable{underlying: rwFile, osFile: osFile}, nil
}

func (f rawBackend) Stat() (fs.FileInfo, error) {
	return f.storage.Stat()
}

func (f rawBackend) Read(b []byte) (int, error) {
	return f.storage.Read(b)
}

func (f rawBackend) Close() error {
	return f.storage.Close()
}

func (f rawBackend) ReadAt(p []byte, off int64) (n int, err error) {
	if readerAt, ok := f.storage.(io.ReaderAt); ok {
		return readerAt.ReadAt(p, off)
	}
	return -1, backend.ErrNotSuitable
}

func (f rawBackend) Seek(offset int64, whence int) (int64, error) {
	if seeker, ok := f.storage.(io.Seeker); ok {
		return seeker.Seek(offset, whence)
	}
	return -1, backend.ErrNotSuitable
}

// syncingWritable wraps a backend.WritableFile and flushes every write to
// the host immediately, so the caller never observes a write as complete
// before the host has it.
type syncingWritable struct {
	underlying backend.WritableFile
	osFile     *os.File
}

var _ backend.WritableFile = syncingWritable{}

func (w syncingWritable) Stat() (fs.FileInfo, error) { return w.underlying.Stat() }
func (w syncingWritable) Read(b []byte) (int, error) { return w.underlying.Read(b) }
func (w syncingWritable) Close() error               { return w.underlying.Close() }
func (w syncingWritable) ReadAt(p []byte, off int64) (int, error) {
	return w.underlying.ReadAt(p, off)
}

func (w syncingWritable) Seek(offset int64, whence int) (int64, error) {
	return w.underlying.Seek(offset, whence)
}

func (w syncingWritable) WriteAt(p []byte, off int64) (int, error) {
	n, err := w.underlying.WriteAt(p, off)
	if err != nil {
		return n, err
	}
	if syncErr := fsyncFile(w.osFile); syncErr != nil {
		return n, fmt.Errorf("write acknowledged but fsync failed: %w", syncErr)
	}
	return n, nil
}
