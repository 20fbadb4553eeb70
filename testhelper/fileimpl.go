// Package testhelper provides stand-ins for the backend.Storage interface
// so tests can inject I/O failures without needing a real file.
package testhelper

import (
	"fmt"
	"io/fs"
	"os"

	"github.com/blockkit/unixfs/backend"
)

type reader func(b []byte, offset int64) (int, error)
type writer func(b []byte, offset int64) (int, error)

// FileImpl implements backend.Storage with caller-supplied read/write
// behavior, used to exercise the fserrors.ErrIO path deterministically.
type FileImpl struct {
	Reader reader
	Writer writer
}

var _ backend.Storage = (*FileImpl)(nil)

func (f *FileImpl) Stat() (fs.FileInfo, error) {
	return nil, nil
}

func (f *FileImpl) Read(b []byte) (int, error) {
	return f.Reader(b, 0)
}

func (f *FileImpl) Close() error {
	return nil
}

// ReadAt read at a particular offset
func (f *FileImpl) ReadAt(b []byte, offset int64) (int, error) {
	return f.Reader(b, offset)
}

// WriteAt write at a particular offset
func (f *FileImpl) WriteAt(b []byte, offset int64) (int, error) {
	return f.Writer(b, offset)
}

// Seek seek a particular offset - does not actually work
//
//nolint:unused,revive // to implement the interface
func (f *FileImpl) Seek(offset int64, whence int) (int64, error) {
	return 0, fmt.Errorf("FileImpl does not implement Seek()")
}

// Sys never has a backing *os.File.
func (f *FileImpl) Sys() (*os.File, error) {
	return nil, backend.ErrNotSuitable
}

// Writable returns f itself, since it already implements backend.WritableFile.
func (f *FileImpl) Writable() (backend.WritableFile, error) {
	return f, nil
}
