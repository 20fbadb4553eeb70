// Package process implements the per-process file-descriptor table and the
// convenience API that translates user calls into VFS calls through the
// syscall table the process is handed at construction.
package process

import (
	"github.com/blockkit/unixfs/fserrors"
	"github.com/blockkit/unixfs/ufs"
	"github.com/blockkit/unixfs/vfs"
	"github.com/sirupsen/logrus"
)

// MaxFDs is the fixed size of a process's file-descriptor table.
const MaxFDs = 1024

const freeSlot = -1

// FDTable maps small integer file descriptors to open-file-table entries,
// allocating the lowest free slot on open and freeing it on close.
type FDTable struct {
	slots [MaxFDs]int
}

// NewFDTable returns an FDTable with every slot free.
func NewFDTable() *FDTable {
	t := &FDTable{}
	for i := range t.slots {
		t.slots[i] = freeSlot
	}
	return t
}

func (t *FDTable) allocate(ofdID int) (int, error) {
	for i, v := range t.slots {
		if v == freeSlot {
			t.slots[i] = ofdID
			return i, nil
		}
	}
	return 0, fserrors.New(fserrors.KindNoSpace, "allocate", "")
}

func (t *FDTable) resolve(fd int) (int, error) {
	if fd < 0 || fd >= MaxFDs || t.slots[fd] == freeSlot {
		return 0, fserrors.New(fserrors.KindBadFd, "", "")
	}
	return t.slots[fd], nil
}

func (t *FDTable) free(fd int) {
	t.slots[fd] = freeSlot
}

// Process owns a fixed-size FD table and the cwd, and forwards every call
// through the syscall table it was constructed with. cwd is always "/":
// there is no relative path resolution and no chdir.
type Process struct {
	sys vfs.SyscallTable
	fds *FDTable
	cwd string
	log *logrus.Logger
}

// New creates a process bound to the given syscall table.
func New(sys vfs.SyscallTable, log *logrus.Logger) *Process {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Process{sys: sys, fds: NewFDTable(), cwd: "/", log: log}
}

// Open resolves path through the VFS and allocates the lowest free FD for
// the resulting OFD.
func (p *Process) Open(path string, flags int) (int, error) {
	ofdID, err := p.sys.Open(path, flags)
	if err != nil {
		return -1, err
	}
	fd, err := p.fds.allocate(ofdID)
	if err != nil {
		_ = p.sys.Close(ofdID)
		return -1, err
	}
	p.log.WithField("path", path).WithField("fd", fd).Debug("process: open")
	return fd, nil
}

// Close releases fd. Double-close fails with BadFd.
func (p *Process) Close(fd int) error {
	ofdID, err := p.fds.resolve(fd)
	if err != nil {
		return err
	}
	p.fds.free(fd)
	return p.sys.Close(ofdID)
}

// Read reads up to count bytes from fd.
func (p *Process) Read(fd int, count uint32) ([]byte, error) {
	ofdID, err := p.fds.resolve(fd)
	if err != nil {
		return nil, err
	}
	return p.sys.Read(ofdID, count)
}

// Write writes data to fd.
func (p *Process) Write(fd int, data []byte) (uint32, error) {
	ofdID, err := p.fds.resolve(fd)
	if err != nil {
		return 0, err
	}
	return p.sys.Write(ofdID, data)
}

// Seek repositions fd's offset.
func (p *Process) Seek(fd int, offset int64, whence int) (int64, error) {
	ofdID, err := p.fds.resolve(fd)
	if err != nil {
		return 0, err
	}
	return p.sys.Seek(ofdID, offset, whence)
}

// Mkdir creates a directory at path.
func (p *Process) Mkdir(path string) error {
	return p.sys.Mkdir(path)
}

// Stat reports the metadata for path.
func (p *Process) Stat(path string) (vfs.Attr, error) {
	return p.sys.Getattr(path)
}

// ListDir returns the live entries of the directory at path.
func (p *Process) ListDir(path string) ([]ufs.DirEntry, error) {
	return p.sys.Readdir(path)
}
