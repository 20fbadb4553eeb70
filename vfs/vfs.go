// Package vfs implements the dispatcher layer between processes and
// mounted filesystems: path resolution across a mount table, the
// process-wide open-file table, and the syscall table handed to the
// process layer at construction.
package vfs

import (
	"os"
	"sort"
	"strings"

	"github.com/blockkit/unixfs/fserrors"
	"github.com/blockkit/unixfs/ufs"
	"github.com/sirupsen/logrus"
)

// rootfsBlocks/rootfsInodes size the trivial in-memory rootfs mounted at
// "/", just large enough to hold a handful of mount-point directories.
const (
	rootfsBlocks = 16
	rootfsInodes = 16
)

// OFD is an open-file description: the (inode, offset, access mode) shared
// by every FD that refers to the same open. Open always creates a fresh
// OFD; RefCount is reserved for a future dup.
type OFD struct {
	FS       *ufs.FileSystem
	Inode    *ufs.Inode
	Offset   uint32
	Readable bool
	Writable bool
	RefCount int
}

// VFS holds the mount table and the open-file table. Processes never see
// the VFS itself; they receive its SyscallTable at construction.
type VFS struct {
	mounts  map[string]*ufs.FileSystem
	oft     map[int]*OFD
	nextOFD int
	log     *logrus.Logger
}

// SyscallTable is the dispatch surface handed to the process layer at
// boot. Process code depends only on this table's shape, never on the
// VFS value behind it.
type SyscallTable struct {
	Open    func(path string, flags int) (int, error)
	Close   func(ofdID int) error
	Read    func(ofdID int, count uint32) ([]byte, error)
	Write   func(ofdID int, data []byte) (uint32, error)
	Seek    func(ofdID int, off int64, whence int) (int64, error)
	Mkdir   func(path string) error
	Getattr func(path string) (Attr, error)
	Readdir func(path string) ([]ufs.DirEntry, error)
}

// New constructs a VFS with its trivial root mount already in place.
func New(log *logrus.Logger) (*VFS, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	rootStorage := newMemStore(int64(rootfsBlocks) * 4096)
	rootFS, err := ufs.Mkfs(rootStorage, rootfsBlocks, rootfsInodes, log)
	if err != nil {
		return nil, err
	}
	return &VFS{
		mounts: map[string]*ufs.FileSystem{"/": rootFS},
		oft:    make(map[int]*OFD),
		log:    log,
	}, nil
}

// Syscalls builds the table a process is constructed with.
func (v *VFS) Syscalls() SyscallTable {
	return SyscallTable{
		Open:    v.Open,
		Close:   v.Close,
		Read:    v.Read,
		Write:   v.Write,
		Seek:    v.Seek,
		Mkdir:   v.Mkdir,
		Getattr: v.Getattr,
		Readdir: v.Readdir,
	}
}

// Mount associates path, which must already exist as a directory in the
// containing filesystem, with target. Subsequent resolutions whose prefix
// is path route into target. Unmount is not supported.
func (v *VFS) Mount(path string, target *ufs.FileSystem) error {
	if path == "/" {
		v.mounts["/"] = target
		return nil
	}
	_, ino, err := v.Resolve(path)
	if err != nil {
		return err
	}
	if ino.Kind() != ufs.KindDirectory {
		return fserrors.New(fserrors.KindNotDir, "Mount", path)
	}
	v.mounts[normalizeMountPath(path)] = target
	return nil
}

func normalizeMountPath(path string) string {
	return "/" + strings.Join(ufs.SplitPath(path), "/")
}

// Resolve walks path from the most specific mount prefix to its target
// inode. There is no directory-entry cache; every call re-walks from a
// mount root.
func (v *VFS) Resolve(path string) (*ufs.FileSystem, *ufs.Inode, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, nil, fserrors.New(fserrors.KindInvalidPath, "Resolve", path)
	}
	components := ufs.SplitPath(path)

	mountFS, remaining := v.matchMount(components)
	cur, err := mountFS.RootInode()
	if err != nil {
		return nil, nil, err
	}
	for _, c := range remaining {
		if cur.Kind() != ufs.KindDirectory {
			return nil, nil, fserrors.New(fserrors.KindNotDir, "Resolve", path)
		}
		no, err := cur.Lookup(c)
		if err != nil {
			if fserrors.Is(err, fserrors.KindNotFound) {
				return nil, nil, fserrors.New(fserrors.KindNotFound, "Resolve", path)
			}
			return nil, nil, err
		}
		cur, err = mountFS.GetInode(no)
		if err != nil {
			return nil, nil, err
		}
	}
	return mountFS, cur, nil
}

// matchMount returns the filesystem mounted at the longest prefix of
// components and the remaining, unconsumed components.
func (v *VFS) matchMount(components []string) (*ufs.FileSystem, []string) {
	type candidate struct {
		parts []string
		fs    *ufs.FileSystem
	}
	var candidates []candidate
	for path, mountedFS := range v.mounts {
		candidates = append(candidates, candidate{parts: ufs.SplitPath(path), fs: mountedFS})
	}
	sort.Slice(candidates, func(i, j int) bool { return len(candidates[i].parts) > len(candidates[j].parts) })

	for _, c := range candidates {
		if len(c.parts) > len(components) {
			continue
		}
		match := true
		for i, p := range c.parts {
			if components[i] != p {
				match = false
				break
			}
		}
		if match {
			return c.fs, components[len(c.parts):]
		}
	}
	// "/" is always present, so this is unreachable.
	return v.mounts["/"], components
}

// Attr is the metadata returned by Getattr.
type Attr struct {
	Kind      ufs.Kind
	Size      uint32
	LinkCount uint16
	InodeNo   uint32
}

// Getattr resolves path and reports its metadata.
func (v *VFS) Getattr(path string) (Attr, error) {
	_, ino, err := v.Resolve(path)
	if err != nil {
		return Attr{}, err
	}
	return Attr{Kind: ino.Kind(), Size: ino.Size(), LinkCount: ino.LinkCount(), InodeNo: ino.Number()}, nil
}

// Readdir resolves path to a directory and returns its live entries.
func (v *VFS) Readdir(path string) ([]ufs.DirEntry, error) {
	_, ino, err := v.Resolve(path)
	if err != nil {
		return nil, err
	}
	if ino.Kind() != ufs.KindDirectory {
		return nil, fserrors.New(fserrors.KindNotDir, "Readdir", path)
	}
	return ino.List()
}

// Mkdir resolves the parent of path and creates a directory under the
// final component.
func (v *VFS) Mkdir(path string) error {
	parent, name, err := v.resolveParent(path)
	if err != nil {
		return err
	}
	if _, err := parent.Lookup(name); err == nil {
		return fserrors.New(fserrors.KindExists, "Mkdir", path)
	}
	_, err = parent.Create(name, ufs.KindDirectory)
	return err
}

// resolveParent resolves all but the final component of path and returns
// the parent directory inode plus the final component's name.
func (v *VFS) resolveParent(path string) (*ufs.Inode, string, error) {
	if len(path) == 0 || path[0] != '/' {
		return nil, "", fserrors.New(fserrors.KindInvalidPath, "resolveParent", path)
	}
	components := ufs.SplitPath(path)
	if len(components) == 0 {
		return nil, "", fserrors.New(fserrors.KindInvalidPath, "resolveParent", path)
	}
	parentPath := "/" + strings.Join(components[:len(components)-1], "/")
	_, parent, err := v.Resolve(parentPath)
	if err != nil {
		return nil, "", err
	}
	if parent.Kind() != ufs.KindDirectory {
		return nil, "", fserrors.New(fserrors.KindNotDir, "resolveParent", path)
	}
	return parent, components[len(components)-1], nil
}

// Open resolves path, honoring O_CREAT, O_EXCL, O_TRUNC and O_APPEND,
// and registers a fresh OFD.
func (v *VFS) Open(path string, flags int) (int, error) {
	_, ino, err := v.Resolve(path)
	if err != nil {
		if !fserrors.Is(err, fserrors.KindNotFound) || flags&os.O_CREATE == 0 {
			return 0, err
		}
		parent, name, perr := v.resolveParent(path)
		if perr != nil {
			return 0, perr
		}
		no, cerr := parent.Create(name, ufs.KindRegularFile)
		if cerr != nil {
			return 0, cerr
		}
		ino, err = parent.FS().GetInode(no)
		if err != nil {
			return 0, err
		}
	} else if flags&os.O_CREATE != 0 && flags&os.O_EXCL != 0 {
		return 0, fserrors.New(fserrors.KindExists, "Open", path)
	}

	writable := flags&(os.O_WRONLY|os.O_RDWR) != 0
	if ino.Kind() == ufs.KindDirectory && writable {
		return 0, fserrors.New(fserrors.KindIsDir, "Open", path)
	}

	if flags&os.O_TRUNC != 0 && writable {
		if err := v.truncate(ino); err != nil {
			return 0, err
		}
	}

	mountFS := ino.FS()

	offset := uint32(0)
	if flags&os.O_APPEND != 0 {
		offset = ino.Size()
	}

	ofd := &OFD{
		FS:       mountFS,
		Inode:    ino,
		Offset:   offset,
		Readable: flags&os.O_WRONLY == 0,
		Writable: writable,
		RefCount: 1,
	}
	v.nextOFD++
	id := v.nextOFD
	v.oft[id] = ofd
	v.log.WithField("path", path).WithField("ofd", id).Debug("vfs: opened")
	return id, nil
}

// truncate resets size to 0 and clears direct pointers without reclaiming
// blocks. The orphaned blocks stay marked allocated; there is no delete
// path to reclaim them.
func (v *VFS) truncate(ino *ufs.Inode) error {
	return ino.Truncate()
}

// Read reads up to count bytes from ofdID at its current offset, advancing it.
func (v *VFS) Read(ofdID int, count uint32) ([]byte, error) {
	ofd, err := v.lookupOFD(ofdID)
	if err != nil {
		return nil, err
	}
	if !ofd.Readable {
		return nil, fserrors.New(fserrors.KindBadFd, "Read", "")
	}
	data, err := ofd.Inode.Read(ofd.Offset, count)
	if err != nil {
		return nil, err
	}
	ofd.Offset += uint32(len(data))
	return data, nil
}

// Write writes data to ofdID at its current offset, advancing it.
func (v *VFS) Write(ofdID int, data []byte) (uint32, error) {
	ofd, err := v.lookupOFD(ofdID)
	if err != nil {
		return 0, err
	}
	if !ofd.Writable {
		return 0, fserrors.New(fserrors.KindBadFd, "Write", "")
	}
	n, err := ofd.Inode.Write(ofd.Offset, data)
	ofd.Offset += n
	return n, err
}

// Seek whence constants, matching io.Seeker.
const (
	SeekStart   = 0
	SeekCurrent = 1
	SeekEnd     = 2
)

// Seek repositions ofdID's offset.
func (v *VFS) Seek(ofdID int, off int64, whence int) (int64, error) {
	ofd, err := v.lookupOFD(ofdID)
	if err != nil {
		return 0, err
	}
	var base int64
	switch whence {
	case SeekStart:
		base = 0
	case SeekCurrent:
		base = int64(ofd.Offset)
	case SeekEnd:
		base = int64(ofd.Inode.Size())
	default:
		return 0, fserrors.New(fserrors.KindInvalidPath, "Seek", "")
	}
	newOff := base + off
	if newOff < 0 {
		return 0, fserrors.New(fserrors.KindInvalidPath, "Seek", "")
	}
	ofd.Offset = uint32(newOff)
	return newOff, nil
}

// Close releases ofdID. Double-close fails with BadFd.
func (v *VFS) Close(ofdID int) error {
	if _, err := v.lookupOFD(ofdID); err != nil {
		return err
	}
	delete(v.oft, ofdID)
	return nil
}

func (v *VFS) lookupOFD(ofdID int) (*OFD, error) {
	ofd, ok := v.oft[ofdID]
	if !ok {
		return nil, fserrors.New(fserrors.KindBadFd, "", "")
	}
	return ofd, nil
}
