package ufs

import (
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
)

const entriesPerBlock = blockdev.BlockSize / dirEntrySize

// DirEntry is one live (name, inode number) pair returned by List.
type DirEntry struct {
	Name    string
	InodeNo uint32
}

func entryName(e rawDirEntry) string {
	return string(e.Name[:e.NameLen])
}

func (i *Inode) readEntry(idx uint32) (rawDirEntry, error) {
	blockIdx := idx / entriesPerBlock
	within := idx % entriesPerBlock
	if blockIdx >= K || i.rec.Direct[blockIdx] == 0 {
		return rawDirEntry{}, fserrors.New(fserrors.KindIO, "readEntry", "")
	}
	buf, err := i.fs.sb.driver.Bread(i.rec.Direct[blockIdx])
	if err != nil {
		return rawDirEntry{}, err
	}
	off := within * dirEntrySize
	return decodeDirEntry(buf[off : off+dirEntrySize])
}

func (i *Inode) writeEntryAt(idx uint32, e rawDirEntry) error {
	blockIdx := idx / entriesPerBlock
	within := idx % entriesPerBlock
	if blockIdx >= K || i.rec.Direct[blockIdx] == 0 {
		return fserrors.New(fserrors.KindIO, "writeEntryAt", "")
	}
	buf, err := i.fs.sb.driver.Bread(i.rec.Direct[blockIdx])
	if err != nil {
		return err
	}
	off := within * dirEntrySize
	copy(buf[off:off+dirEntrySize], encodeDirEntry(e))
	return i.fs.sb.driver.Bwrite(i.rec.Direct[blockIdx], buf)
}

// appendEntry extends the directory by one 32-byte slot, allocating a new
// data block if the slot crosses a block boundary, and write-throughs size.
func (i *Inode) appendEntry(e rawDirEntry) error {
	idx := i.rec.Size / dirEntrySize
	blockIdx := idx / entriesPerBlock
	if blockIdx >= K {
		return fserrors.New(fserrors.KindNoSpace, "AddEntry", "")
	}
	if i.rec.Direct[blockIdx] == 0 {
		blockNo, err := i.fs.AllocateBlock()
		if err != nil {
			return err
		}
		i.rec.Direct[blockIdx] = blockNo
	}
	within := idx % entriesPerBlock
	buf, err := i.fs.sb.driver.Bread(i.rec.Direct[blockIdx])
	if err != nil {
		return err
	}
	off := within * dirEntrySize
	copy(buf[off:off+dirEntrySize], encodeDirEntry(e))
	if err := i.fs.sb.driver.Bwrite(i.rec.Direct[blockIdx], buf); err != nil {
		return err
	}
	i.rec.Size += dirEntrySize
	return i.persist()
}

// Lookup performs a linear scan of the directory's entries in order,
// returning the inode number of the first live entry whose name matches.
func (i *Inode) Lookup(name string) (uint32, error) {
	if i.Kind() != KindDirectory {
		return 0, fserrors.New(fserrors.KindNotDir, "Lookup", name)
	}
	n := i.rec.Size / dirEntrySize
	for idx := uint32(0); idx < n; idx++ {
		e, err := i.readEntry(idx)
		if err != nil {
			return 0, err
		}
		if e.Inode != 0 && entryName(e) == name {
			return e.Inode, nil
		}
	}
	return 0, fserrors.New(fserrors.KindNotFound, "Lookup", name)
}

// AddEntry inserts name -> inodeNo at the lowest-indexed tombstone slot, or
// appends a new entry if there is none.
func (i *Inode) AddEntry(name string, inodeNo uint32) error {
	if i.Kind() != KindDirectory {
		return fserrors.New(fserrors.KindNotDir, "AddEntry", name)
	}
	if !ValidName(name) {
		return fserrors.New(fserrors.KindNameInvalid, "AddEntry", name)
	}
	if _, err := i.Lookup(name); err == nil {
		return fserrors.New(fserrors.KindExists, "AddEntry", name)
	} else if !fserrors.Is(err, fserrors.KindNotFound) {
		return err
	}

	entry := rawDirEntry{Inode: inodeNo, NameLen: uint8(len(name))}
	copy(entry.Name[:], name)

	n := i.rec.Size / dirEntrySize
	for idx := uint32(0); idx < n; idx++ {
		e, err := i.readEntry(idx)
		if err != nil {
			return err
		}
		if e.Inode == 0 {
			return i.writeEntryAt(idx, entry)
		}
	}
	return i.appendEntry(entry)
}

// List returns the directory's live entries in on-medium order.
func (i *Inode) List() ([]DirEntry, error) {
	if i.Kind() != KindDirectory {
		return nil, fserrors.New(fserrors.KindNotDir, "List", "")
	}
	n := i.rec.Size / dirEntrySize
	var out []DirEntry
	for idx := uint32(0); idx < n; idx++ {
		e, err := i.readEntry(idx)
		if err != nil {
			return nil, err
		}
		if e.Inode != 0 {
			out = append(out, DirEntry{Name: entryName(e), InodeNo: e.Inode})
		}
	}
	return out, nil
}

// Create allocates a new inode of kind, initializes it (writing "." and
// ".." if it is a directory), and links it into this directory under name.
// If linking fails after the inode was allocated, the inode is left
// allocated and unreferenced.
func (i *Inode) Create(name string, kind Kind) (uint32, error) {
	if i.Kind() != KindDirectory {
		return 0, fserrors.New(fserrors.KindNotDir, "Create", name)
	}
	child, err := i.fs.AllocateInode(kind)
	if err != nil {
		return 0, err
	}

	if kind == KindDirectory {
		blockNo, err := i.fs.AllocateBlock()
		if err != nil {
			return child.no, err
		}
		dot := rawDirEntry{Inode: child.no, NameLen: 1}
		dot.Name[0] = '.'
		dotdot := rawDirEntry{Inode: i.no, NameLen: 2}
		dotdot.Name[0], dotdot.Name[1] = '.', '.'
		buf := make([]byte, blockdev.BlockSize)
		copy(buf[0:dirEntrySize], encodeDirEntry(dot))
		copy(buf[dirEntrySize:2*dirEntrySize], encodeDirEntry(dotdot))
		if err := i.fs.sb.driver.Bwrite(blockNo, buf); err != nil {
			return child.no, err
		}
		child.rec.Direct[0] = blockNo
		child.rec.Size = 2 * dirEntrySize
		child.rec.LinkCount = 2
		if err := child.persist(); err != nil {
			return child.no, err
		}
	}

	if err := i.AddEntry(name, child.no); err != nil {
		return child.no, err
	}
	return child.no, nil
}
