package ufs

import (
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
)

// Inode is the in-memory object caching one decoded on-medium inode record,
// its number, and a reference back to its filesystem. Regular-file
// operations (Read/Write) and directory operations (Lookup/AddEntry/List/
// Create) both live here, gated by Kind(), rather than as two distinct Go
// types.
type Inode struct {
	no  uint32
	fs  *FileSystem
	rec rawInode
}

// Number returns the inode's slot number.
func (i *Inode) Number() uint32 { return i.no }

// Kind reports whether this inode is a regular file or a directory.
func (i *Inode) Kind() Kind { return Kind(i.rec.Kind) }

// Size returns the file length in bytes, or the directory entry-array
// length in bytes.
func (i *Inode) Size() uint32 { return i.rec.Size }

// LinkCount returns the reference count from directory entries.
func (i *Inode) LinkCount() uint16 { return i.rec.LinkCount }

// FS returns the filesystem instance that owns this inode.
func (i *Inode) FS() *FileSystem { return i.fs }

func (i *Inode) persist() error {
	return i.fs.sb.WriteInodeRecord(i.no, i.rec)
}

// Read returns bytes[0..min(count, size-offset)] from a regular-file inode.
// Bytes belonging to an unallocated (sparse) block read as zero.
func (i *Inode) Read(offset, count uint32) ([]byte, error) {
	if i.Kind() != KindRegularFile {
		return nil, fserrors.New(fserrors.KindIsDir, "Read", "")
	}
	if offset >= i.rec.Size {
		return []byte{}, nil
	}
	end := offset + count
	if end < offset { // overflow
		end = ^uint32(0)
	}
	if end > i.rec.Size {
		end = i.rec.Size
	}
	if end <= offset {
		return []byte{}, nil
	}
	out := make([]byte, end-offset)
	var done uint32
	for offset+done < end {
		pos := offset + done
		blockIdx := pos / blockdev.BlockSize
		blockOff := pos % blockdev.BlockSize
		remaining := end - pos
		chunk := blockdev.BlockSize - blockOff
		if chunk > remaining {
			chunk = remaining
		}
		if blockIdx < K && i.rec.Direct[blockIdx] != 0 {
			buf, err := i.fs.sb.driver.Bread(i.rec.Direct[blockIdx])
			if err != nil {
				return nil, err
			}
			copy(out[done:done+chunk], buf[blockOff:blockOff+chunk])
		}
		done += chunk
	}
	return out, nil
}

// Truncate resets size to 0 and clears all direct pointers without
// reclaiming the data blocks they referenced. With no delete path the
// orphaned blocks stay marked allocated.
func (i *Inode) Truncate() error {
	if i.Kind() != KindRegularFile {
		return fserrors.New(fserrors.KindIsDir, "Truncate", "")
	}
	i.rec.Size = 0
	for idx := range i.rec.Direct {
		i.rec.Direct[idx] = 0
	}
	return i.persist()
}

// Write writes data starting at offset, allocating blocks on demand and
// extending size as needed. It returns the number of bytes
// actually written; on FileTooBig or NoSpace, that count reflects the
// already-persisted prefix.
func (i *Inode) Write(offset uint32, data []byte) (uint32, error) {
	if i.Kind() != KindRegularFile {
		return 0, fserrors.New(fserrors.KindIsDir, "Write", "")
	}
	var written uint32
	for written < uint32(len(data)) {
		pos := offset + written
		blockIdx := pos / blockdev.BlockSize
		if blockIdx >= K {
			if err := i.persist(); err != nil {
				return written, err
			}
			return written, fserrors.New(fserrors.KindFileTooBig, "Write", "")
		}
		blockOff := pos % blockdev.BlockSize

		if i.rec.Direct[blockIdx] == 0 {
			blockNo, err := i.fs.AllocateBlock()
			if err != nil {
				if perr := i.persist(); perr != nil {
					return written, perr
				}
				return written, err
			}
			i.rec.Direct[blockIdx] = blockNo
		}

		buf, err := i.fs.sb.driver.Bread(i.rec.Direct[blockIdx])
		if err != nil {
			return written, err
		}
		remaining := uint32(len(data)) - written
		chunk := blockdev.BlockSize - blockOff
		if chunk > remaining {
			chunk = remaining
		}
		copy(buf[blockOff:blockOff+chunk], data[written:written+chunk])
		if err := i.fs.sb.driver.Bwrite(i.rec.Direct[blockIdx], buf); err != nil {
			return written, err
		}
		written += chunk

		if offset+written > i.rec.Size {
			i.rec.Size = offset + written
		}
		if err := i.persist(); err != nil {
			return written, err
		}
	}
	return written, nil
}
