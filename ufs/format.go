// Package ufs implements the on-medium filesystem: the superblock,
// inode/data bitmaps, packed inode table, and the regular-file/directory
// inode operations that sit on top of them.
package ufs

import (
	"bytes"
	"encoding/binary"
	"fmt"

	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
)

// Magic identifies an on-medium image as belonging to this filesystem.
const Magic uint32 = 0x051057F5

// K is the number of direct block pointers per inode. There are no
// indirect pointers.
const K = 60

// MaxFileSize is the largest file representable with K direct pointers of
// BlockSize bytes each (~240 KiB).
const MaxFileSize = K * blockdev.BlockSize

// MaxNameLen is the largest filename, in bytes, a directory entry can hold.
const MaxNameLen = 27

// RootInodeNum is the inode number of the root directory.
const RootInodeNum = 1

// inodeRecordSize is the fixed on-medium width of one inode record.
const inodeRecordSize = 256

// dirEntrySize is the fixed on-medium width of one directory entry.
const dirEntrySize = 32

// Kind tags whether an inode describes a regular file or a directory.
type Kind uint8

const (
	KindRegularFile Kind = 0
	KindDirectory   Kind = 1
)

func (k Kind) String() string {
	if k == KindDirectory {
		return "directory"
	}
	return "regular file"
}

// rawSuperblock is the fixed little-endian header at the start of block 0.
// The remainder of that block is reserved padding, the first 16 bytes of
// which hold the volume UUID stamped at format time.
type rawSuperblock struct {
	Magic            uint32
	BlockSize        uint32
	NumBlocks        uint32
	InodeBitmapStart uint32
	DataBitmapStart  uint32
	InodeTableStart  uint32
	DataRegionStart  uint32
	NumInodes        uint32
}

// rawInode is the 256-byte packed on-medium inode record: kind, 3 pad,
// size, link count, 6 pad, then K direct block numbers. The pad after
// LinkCount brings the record to exactly 256 bytes, so 16 records fill
// one block.
type rawInode struct {
	Kind      uint8
	_         [3]byte
	Size      uint32
	LinkCount uint16
	_         [6]byte
	Direct    [K]uint32
}

// rawDirEntry is the 32-byte packed on-medium directory entry. Inode 0
// marks a free slot; Name is zero-padded past NameLen.
type rawDirEntry struct {
	Inode   uint32
	NameLen uint8
	Name    [MaxNameLen]byte
}

func encodeSuperblock(sb rawSuperblock) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, sb)
	out := make([]byte, blockdev.BlockSize)
	copy(out, buf.Bytes())
	return out
}

// superblockHeaderSize is the size of rawSuperblock's fixed fields.
const superblockHeaderSize = 32

func decodeSuperblock(b []byte) (rawSuperblock, error) {
	var sb rawSuperblock
	if len(b) < superblockHeaderSize {
		return sb, fmt.Errorf("superblock block too short: %d bytes", len(b))
	}
	if err := binary.Read(bytes.NewReader(b[:superblockHeaderSize]), binary.LittleEndian, &sb); err != nil {
		return sb, err
	}
	if sb.Magic != Magic {
		return sb, fserrors.New(fserrors.KindIO, "Mount", "superblock")
	}
	return sb, nil
}

func encodeInode(rec rawInode) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, rec)
	return buf.Bytes()
}

func decodeInode(b []byte) (rawInode, error) {
	var rec rawInode
	if len(b) != inodeRecordSize {
		return rec, fmt.Errorf("inode record must be %d bytes, got %d", inodeRecordSize, len(b))
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &rec); err != nil {
		return rec, err
	}
	return rec, nil
}

func encodeDirEntry(e rawDirEntry) []byte {
	buf := new(bytes.Buffer)
	_ = binary.Write(buf, binary.LittleEndian, e)
	return buf.Bytes()
}

func decodeDirEntry(b []byte) (rawDirEntry, error) {
	var e rawDirEntry
	if len(b) != dirEntrySize {
		return e, fmt.Errorf("directory entry must be %d bytes, got %d", dirEntrySize, len(b))
	}
	if err := binary.Read(bytes.NewReader(b), binary.LittleEndian, &e); err != nil {
		return e, err
	}
	return e, nil
}
