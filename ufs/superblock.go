package ufs

import (
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
	"github.com/blockkit/unixfs/util/bitmap"
	"github.com/sirupsen/logrus"
)

// Superblock mirrors the on-medium superblock plus the decoded inode and
// data bitmaps. It owns the low-level allocators; FileSystem builds the
// inode cache and higher-level operations on top of it.
type Superblock struct {
	driver      *blockdev.Driver
	layout      layout
	inodeBitmap *bitmap.Bitmap
	dataBitmap  *bitmap.Bitmap
	log         *logrus.Logger
}

func (sb *Superblock) recordsPerBlock() uint32 {
	return blockdev.BlockSize / inodeRecordSize
}

func (sb *Superblock) inodeBlockFor(n uint32) (blockNo uint32, offset uint32) {
	perBlock := sb.recordsPerBlock()
	return sb.layout.inodeTableStart + n/perBlock, (n % perBlock) * inodeRecordSize
}

// ReadInodeRecord reads a single inode's packed record.
func (sb *Superblock) ReadInodeRecord(n uint32) (rawInode, error) {
	blockNo, off := sb.inodeBlockFor(n)
	buf, err := sb.driver.Bread(blockNo)
	if err != nil {
		return rawInode{}, fserrors.Wrap(fserrors.KindIO, "ReadInodeRecord", "", err)
	}
	return decodeInode(buf[off : off+inodeRecordSize])
}

// WriteInodeRecord reads the host block containing inode n, patches the
// packed slot, and writes the block back.
func (sb *Superblock) WriteInodeRecord(n uint32, rec rawInode) error {
	blockNo, off := sb.inodeBlockFor(n)
	buf, err := sb.driver.Bread(blockNo)
	if err != nil {
		return fserrors.Wrap(fserrors.KindIO, "WriteInodeRecord", "", err)
	}
	copy(buf[off:off+inodeRecordSize], encodeInode(rec))
	if err := sb.driver.Bwrite(blockNo, buf); err != nil {
		return fserrors.Wrap(fserrors.KindIO, "WriteInodeRecord", "", err)
	}
	sb.log.WithField("inode", n).Debug("ufs: wrote inode record")
	return nil
}

// persistInodeBitmap writes the whole in-memory inode bitmap back through
// the driver. There is no partial-block I/O, so every change is a
// full-region rewrite; bitmap regions are small enough that this stays
// cheap.
func (sb *Superblock) persistInodeBitmap() error {
	return writeBitmapRegion(sb.driver, sb.layout.inodeBitmapStart, sb.layout.inodeBitmapLen, sb.inodeBitmap)
}

func (sb *Superblock) persistDataBitmap() error {
	return writeBitmapRegion(sb.driver, sb.layout.dataBitmapStart, sb.layout.dataBitmapLen, sb.dataBitmap)
}

func writeBitmapRegion(driver *blockdev.Driver, start, length uint32, bm *bitmap.Bitmap) error {
	raw := bm.ToBytes()
	for i := uint32(0); i < length; i++ {
		buf := make([]byte, blockdev.BlockSize)
		lo := i * blockdev.BlockSize
		hi := lo + blockdev.BlockSize
		if lo < uint32(len(raw)) {
			end := hi
			if end > uint32(len(raw)) {
				end = uint32(len(raw))
			}
			copy(buf, raw[lo:end])
		}
		if err := driver.Bwrite(start+i, buf); err != nil {
			return fserrors.Wrap(fserrors.KindIO, "writeBitmapRegion", "", err)
		}
	}
	return nil
}

func readBitmapRegion(driver *blockdev.Driver, start, length uint32) (*bitmap.Bitmap, error) {
	raw := make([]byte, 0, length*blockdev.BlockSize)
	for i := uint32(0); i < length; i++ {
		buf, err := driver.Bread(start + i)
		if err != nil {
			return nil, fserrors.Wrap(fserrors.KindIO, "readBitmapRegion", "", err)
		}
		raw = append(raw, buf...)
	}
	return bitmap.FromBytes(raw), nil
}

// AllocateInode finds the lowest clear bit in the inode bitmap (slot 0 is
// permanently reserved), marks it, and writes an initialized record
// through.
func (sb *Superblock) AllocateInode(kind Kind) (uint32, rawInode, error) {
	loc := sb.inodeBitmap.FirstFree(1)
	if loc < 0 || uint32(loc) >= sb.layout.numInodes {
		return 0, rawInode{}, fserrors.New(fserrors.KindNoSpace, "AllocateInode", "")
	}
	if err := sb.inodeBitmap.Set(loc); err != nil {
		return 0, rawInode{}, fserrors.Wrap(fserrors.KindIO, "AllocateInode", "", err)
	}
	if err := sb.persistInodeBitmap(); err != nil {
		return 0, rawInode{}, err
	}
	rec := rawInode{Kind: uint8(kind), Size: 0, LinkCount: 1}
	n := uint32(loc)
	if err := sb.WriteInodeRecord(n, rec); err != nil {
		return 0, rawInode{}, err
	}
	sb.log.WithField("inode", n).WithField("kind", kind).Debug("ufs: allocated inode")
	return n, rec, nil
}

// AllocateBlock finds the lowest clear bit in the data bitmap, marks it,
// zeroes the block, and writes it through.
func (sb *Superblock) AllocateBlock() (uint32, error) {
	loc := sb.dataBitmap.FirstFree(0)
	if loc < 0 || uint32(loc) >= sb.layout.dataRegionLen {
		return 0, fserrors.New(fserrors.KindNoSpace, "AllocateBlock", "")
	}
	if err := sb.dataBitmap.Set(loc); err != nil {
		return 0, fserrors.Wrap(fserrors.KindIO, "AllocateBlock", "", err)
	}
	if err := sb.persistDataBitmap(); err != nil {
		return 0, err
	}
	blockNo := sb.layout.dataRegionStart + uint32(loc)
	zero := make([]byte, blockdev.BlockSize)
	if err := sb.driver.Bwrite(blockNo, zero); err != nil {
		return 0, fserrors.Wrap(fserrors.KindIO, "AllocateBlock", "", err)
	}
	sb.log.WithField("block", blockNo).Debug("ufs: allocated data block")
	return blockNo, nil
}
