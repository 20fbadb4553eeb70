package ufs

import (
	"github.com/blockkit/unixfs/backend"
	"github.com/blockkit/unixfs/blockdev"
	"github.com/blockkit/unixfs/fserrors"
	"github.com/blockkit/unixfs/util/bitmap"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// FileSystem is one mounted instance of the on-medium filesystem: its
// superblock/bitmaps, its in-memory inode cache, and its volume identity.
// All in-memory inodes are pinned for the life of the mount; there is no
// eviction.
type FileSystem struct {
	sb       *Superblock
	cache    map[uint32]*Inode
	VolumeID uuid.UUID
	log      *logrus.Logger
}

// Mkfs formats a fresh volume of numBlocks blocks with room for numInodes
// inode slots and returns it mounted: superblock, zeroed bitmaps, then
// inode #1 as the root directory with its "." and ".." entries.
func Mkfs(storage backend.Storage, numBlocks, numInodes uint32, log *logrus.Logger) (*FileSystem, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	lay, err := computeLayout(numBlocks, numInodes)
	if err != nil {
		return nil, fserrors.Wrap(fserrors.KindNoSpace, "Mkfs", "", err)
	}

	dev := blockdev.NewDevice(storage, numBlocks, log)
	driver := blockdev.NewDriver(dev)

	sb := &Superblock{
		driver:      driver,
		layout:      lay,
		inodeBitmap: bitmap.NewBits(int(numInodes)),
		dataBitmap:  bitmap.NewBits(int(lay.dataRegionLen)),
		log:         log,
	}
	// Inode numbers are 1-based; slot 0 is reserved and never allocated.
	if err := sb.inodeBitmap.Set(0); err != nil {
		return nil, fserrors.Wrap(fserrors.KindIO, "Mkfs", "", err)
	}
	if err := sb.persistInodeBitmap(); err != nil {
		return nil, err
	}
	if err := sb.persistDataBitmap(); err != nil {
		return nil, err
	}

	fs := &FileSystem{
		sb:       sb,
		cache:    make(map[uint32]*Inode),
		VolumeID: uuid.New(),
		log:      log,
	}
	if err := fs.persistSuperblock(); err != nil {
		return nil, err
	}

	rootNo, rootRec, err := sb.AllocateInode(KindDirectory)
	if err != nil {
		return nil, err
	}
	if rootNo != RootInodeNum {
		return nil, fserrors.New(fserrors.KindIO, "Mkfs", "root inode slot mismatch")
	}
	blockNo, err := sb.AllocateBlock()
	if err != nil {
		return nil, err
	}
	dirBlock := make([]byte, blockdev.BlockSize)
	dot := rawDirEntry{Inode: RootInodeNum, NameLen: 1}
	dot.Name[0] = '.'
	dotdot := rawDirEntry{Inode: RootInodeNum, NameLen: 2}
	dotdot.Name[0], dotdot.Name[1] = '.', '.'
	copy(dirBlock[0:dirEntrySize], encodeDirEntry(dot))
	copy(dirBlock[dirEntrySize:2*dirEntrySize], encodeDirEntry(dotdot))
	if err := driver.Bwrite(blockNo, dirBlock); err != nil {
		return nil, fserrors.Wrap(fserrors.KindIO, "Mkfs", "/", err)
	}

	rootRec.Direct[0] = blockNo
	rootRec.Size = 2 * dirEntrySize
	rootRec.LinkCount = 2
	if err := sb.WriteInodeRecord(RootInodeNum, rootRec); err != nil {
		return nil, err
	}
	fs.cache[RootInodeNum] = &Inode{no: RootInodeNum, fs: fs, rec: rootRec}

	log.WithField("blocks", numBlocks).WithField("inodes", numInodes).Info("ufs: formatted volume")
	return fs, nil
}

// Mount reads the superblock, bitmaps, and root inode of an already
// formatted volume into memory.
func Mount(storage backend.Storage, log *logrus.Logger) (*FileSystem, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	info, err := storage.Stat()
	if err != nil {
		return nil, fserrors.Wrap(fserrors.KindIO, "Mount", "", err)
	}
	provisionalBlocks := uint32(info.Size() / blockdev.BlockSize)
	if provisionalBlocks == 0 {
		return nil, fserrors.New(fserrors.KindIO, "Mount", "")
	}

	dev := blockdev.NewDevice(storage, provisionalBlocks, log)
	driver := blockdev.NewDriver(dev)

	block0, err := driver.Bread(0)
	if err != nil {
		return nil, fserrors.Wrap(fserrors.KindIO, "Mount", "", err)
	}
	rawSb, err := decodeSuperblock(block0)
	if err != nil {
		return nil, err
	}
	if rawSb.BlockSize != blockdev.BlockSize {
		return nil, fserrors.New(fserrors.KindIO, "Mount", "block size mismatch")
	}
	lay := layoutFromSuperblock(rawSb)

	// Re-wrap with the authoritative block count from the on-medium header.
	dev = blockdev.NewDevice(storage, rawSb.NumBlocks, log)
	driver = blockdev.NewDriver(dev)

	inodeBitmap, err := readBitmapRegion(driver, lay.inodeBitmapStart, lay.inodeBitmapLen)
	if err != nil {
		return nil, err
	}
	dataBitmap, err := readBitmapRegion(driver, lay.dataBitmapStart, lay.dataBitmapLen)
	if err != nil {
		return nil, err
	}

	sb := &Superblock{
		driver:      driver,
		layout:      lay,
		inodeBitmap: inodeBitmap,
		dataBitmap:  dataBitmap,
		log:         log,
	}

	var volID uuid.UUID
	copy(volID[:], block0[superblockHeaderSize:superblockHeaderSize+16])

	fs := &FileSystem{
		sb:       sb,
		cache:    make(map[uint32]*Inode),
		VolumeID: volID,
		log:      log,
	}

	if _, err := fs.RootInode(); err != nil {
		return nil, err
	}
	log.WithField("blocks", rawSb.NumBlocks).Info("ufs: mounted volume")
	return fs, nil
}

func (fs *FileSystem) persistSuperblock() error {
	buf := encodeSuperblock(fs.sb.layout.toSuperblock())
	copy(buf[superblockHeaderSize:superblockHeaderSize+16], fs.VolumeID[:])
	return fs.sb.driver.Bwrite(0, buf)
}

// RootInode returns inode #1, the root directory.
func (fs *FileSystem) RootInode() (*Inode, error) {
	return fs.GetInode(RootInodeNum)
}

// GetInode returns the cached in-memory inode for n, reading it from the
// inode table on first access.
func (fs *FileSystem) GetInode(n uint32) (*Inode, error) {
	if ino, ok := fs.cache[n]; ok {
		return ino, nil
	}
	rec, err := fs.sb.ReadInodeRecord(n)
	if err != nil {
		return nil, err
	}
	ino := &Inode{no: n, fs: fs, rec: rec}
	fs.cache[n] = ino
	return ino, nil
}

// AllocateInode allocates and caches a new inode of the given kind.
func (fs *FileSystem) AllocateInode(kind Kind) (*Inode, error) {
	n, rec, err := fs.sb.AllocateInode(kind)
	if err != nil {
		return nil, err
	}
	ino := &Inode{no: n, fs: fs, rec: rec}
	fs.cache[n] = ino
	return ino, nil
}

// AllocateBlock allocates a fresh, zeroed data block.
func (fs *FileSystem) AllocateBlock() (uint32, error) {
	return fs.sb.AllocateBlock()
}
