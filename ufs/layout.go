package ufs

import "github.com/blockkit/unixfs/blockdev"

// layout describes the block ranges of each on-medium region: superblock,
// inode bitmap, data bitmap, inode table, data region, in that order.
type layout struct {
	numBlocks        uint32
	numInodes        uint32
	inodeBitmapStart uint32
	inodeBitmapLen   uint32
	dataBitmapStart  uint32
	dataBitmapLen    uint32
	inodeTableStart  uint32
	inodeTableLen    uint32
	dataRegionStart  uint32
	dataRegionLen    uint32
}

const bitsPerBlock = blockdev.BlockSize * 8

func ceilDiv(a, b uint32) uint32 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// computeLayout sizes the inode table, inode bitmap, and data bitmap for a
// volume of numBlocks blocks holding numInodes inode slots.
// The data bitmap only needs to cover the data region itself,
// which is smaller than numBlocks by the size of the metadata regions that
// precede it (including the data bitmap's own blocks), so it is solved by a
// couple of fixed-point iterations rather than a closed form.
func computeLayout(numBlocks, numInodes uint32) (layout, error) {
	inodeTableLen := ceilDiv(numInodes*inodeRecordSize, blockdev.BlockSize)
	inodeBitmapLen := ceilDiv(numInodes, bitsPerBlock)

	const superblockLen = 1
	dataBitmapLen := uint32(1)
	for i := 0; i < 4; i++ {
		reserved := superblockLen + inodeBitmapLen + dataBitmapLen + inodeTableLen
		if reserved >= numBlocks {
			return layout{}, errVolumeTooSmall
		}
		dataBlocks := numBlocks - reserved
		next := ceilDiv(dataBlocks, bitsPerBlock)
		if next == 0 {
			next = 1
		}
		if next == dataBitmapLen {
			break
		}
		dataBitmapLen = next
	}

	inodeBitmapStart := uint32(superblockLen)
	dataBitmapStart := inodeBitmapStart + inodeBitmapLen
	inodeTableStart := dataBitmapStart + dataBitmapLen
	dataRegionStart := inodeTableStart + inodeTableLen
	if dataRegionStart >= numBlocks {
		return layout{}, errVolumeTooSmall
	}

	return layout{
		numBlocks:        numBlocks,
		numInodes:        numInodes,
		inodeBitmapStart: inodeBitmapStart,
		inodeBitmapLen:   inodeBitmapLen,
		dataBitmapStart:  dataBitmapStart,
		dataBitmapLen:    dataBitmapLen,
		inodeTableStart:  inodeTableStart,
		inodeTableLen:    inodeTableLen,
		dataRegionStart:  dataRegionStart,
		dataRegionLen:    numBlocks - dataRegionStart,
	}, nil
}

func layoutFromSuperblock(sb rawSuperblock) layout {
	return layout{
		numBlocks:        sb.NumBlocks,
		numInodes:        sb.NumInodes,
		inodeBitmapStart: sb.InodeBitmapStart,
		inodeBitmapLen:   sb.DataBitmapStart - sb.InodeBitmapStart,
		dataBitmapStart:  sb.DataBitmapStart,
		dataBitmapLen:    sb.InodeTableStart - sb.DataBitmapStart,
		inodeTableStart:  sb.InodeTableStart,
		inodeTableLen:    sb.DataRegionStart - sb.InodeTableStart,
		dataRegionStart:  sb.DataRegionStart,
		dataRegionLen:    sb.NumBlocks - sb.DataRegionStart,
	}
}

func (l layout) toSuperblock() rawSuperblock {
	return rawSuperblock{
		Magic:            Magic,
		BlockSize:        blockdev.BlockSize,
		NumBlocks:        l.numBlocks,
		InodeBitmapStart: l.inodeBitmapStart,
		DataBitmapStart:  l.dataBitmapStart,
		InodeTableStart:  l.inodeTableStart,
		DataRegionStart:  l.dataRegionStart,
		NumInodes:        l.numInodes,
	}
}
