// Package blockdev implements the fixed-size block device and the driver
// facade that is the only interface any higher layer is allowed to use for
// block I/O.
package blockdev

import (
	"fmt"

	"github.com/blockkit/unixfs/backend"
	"github.com/blockkit/unixfs/fserrors"
	"github.com/sirupsen/logrus"
)

// BlockSize is the fixed block size in bytes.
const BlockSize = 4096

// Device treats a backend.Storage as a zero-indexed array of BlockSize
// blocks. It performs no caching and no partial-block I/O.
type Device struct {
	storage backend.Storage
	blocks  uint32
	log     *logrus.Logger
}

// NewDevice wraps storage, whose length MUST be an exact multiple of
// BlockSize, as a Device of numBlocks blocks.
func NewDevice(storage backend.Storage, numBlocks uint32, log *logrus.Logger) *Device {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Device{storage: storage, blocks: numBlocks, log: log}
}

// NumBlocks returns N, the device's block count.
func (d *Device) NumBlocks() uint32 { return d.blocks }

// ReadBlock reads block n in full, failing with fserrors.KindIO on an
// out-of-bounds index or a host read error.
func (d *Device) ReadBlock(n uint32) ([]byte, error) {
	if n >= d.blocks {
		return nil, fserrors.New(fserrors.KindIO, "ReadBlock", blockPath(n))
	}
	buf := make([]byte, BlockSize)
	nRead, err := d.storage.ReadAt(buf, int64(n)*BlockSize)
	if err != nil && nRead != BlockSize {
		return nil, fserrors.Wrap(fserrors.KindIO, "ReadBlock", blockPath(n), err)
	}
	d.log.WithField("block", n).Debug("blockdev: read")
	return buf, nil
}

// WriteBlock writes buf, which MUST be exactly BlockSize long, to block n.
func (d *Device) WriteBlock(n uint32, buf []byte) error {
	if n >= d.blocks {
		return fserrors.New(fserrors.KindIO, "WriteBlock", blockPath(n))
	}
	if len(buf) != BlockSize {
		return fserrors.New(fserrors.KindIO, "WriteBlock", blockPath(n))
	}
	w, err := d.storage.Writable()
	if err != nil {
		return fserrors.Wrap(fserrors.KindIO, "WriteBlock", blockPath(n), err)
	}
	if _, err := w.WriteAt(buf, int64(n)*BlockSize); err != nil {
		return fserrors.Wrap(fserrors.KindIO, "WriteBlock", blockPath(n), err)
	}
	d.log.WithField("block", n).Debug("blockdev: write")
	return nil
}

func blockPath(n uint32) string {
	return fmt.Sprintf("block#%d", n)
}
