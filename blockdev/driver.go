package blockdev

// Driver is the only API the filesystem layer is allowed to call for block
// I/O. It is a thin facade over Device today; the boundary exists so a
// cache, scheduler, or request-merging policy can be inserted later
// without touching any caller.
type Driver struct {
	dev *Device
}

// NewDriver wraps dev.
func NewDriver(dev *Device) *Driver {
	return &Driver{dev: dev}
}

// Bread reads block n through the device.
func (d *Driver) Bread(n uint32) ([]byte, error) {
	return d.dev.ReadBlock(n)
}

// Bwrite writes buf to block n through the device.
func (d *Driver) Bwrite(n uint32, buf []byte) error {
	return d.dev.WriteBlock(n, buf)
}

// NumBlocks reports the underlying device's block count.
func (d *Driver) NumBlocks() uint32 {
	return d.dev.NumBlocks()
}
