//go:build aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris
// +build aix darwin dragonfly freebsd linux netbsd openbsd solaris

package file

import (
	"os"

	"golang.org/x/sys/unix"
)

// fsyncFile forces the host kernel to flush f's dirty pages to the backing
// medium via fsync(2), so a WriteAt is acknowledged only once it is durable.
func fsyncFile(f *os.File) error {
	if f == nil {
		return nil
	}
	return unix.Fsync(int(f.Fd()))
}
