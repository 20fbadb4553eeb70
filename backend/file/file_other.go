//go:build !(aix || darwin || dragonfly || freebsd || linux || netbsd || openbsd || solaris)
// +build !aix,!darwin,!dragonfly,!freebsd,!linux,!netbsd,!openbsd,!solaris

package file

import "os"

// fsyncFile falls back to os.File.Sync on platforms without a unix.Fsync.
func fsyncFile(f *os.File) error {
	if f == nil {
		return nil
	}
	return f.Sync()
}
