//go:build linux

package diskstat

import (
	"io/fs"
	"time"

	"golang.org/x/sys/unix"
)

// birthTime queries statx for the creation time. Filesystems that do not record it
// yield the zero time.
func birthTime(path string, _ fs.FileInfo) time.Time {
	var stx unix.Statx_t

	err := unix.Statx(unix.AT_FDCWD, path, unix.AT_SYMLINK_NOFOLLOW|unix.AT_STATX_DONT_SYNC, unix.STATX_BTIME, &stx)
	if err != nil || stx.Mask&unix.STATX_BTIME == 0 {
		return time.Time{}
	}

	return time.Unix(stx.Btime.Sec, int64(stx.Btime.Nsec))
}
