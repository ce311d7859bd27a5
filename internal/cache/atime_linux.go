//go:build linux

package cache

import (
	"os"
	"syscall"
	"time"
)

// accessTime extracts the last-access timestamp from file metadata.
func accessTime(info os.FileInfo) time.Time {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return time.Unix(st.Atim.Sec, st.Atim.Nsec)
	}
	return info.ModTime()
}
