//go:build !linux && !darwin

package cache

import (
	"os"
	"time"
)

// accessTime falls back to the modification time on platforms where the
// access timestamp is not exposed through os.FileInfo.Sys.
func accessTime(info os.FileInfo) time.Time {
	return info.ModTime()
}
