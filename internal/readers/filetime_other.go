//go:build !linux && !darwin

package readers

import (
	"os"
	"time"
)

// changeTime is unavailable here; callers fall back to the modification time.
func changeTime(os.FileInfo) (time.Time, bool) {
	return time.Time{}, false
}
