// Package activity measures how long a repeater module has gone without
// local RF traffic. g2_link touches a marker file per module whenever a
// local station keys up; only the file's modification time is used.
package activity

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/freestar-tools/g2persist/internal/module"
)

// MaxIdle is returned when a marker cannot be stat'ed. A missing marker
// means the module has never been used locally, so it never blocks linking.
const MaxIdle = math.MaxFloat64

// Monitor reads marker modification times.
type Monitor struct {
	// Now is the clock used to measure elapsed time; defaults to time.Now.
	Now func() time.Time
}

// MinutesSinceModified returns the minutes elapsed since path was last
// modified, or MaxIdle if the file cannot be stat'ed for any reason.
func (m Monitor) MinutesSinceModified(path string) float64 {
	info, err := os.Stat(path)
	if err != nil {
		return MaxIdle
	}
	now := time.Now
	if m.Now != nil {
		now = m.Now
	}
	return now().Sub(info.ModTime()).Minutes()
}

// MarkerPath returns the activity marker for a module inside RF_FLAGS_DIR.
func MarkerPath(flagsDir string, id module.ID) string {
	return filepath.Join(flagsDir, fmt.Sprintf("local_rf_use_%s.txt", id))
}

// FormatIdle renders an idle duration for status output.
func FormatIdle(minutes float64) string {
	if minutes == MaxIdle {
		return "never"
	}
	return fmt.Sprintf("%.1fm", minutes)
}
