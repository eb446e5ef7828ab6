// Package timer derives human-readable elapsed durations from a fixed start
// instant. Pure functions of wall-clock time; re-evaluated on every display
// tick instead of keeping counter state.
package timer

import (
	"fmt"
	"time"
)

// ElapsedSeconds returns whole seconds between start and now. Negative
// inputs (clock skew) clamp to zero.
func ElapsedSeconds(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Second)
}

// ElapsedMinutes returns whole minutes between start and now.
func ElapsedMinutes(start, now time.Time) int {
	d := now.Sub(start)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// FormatElapsed renders seconds as HH:MM:SS.
func FormatElapsed(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
