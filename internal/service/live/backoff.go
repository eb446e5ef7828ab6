package live

import "time"

const (
	backoffBase = 1 * time.Second
	backoffCap  = 10 * time.Second

	// MaxConsecutiveFailures is how many subscribe failures in a row the
	// manager tolerates before it stops retrying and waits for an explicit
	// reconnect.
	MaxConsecutiveFailures = 5
)

// RetryDelay returns the reconnect delay after the nth consecutive failure
// (1-based): 1s, 2s, 4s, 8s, capped at 10s. Pure function so the schedule is
// testable without a clock.
func RetryDelay(failure int) time.Duration {
	if failure < 1 {
		failure = 1
	}
	// Guard the shift; beyond a few doublings the cap always wins.
	if failure > 10 {
		return backoffCap
	}
	d := backoffBase << (failure - 1)
	if d > backoffCap {
		return backoffCap
	}
	return d
}
