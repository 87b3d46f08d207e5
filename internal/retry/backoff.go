// Package retry holds the exponential-backoff-with-jitter helper shared by
// the transaction worker (C7) and webhook delivery worker (C8).
package retry

import (
	"math/rand"
	"time"
)

// Backoff returns a random duration in [d/2, d), where d is base * 2^attempt
// (attempt is zero-based) capped at max, so that many workers retrying at
// once don't stampede in lockstep.
func Backoff(attempt int, base, max time.Duration) time.Duration {
	d := base
	for i := 0; i < attempt; i++ {
		d *= 2
		if d > max {
			d = max
			break
		}
	}
	jitter := time.Duration(rand.Int63n(int64(d) / 2))
	result := d/2 + jitter
	if result > max {
		result = max
	}
	return result
}
