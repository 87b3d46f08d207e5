package retry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"paymentgw/internal/retry"
)

func TestBackoff_GrowsWithAttemptAndStaysWithinBounds(t *testing.T) {
	base := time.Second
	max := 10 * time.Second

	for attempt := 0; attempt < 8; attempt++ {
		d := retry.Backoff(attempt, base, max)
		assert.GreaterOrEqual(t, d, time.Duration(0))
		assert.LessOrEqual(t, d, max)
	}
}

func TestBackoff_CappedAtMax(t *testing.T) {
	d := retry.Backoff(20, time.Second, 5*time.Second)
	assert.LessOrEqual(t, d, 5*time.Second)
}
