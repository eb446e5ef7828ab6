package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayLadder(t *testing.T) {
	cases := []struct {
		failure int
		want    time.Duration
	}{
		{1, 1 * time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second},
		{6, 10 * time.Second},
		{100, 10 * time.Second},
	}

	for _, tc := range cases {
		assert.Equal(t, tc.want, RetryDelay(tc.failure), "failure %d", tc.failure)
	}
}

func TestRetryDelayClampsBelowOne(t *testing.T) {
	assert.Equal(t, 1*time.Second, RetryDelay(0))
	assert.Equal(t, 1*time.Second, RetryDelay(-3))
}

func TestRetryDelayNeverExceedsCap(t *testing.T) {
	for failure := 1; failure <= 30; failure++ {
		assert.LessOrEqual(t, RetryDelay(failure), 10*time.Second)
	}
}
