package connection

import (
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Attempts counts connection attempts and schedules the delay before each.
//
// The first attempt after a reset is immediate; attempt a >= 2 waits
// initial * 2^(a-2), capped at the configured maximum.
type Attempts struct {
	n      int
	max    int
	policy *backoff.ExponentialBackOff
}

// NewAttempts creates a counter allowing max attempts.
func NewAttempts(max int, initial, maxInterval time.Duration) *Attempts {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = initial
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.MaxInterval = maxInterval
	b.MaxElapsedTime = 0
	b.Reset()

	return &Attempts{max: max, policy: b}
}

// Current returns the number of the attempt in progress, 0 after a reset.
func (a *Attempts) Current() int {
	return a.n
}

// Max returns the attempt cap.
func (a *Attempts) Max() int {
	return a.max
}

// Next advances to the next attempt and returns its number and the delay to
// wait before making it. Once the cap is reached it returns an error wrapping
// ErrAttemptsExhausted and the counter stays at the cap.
func (a *Attempts) Next() (int, time.Duration, error) {
	if a.n >= a.max {
		return a.n, 0, fmt.Errorf("failed to connect after %d attempts: %w", a.max, ErrAttemptsExhausted)
	}
	a.n++
	if a.n == 1 {
		return a.n, 0, nil
	}
	return a.n, a.policy.NextBackOff(), nil
}

// Reset zeroes the counter and restarts the delay sequence.
func (a *Attempts) Reset() {
	a.n = 0
	a.policy.Reset()
}
