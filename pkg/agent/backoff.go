package agent

import "time"

// Backoff implements the linear reconnect policy: the delay before retry k
// equals k-1 units (so the first failure retries immediately), and any
// successful round trip resets the counter. The source behavior is uncapped;
// Cap bounds the delay as a documented deviation and is off by default.
type Backoff struct {
	// Unit is the duration of one backoff step. Defaults to one second.
	Unit time.Duration
	// Cap bounds the returned delay when non-zero. The linear shape is
	// preserved for the whole uncapped range.
	Cap time.Duration

	attempt int
}

// Next returns the delay to sleep before the upcoming retry and advances the
// failure counter.
func (b *Backoff) Next() time.Duration {
	unit := b.Unit
	if unit == 0 {
		unit = time.Second
	}
	delay := time.Duration(b.attempt) * unit
	b.attempt++

	if b.Cap > 0 && delay > b.Cap {
		delay = b.Cap
	}
	return delay
}

// Reset clears the failure counter after a successful round trip.
func (b *Backoff) Reset() {
	b.attempt = 0
}

// Attempt returns the number of consecutive failures recorded so far.
func (b *Backoff) Attempt() int {
	return b.attempt
}
