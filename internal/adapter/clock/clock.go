// Package clock is the production ports.Clock implementation.
package clock

import "time"

// SystemClock wraps time.Now so the core never calls it directly.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }
