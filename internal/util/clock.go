// internal/util/clock.go
package util

import "time"

// Clock supplies the current instant. Services take one so tests can move time.
type Clock interface {
	Now() time.Time
}

// SystemClock reads the wall clock.
type SystemClock struct{}

// Now returns time.Now().
func (SystemClock) Now() time.Time { return time.Now() }
