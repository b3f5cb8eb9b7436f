// Package clock supplies an injectable time source so services stamp
// deterministic timestamps under test and replay.
package clock

import "time"

// Clock returns the current wall-clock time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

// System returns the production clock (UTC).
func System() Clock { return systemClock{} }

// Fixed always returns T. Test helper.
type Fixed struct{ T time.Time }

// Now implements Clock.
func (c Fixed) Now() time.Time { return c.T }
