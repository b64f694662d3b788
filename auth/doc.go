// Package auth implements admin authentication for the event backend:
// bcrypt credential checks, stateless HMAC-signed session tokens, and a
// per-address failed-login tracker with temporary lockout.
package auth

import "time"

// Clock returns the current time. Tests inject a fixed or steppable clock.
type Clock func() time.Time

func systemClock() time.Time { return time.Now() }
