package services

import "time"

// LockoutPolicy maps attempt history to lock state. Pure; the store owns
// the counter mutation, this only decides.
type LockoutPolicy struct {
	Threshold int
	Duration  time.Duration
}

// LockDecision is the outcome of a lockout evaluation
type LockDecision struct {
	Locked     bool
	RetryAfter time.Duration
}

// NewLockoutPolicy creates a policy with the given threshold and duration
func NewLockoutPolicy(threshold int, duration time.Duration) LockoutPolicy {
	return LockoutPolicy{Threshold: threshold, Duration: duration}
}

// Decide evaluates lock state at the given instant. The lock clock starts
// when the threshold-crossing failure was recorded; further failures during
// the window do not extend it.
func (p LockoutPolicy) Decide(failedAttempts int, lockedUntil *time.Time, now time.Time) LockDecision {
	if lockedUntil == nil || !lockedUntil.After(now) {
		return LockDecision{}
	}
	return LockDecision{
		Locked:     true,
		RetryAfter: lockedUntil.Sub(now),
	}
}
