package services

import (
	"testing"
	"time"
)

func TestLockoutPolicy_Decide(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute)

	tests := []struct {
		name           string
		failedAttempts int
		lockedUntil    *time.Time
		expectedLocked bool
	}{
		{
			name:           "no failures",
			failedAttempts: 0,
			lockedUntil:    nil,
			expectedLocked: false,
		},
		{
			name:           "failures below threshold without lock",
			failedAttempts: 4,
			lockedUntil:    nil,
			expectedLocked: false,
		},
		{
			name:           "active lock",
			failedAttempts: 5,
			lockedUntil:    timePtr(now.Add(10 * time.Minute)),
			expectedLocked: true,
		},
		{
			name:           "lock expired exactly now",
			failedAttempts: 5,
			lockedUntil:    timePtr(now),
			expectedLocked: false,
		},
		{
			name:           "lock expired in the past",
			failedAttempts: 7,
			lockedUntil:    timePtr(now.Add(-time.Minute)),
			expectedLocked: false,
		},
		{
			name:           "threshold reached but lock cleared",
			failedAttempts: 5,
			lockedUntil:    nil,
			expectedLocked: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := policy.Decide(tt.failedAttempts, tt.lockedUntil, now)
			if decision.Locked != tt.expectedLocked {
				t.Errorf("expected locked=%v, got %v", tt.expectedLocked, decision.Locked)
			}
			if decision.Locked && decision.RetryAfter <= 0 {
				t.Errorf("expected positive retry-after, got %v", decision.RetryAfter)
			}
			if !decision.Locked && decision.RetryAfter != 0 {
				t.Errorf("expected zero retry-after when unlocked, got %v", decision.RetryAfter)
			}
		})
	}
}

func TestLockoutPolicy_RetryAfter(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	policy := NewLockoutPolicy(5, 15*time.Minute)

	decision := policy.Decide(5, timePtr(now.Add(9*time.Minute)), now)
	if !decision.Locked {
		t.Fatal("expected locked")
	}
	if decision.RetryAfter != 9*time.Minute {
		t.Errorf("expected retry-after 9m, got %v", decision.RetryAfter)
	}
}
