package dispatch

import (
	"fmt"
	"time"
)

// Policy rejection reasons.
const (
	ReasonNotOwner       = "not_owner"
	ReasonInactive       = "subscription_inactive"
	ReasonInFlight       = "scan_in_progress"
	ReasonCooldownActive = "cooldown_active"
)

// Sentinels for errors.Is. They match any PolicyError with the same reason.
var (
	ErrNotOwner       = &PolicyError{Reason: ReasonNotOwner}
	ErrInactive       = &PolicyError{Reason: ReasonInactive}
	ErrInFlight       = &PolicyError{Reason: ReasonInFlight}
	ErrCooldownActive = &PolicyError{Reason: ReasonCooldownActive}
)

// PolicyError rejects a trigger before any run is created. It carries what
// a caller needs to act without polling.
type PolicyError struct {
	Reason         string
	Message        string
	RetryAfter     time.Duration
	CooldownEndsAt *time.Time
	ExistingRunID  string
}

func (e *PolicyError) Error() string {
	if e.Message != "" {
		return "dispatch: " + e.Message
	}
	return "dispatch: rejected: " + e.Reason
}

// Is matches sentinels by reason.
func (e *PolicyError) Is(target error) bool {
	t, ok := target.(*PolicyError)
	return ok && t.Reason == e.Reason
}

// RetryAfterSeconds rounds RetryAfter up to whole seconds.
func (e *PolicyError) RetryAfterSeconds() int64 {
	secs := int64(e.RetryAfter / time.Second)
	if e.RetryAfter%time.Second != 0 {
		secs++
	}
	return secs
}

// ValidationError rejects malformed input.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("dispatch: invalid %s: %s", e.Field, e.Message)
}
