package model

import "time"

// CooldownState is derived on demand from the latest manual run.
type CooldownState struct {
	CanTrigger        bool       `json:"can_trigger"`
	Reason            string     `json:"reason,omitempty"`
	RetryAfterSeconds int64      `json:"retry_after_seconds,omitempty"`
	CooldownEndsAt    *time.Time `json:"cooldown_ends_at,omitempty"`
}

// ComputeCooldown derives the cooldown state from the creation time of the
// most recent manual run. A nil lastManual means no manual run exists.
func ComputeCooldown(lastManual *time.Time, window time.Duration, now time.Time) CooldownState {
	if lastManual == nil {
		return CooldownState{CanTrigger: true}
	}
	ends := lastManual.Add(window)
	if !now.Before(ends) {
		return CooldownState{CanTrigger: true}
	}
	remaining := ends.Sub(now)
	secs := int64(remaining / time.Second)
	if remaining%time.Second != 0 {
		secs++
	}
	endsUTC := ends.UTC()
	return CooldownState{
		CanTrigger:        false,
		Reason:            "cooldown_active",
		RetryAfterSeconds: secs,
		CooldownEndsAt:    &endsUTC,
	}
}
