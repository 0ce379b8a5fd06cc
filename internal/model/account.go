package model

import "time"

// Account is the owner of runs and subscriptions. Anonymous visitors get an
// account (lead) keyed by email on their first scan.
type Account struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// SubscriptionStatus mirrors the billing collaborator's subscription state.
type SubscriptionStatus string

const (
	SubscriptionActive    SubscriptionStatus = "active"
	SubscriptionPastDue   SubscriptionStatus = "past_due"
	SubscriptionCancelled SubscriptionStatus = "cancelled"
)

// Subscription is a paid monitoring plan for one domain.
type Subscription struct {
	ID          string             `json:"id"`
	AccountID   string             `json:"account_id"`
	Domain      string             `json:"domain"`
	Status      SubscriptionStatus `json:"status"`
	Competitors []string           `json:"competitors,omitempty"`
	CreatedAt   time.Time          `json:"created_at"`
}

// IsActive reports whether the subscription may trigger scans.
func (s *Subscription) IsActive() bool {
	return s.Status == SubscriptionActive
}
