package model

import "time"

// RunStatus represents the current state of a scan run.
type RunStatus string

const (
	RunStatusPending    RunStatus = "pending"
	RunStatusCrawling   RunStatus = "crawling"
	RunStatusAnalyzing  RunStatus = "analyzing"
	RunStatusGenerating RunStatus = "generating"
	RunStatusQuerying   RunStatus = "querying"
	RunStatusComplete   RunStatus = "complete"
	RunStatusFailed     RunStatus = "failed"
)

// Progress checkpoints written when a run enters each status. The querying
// stage advances from ProgressQueryStart to ProgressQueryEnd as calls resolve.
const (
	ProgressPending    = 0
	ProgressCrawling   = 10
	ProgressAnalyzing  = 25
	ProgressGenerating = 40
	ProgressQueryStart = 50
	ProgressQueryEnd   = 85
	ProgressComplete   = 100
)

// statusOrder ranks forward statuses; failed is reachable from any non-terminal.
var statusOrder = map[RunStatus]int{
	RunStatusPending:    0,
	RunStatusCrawling:   1,
	RunStatusAnalyzing:  2,
	RunStatusGenerating: 3,
	RunStatusQuerying:   4,
	RunStatusComplete:   5,
}

// IsTerminal reports whether no further transitions are possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Valid reports whether s is a known status.
func (s RunStatus) Valid() bool {
	if s == RunStatusFailed {
		return true
	}
	_, ok := statusOrder[s]
	return ok
}

// CanTransition reports whether a run in status s may move to next.
// Forward moves go one stage at a time; failed is reachable from any
// non-terminal status.
func (s RunStatus) CanTransition(next RunStatus) bool {
	if s.IsTerminal() {
		return false
	}
	if next == RunStatusFailed {
		return true
	}
	from, ok := statusOrder[s]
	if !ok {
		return false
	}
	to, ok := statusOrder[next]
	if !ok {
		return false
	}
	return to == from+1
}

// EntryProgress is the progress value written when a run enters s.
func (s RunStatus) EntryProgress() int {
	switch s {
	case RunStatusCrawling:
		return ProgressCrawling
	case RunStatusAnalyzing:
		return ProgressAnalyzing
	case RunStatusGenerating:
		return ProgressGenerating
	case RunStatusQuerying:
		return ProgressQueryStart
	case RunStatusComplete:
		return ProgressComplete
	default:
		return ProgressPending
	}
}

// NonTerminalStatuses lists every status a run can be "in flight" in.
func NonTerminalStatuses() []RunStatus {
	return []RunStatus{
		RunStatusPending,
		RunStatusCrawling,
		RunStatusAnalyzing,
		RunStatusGenerating,
		RunStatusQuerying,
	}
}

// TriggerKind records what created a run.
type TriggerKind string

const (
	TriggerAutomatic TriggerKind = "automatic"
	TriggerManual    TriggerKind = "manual"
	TriggerScheduled TriggerKind = "scheduled"
)

// Valid reports whether k is a known trigger kind.
func (k TriggerKind) Valid() bool {
	switch k {
	case TriggerAutomatic, TriggerManual, TriggerScheduled:
		return true
	}
	return false
}

// Run represents a single scan attempt for a domain.
type Run struct {
	ID             string      `json:"id" yaml:"id"`
	AccountID      string      `json:"account_id" yaml:"account_id"`
	SubscriptionID *string     `json:"subscription_id,omitempty" yaml:"subscription_id,omitempty"`
	Domain         string      `json:"domain" yaml:"domain"`
	Status         RunStatus   `json:"status" yaml:"status"`
	Progress       int         `json:"progress" yaml:"progress"`
	Trigger        TriggerKind `json:"trigger_kind" yaml:"trigger_kind"`
	CreatedAt      time.Time   `json:"created_at" yaml:"created_at"`
	StartedAt      *time.Time  `json:"started_at,omitempty" yaml:"started_at,omitempty"`
	CompletedAt    *time.Time  `json:"completed_at,omitempty" yaml:"completed_at,omitempty"`
	Error          *string     `json:"error,omitempty" yaml:"error,omitempty"`
}

// NewRun describes a run to be created by the store.
type NewRun struct {
	AccountID      string
	SubscriptionID *string
	Domain         string
	Trigger        TriggerKind
}

// RunStatusView is the polled view of a run.
type RunStatusView struct {
	RunID    string    `json:"run_id"`
	Status   RunStatus `json:"status"`
	Progress int       `json:"progress"`
	Error    *string   `json:"error,omitempty"`
}

// StatusView projects a run onto its polled status.
func (r *Run) StatusView() RunStatusView {
	return RunStatusView{
		RunID:    r.ID,
		Status:   r.Status,
		Progress: r.Progress,
		Error:    r.Error,
	}
}
