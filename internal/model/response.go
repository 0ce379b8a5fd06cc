package model

import "time"

// CompetitorCount is a competitor name with its occurrence count.
type CompetitorCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// PlatformResponse is the recorded outcome of one (prompt, platform) query.
// Exactly one exists per pair, whether the call succeeded or not.
type PlatformResponse struct {
	RunID        string            `json:"run_id"`
	PromptID     string            `json:"prompt_id"`
	PromptIndex  int               `json:"prompt_index"`
	Platform     string            `json:"platform"`
	ResponseText *string           `json:"response_text,omitempty"`
	Mentioned    bool              `json:"mentioned"`
	Position     *int              `json:"position,omitempty"`
	Competitors  []CompetitorCount `json:"competitors,omitempty"`
	LatencyMS    int64             `json:"latency_ms"`
	ErrorMessage *string           `json:"error_message,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Succeeded reports whether the platform returned an answer.
func (r *PlatformResponse) Succeeded() bool {
	return r.ErrorMessage == nil
}
