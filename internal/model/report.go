package model

import "time"

// PlatformScore is the visibility score for one platform.
type PlatformScore struct {
	Platform   string `json:"platform"`
	Score      int    `json:"score"`
	Mentions   int    `json:"mentions"`
	Successful int    `json:"successful"`
	Failed     int    `json:"failed"`
}

// Report is the immutable result of a completed run.
type Report struct {
	RunID           string            `json:"run_id"`
	Token           string            `json:"token"`
	Domain          string            `json:"domain"`
	OverallScore    int               `json:"overall_score"`
	ProminenceScore int               `json:"prominence_score"`
	PlatformScores  []PlatformScore   `json:"platform_scores"`
	Competitors     []CompetitorCount `json:"competitors"`
	AllCompetitors  []CompetitorCount `json:"-"`
	MentionCount    int               `json:"mention_count"`
	QueryCount      int               `json:"query_count"`
	Summary         string            `json:"summary"`
	CreatedAt       time.Time         `json:"created_at"`
}
