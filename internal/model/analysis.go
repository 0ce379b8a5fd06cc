package model

import "time"

// MaxExcerptChars bounds the raw content archived with a SiteAnalysis.
const MaxExcerptChars = 50000

// PageSummary describes one crawled page.
type PageSummary struct {
	URL        string `json:"url"`
	Title      string `json:"title"`
	StatusCode int    `json:"status_code"`
	Chars      int    `json:"chars"`
}

// CrawlResult is the ephemeral output of the crawler. It is never persisted.
type CrawlResult struct {
	PageCount int           `json:"page_count"`
	Content   string        `json:"-"`
	Pages     []PageSummary `json:"pages"`
}

// Empty reports whether nothing usable was crawled.
func (c *CrawlResult) Empty() bool {
	return c == nil || c.PageCount == 0
}

// SiteAnalysis holds business attributes extracted from crawled content.
type SiteAnalysis struct {
	RunID          string    `json:"run_id" yaml:"run_id"`
	BusinessType   string    `json:"business_type" yaml:"business_type"`
	BusinessName   *string   `json:"business_name,omitempty" yaml:"business_name,omitempty"`
	Services       []string  `json:"services" yaml:"services"`
	Location       string    `json:"location" yaml:"location"`
	TargetAudience string    `json:"target_audience" yaml:"target_audience"`
	KeyPhrases     []string  `json:"key_phrases" yaml:"key_phrases"`
	Competitors    []string  `json:"competitors,omitempty" yaml:"competitors,omitempty"`
	PageCount      int       `json:"page_count" yaml:"page_count"`
	LowConfidence  bool      `json:"low_confidence" yaml:"low_confidence"`
	ContentExcerpt string    `json:"-" yaml:"-"`
	CreatedAt      time.Time `json:"created_at" yaml:"created_at"`
}

// Truncate returns s cut to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
