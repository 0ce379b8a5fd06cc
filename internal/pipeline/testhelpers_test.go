package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/internal/notify"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
)

type fakeCrawler struct {
	result *model.CrawlResult
	err    error
}

func (f fakeCrawler) Crawl(_ context.Context, _ string) (*model.CrawlResult, error) {
	return f.result, f.err
}

type captureNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (c *captureNotifier) Publish(_ context.Context, ev notify.Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
	return c.err
}

func (c *captureNotifier) Close() error { return nil }

func textResponse(text string) *anthropic.MessageResponse {
	return &anthropic.MessageResponse{
		ID:      "msg_1",
		Model:   "claude-test",
		Content: []anthropic.ContentBlock{{Type: "text", Text: text}},
	}
}

// isAnalysisRequest matches the analyzer's call.
func isAnalysisRequest() any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && req.System[0].Text == analyzerSystem
	})
}

// isGenerateRequest matches the prompt generator's call.
func isGenerateRequest() any {
	return mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.System) > 0 && req.System[0].Text == generatorSystem
	})
}

const acmeAnalysisJSON = "```json\n" + `{
  "business_type": "residential plumber",
  "business_name": "Acme Plumbing",
  "services": ["drain cleaning", "water heater repair", "drain cleaning", " "],
  "location": "Denver, CO",
  "target_audience": "homeowners",
  "key_phrases": ["24/7 emergency plumbing"],
  "competitors": ["Roto-Rooter"]
}` + "\n```"

// promptsJSON returns a generator reply with n numbered questions.
func promptsJSON(n int) string {
	type item struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	}
	var items []item
	cats := model.AllPromptCategories()
	for i := range n {
		items = append(items, item{Text: fmt.Sprintf("Question %d about plumbers in Denver?", i), Category: string(cats[i%len(cats)])})
	}
	b, _ := json.Marshal(map[string]any{"prompts": items})
	return string(b)
}

// promptIndex recovers the index from a question written by promptsJSON.
func promptIndex(prompt string) int {
	var i int
	_, _ = fmt.Sscanf(strings.TrimPrefix(prompt, "Question "), "%d", &i)
	return i
}
