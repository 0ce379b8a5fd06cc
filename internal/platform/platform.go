// Package platform queries AI assistants with one natural-language prompt at a
// time behind a uniform interface.
package platform

import (
	"context"
	"time"
)

// Platform names as recorded on PlatformResponse rows.
const (
	NameOpenAI     = "openai"
	NameAnthropic  = "anthropic"
	NameGemini     = "gemini"
	NamePerplexity = "perplexity"
)

// assistantInstruction asks every provider for the answer a consumer would
// see in the provider's own chat product.
const assistantInstruction = "You are a helpful AI assistant answering a consumer's question. " +
	"Answer naturally and specifically. When the question asks for businesses, providers, " +
	"or products, recommend real ones by name and explain briefly why."

const (
	answerTemperature = 0.7
	answerMaxTokens   = 1024
)

// Answer is one provider reply.
type Answer struct {
	Text      string   `json:"text"`
	Model     string   `json:"model,omitempty"`
	Citations []string `json:"citations,omitempty"`
	LatencyMS int64    `json:"latency_ms"`
}

// Platform sends one prompt to one AI provider.
type Platform interface {
	Name() string
	Query(ctx context.Context, prompt string) (*Answer, error)
}

// Func adapts a function to Platform.
type Func struct {
	PlatformName string
	Fn           func(ctx context.Context, prompt string) (*Answer, error)
}

// Name implements Platform.
func (f Func) Name() string { return f.PlatformName }

// Query implements Platform.
func (f Func) Query(ctx context.Context, prompt string) (*Answer, error) {
	start := time.Now()
	ans, err := f.Fn(ctx, prompt)
	if ans != nil && ans.LatencyMS == 0 {
		ans.LatencyMS = time.Since(start).Milliseconds()
	}
	return ans, err
}

// Names returns the names of ps in order.
func Names(ps []Platform) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name()
	}
	return out
}
