package platform

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/gemini"
	"github.com/sells-group/visibility-cli/pkg/openai"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
)

// Roster builds the guarded platform list from configuration. Providers
// without an API key are skipped. The order is stable: openai, anthropic,
// gemini, perplexity.
func Roster(cfg *config.Config, breakers *resilience.BreakerSet) ([]Platform, error) {
	var raw []Platform
	if cfg.OpenAI.Key != "" {
		var opts []openai.Option
		if cfg.OpenAI.BaseURL != "" {
			opts = append(opts, openai.WithBaseURL(cfg.OpenAI.BaseURL))
		}
		raw = append(raw, NewOpenAI(openai.NewClient(cfg.OpenAI.Key, opts...), cfg.OpenAI.Model))
	}
	if cfg.Anthropic.Key != "" {
		raw = append(raw, NewAnthropic(anthropic.NewClient(cfg.Anthropic.Key), cfg.Anthropic.PlatformModel))
	}
	if cfg.Gemini.Key != "" {
		client := gemini.NewClient(cfg.Gemini.Key,
			gemini.WithBaseURL(cfg.Gemini.BaseURL),
			gemini.WithModel(cfg.Gemini.Model),
		)
		raw = append(raw, NewGemini(client, cfg.Gemini.Model))
	}
	if cfg.Perplexity.Key != "" {
		client := perplexity.NewClient(cfg.Perplexity.Key,
			perplexity.WithBaseURL(cfg.Perplexity.BaseURL),
			perplexity.WithModel(cfg.Perplexity.Model),
		)
		raw = append(raw, NewPerplexity(client, cfg.Perplexity.Model))
	}

	if len(raw) == 0 {
		return nil, eris.New("platform: no platforms configured (set at least one provider key)")
	}
	return GuardAll(raw, cfg.FanOut, breakers), nil
}

// GuardAll wraps each platform with the fan-out's throttling, timeout, retry
// and breaker settings.
func GuardAll(ps []Platform, fo config.FanOutConfig, breakers *resilience.BreakerSet) []Platform {
	out := make([]Platform, len(ps))
	for i, p := range ps {
		opts := GuardOptions{
			RequestsPerSecond: fo.RequestsPerSecond,
			Burst:             fo.PerPlatformConcurrency,
			CallTimeout:       fo.CallTimeout(),
			Retry:             resilience.PolicyFromFanOut(fo),
		}
		if breakers != nil {
			opts.Breaker = breakers.For(p.Name())
		}
		out[i] = Guard(p, opts)
	}
	return out
}
