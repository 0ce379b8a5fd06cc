package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
)

const generatorSystem = `You write the questions a prospective customer would type into an AI assistant
while looking for a business like the one described. Questions must read like real
consumer questions, must not name the business or its website, and must be specific
to its services and location when known.
Respond with a single JSON object and nothing else:
{"prompts": [{"text": string, "category": string}]}`

// ErrNoPrompts is returned when generation yields no usable prompt.
var ErrNoPrompts = eris.New("pipeline: prompt generator returned no prompts")

// PromptGenerator writes the questions posed to every platform.
type PromptGenerator struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	count     int
}

// NewPromptGenerator creates a PromptGenerator producing fo.PromptCount
// prompts.
func NewPromptGenerator(client anthropic.Client, aiCfg config.AnthropicConfig, fo config.FanOutConfig) *PromptGenerator {
	maxTokens := aiCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	count := fo.PromptCount
	if count <= 0 {
		count = 9
	}
	return &PromptGenerator{client: client, model: aiCfg.AnalysisModel, maxTokens: maxTokens, count: count}
}

// categoryPlan spreads n prompts over the categories round-robin.
func categoryPlan(n int) []model.PromptCategory {
	all := model.AllPromptCategories()
	plan := make([]model.PromptCategory, n)
	for i := range plan {
		plan[i] = all[i%len(all)]
	}
	return plan
}

type promptReply struct {
	Prompts []struct {
		Text     string `json:"text"`
		Category string `json:"category"`
	} `json:"prompts"`
}

// Generate returns up to the configured number of prompts for runID.
// Blank and duplicate prompts are dropped; an empty result is ErrNoPrompts.
func (g *PromptGenerator) Generate(ctx context.Context, runID, domain string, analysis *model.SiteAnalysis) ([]model.Prompt, error) {
	plan := categoryPlan(g.count)

	var user strings.Builder
	fmt.Fprintf(&user, "Business type: %s\n", analysis.BusinessType)
	if analysis.Location != "" {
		fmt.Fprintf(&user, "Location: %s\n", analysis.Location)
	}
	if len(analysis.Services) > 0 {
		fmt.Fprintf(&user, "Services: %s\n", strings.Join(analysis.Services, ", "))
	}
	if analysis.TargetAudience != "" {
		fmt.Fprintf(&user, "Customers: %s\n", analysis.TargetAudience)
	}
	if len(analysis.KeyPhrases) > 0 {
		fmt.Fprintf(&user, "Key phrases: %s\n", strings.Join(analysis.KeyPhrases, ", "))
	}
	fmt.Fprintf(&user, "\nWrite exactly %d questions with these categories, in order:\n", g.count)
	for i, c := range plan {
		fmt.Fprintf(&user, "%d. %s\n", i+1, c)
	}
	user.WriteString("\nCategories: recommendation (asks who is best), comparison (weighs options), " +
		"local (near a place), problem (describes a need), service (asks about a specific service).")

	resp, err := g.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     g.model,
		MaxTokens: g.maxTokens,
		System:    []anthropic.SystemBlock{{Text: generatorSystem}},
		Messages:  []anthropic.Message{{Role: "user", Content: user.String()}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: generate prompts")
	}
	resp.Usage.LogCost(g.model, "generate", zap.String("domain", domain))

	var reply promptReply
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &reply); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse prompts")
	}

	prompts := make([]model.Prompt, 0, g.count)
	seen := make(map[string]bool)
	for _, p := range reply.Prompts {
		text := strings.TrimSpace(p.Text)
		key := strings.ToLower(text)
		if text == "" || seen[key] {
			continue
		}
		seen[key] = true

		idx := len(prompts)
		category := plan[idx]
		if c := strings.ToLower(strings.TrimSpace(p.Category)); c != "" {
			if parsed := model.ParsePromptCategory(c); string(parsed) == c {
				category = parsed
			}
		}
		prompts = append(prompts, model.Prompt{
			ID:       uuid.NewString(),
			RunID:    runID,
			Index:    idx,
			Text:     text,
			Category: category,
		})
		if len(prompts) == g.count {
			break
		}
	}

	if len(prompts) == 0 {
		return nil, ErrNoPrompts
	}
	if len(prompts) < g.count {
		zap.L().Warn("pipeline: fewer prompts than requested",
			zap.String("run_id", runID),
			zap.Int("requested", g.count),
			zap.Int("got", len(prompts)),
		)
	}
	return prompts, nil
}
