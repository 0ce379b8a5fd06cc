package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/visibility-cli/internal/config"
	"github.com/sells-group/visibility-cli/internal/model"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
)

const (
	maxAnalysisItems = 12
	unknownBusiness  = "local business"
)

const analyzerSystem = `You analyze the text of a business website and describe the business.
Respond with a single JSON object and nothing else, using exactly these keys:
{"business_type": string, "business_name": string or null, "services": [string],
"location": string, "target_audience": string, "key_phrases": [string], "competitors": [string]}
business_type is a short noun phrase such as "residential plumber" or "family dentist".
location is the city and region served, or "" if unknown. competitors lists only
businesses the site itself names as alternatives or partners; use [] when none are named.
Never invent a business name; use null when the site does not state one.`

// Analyzer extracts business attributes from crawled content with one
// Claude call.
type Analyzer struct {
	client          anthropic.Client
	model           string
	maxTokens       int64
	maxContentChars int
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(client anthropic.Client, aiCfg config.AnthropicConfig, crawlCfg config.CrawlConfig) *Analyzer {
	maxTokens := aiCfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 2048
	}
	maxChars := crawlCfg.MaxContentChars
	if maxChars <= 0 {
		maxChars = 60000
	}
	return &Analyzer{
		client:          client,
		model:           aiCfg.AnalysisModel,
		maxTokens:       maxTokens,
		maxContentChars: maxChars,
	}
}

type analysisReply struct {
	BusinessType   string   `json:"business_type"`
	BusinessName   *string  `json:"business_name"`
	Services       []string `json:"services"`
	Location       string   `json:"location"`
	TargetAudience string   `json:"target_audience"`
	KeyPhrases     []string `json:"key_phrases"`
	Competitors    []string `json:"competitors"`
}

// Analyze describes the business behind domain. An empty crawl is analyzed
// from the domain alone and flagged low confidence.
func (a *Analyzer) Analyze(ctx context.Context, domain string, crawl *model.CrawlResult) (*model.SiteAnalysis, error) {
	content := ""
	pageCount := 0
	if crawl != nil {
		content = crawl.Content
		pageCount = crawl.PageCount
	}
	lowConfidence := crawl.Empty() || strings.TrimSpace(content) == ""

	var user strings.Builder
	fmt.Fprintf(&user, "Website domain: %s\n\n", domain)
	if lowConfidence {
		user.WriteString("No pages could be retrieved from this website. " +
			"Infer what you reasonably can from the domain name alone and keep lists short.\n")
	} else {
		user.WriteString("Website content:\n")
		user.WriteString(model.Truncate(content, a.maxContentChars))
	}

	resp, err := a.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     a.model,
		MaxTokens: a.maxTokens,
		System:    []anthropic.SystemBlock{{Text: analyzerSystem}},
		Messages:  []anthropic.Message{{Role: "user", Content: user.String()}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: analyze site")
	}
	resp.Usage.LogCost(a.model, "analyze", zap.String("domain", domain))

	var reply analysisReply
	if err := json.Unmarshal([]byte(cleanJSON(resp.Text())), &reply); err != nil {
		return nil, eris.Wrap(err, "pipeline: parse site analysis")
	}

	analysis := &model.SiteAnalysis{
		BusinessType:   strings.TrimSpace(reply.BusinessType),
		Services:       cleanList(reply.Services, maxAnalysisItems),
		Location:       strings.TrimSpace(reply.Location),
		TargetAudience: strings.TrimSpace(reply.TargetAudience),
		KeyPhrases:     cleanList(reply.KeyPhrases, maxAnalysisItems),
		Competitors:    cleanList(reply.Competitors, maxAnalysisItems),
		PageCount:      pageCount,
		LowConfidence:  lowConfidence,
		ContentExcerpt: model.Truncate(content, model.MaxExcerptChars),
	}
	if analysis.BusinessType == "" {
		analysis.BusinessType = unknownBusiness
	}
	if reply.BusinessName != nil {
		if name := strings.TrimSpace(*reply.BusinessName); name != "" && !strings.EqualFold(name, "null") {
			analysis.BusinessName = &name
		}
	}
	return analysis, nil
}
