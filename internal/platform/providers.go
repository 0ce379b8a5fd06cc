package platform

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	"github.com/sells-group/visibility-cli/pkg/gemini"
	"github.com/sells-group/visibility-cli/pkg/openai"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
)

var errEmptyAnswer = eris.New("platform: empty answer")

func temperature() *float64 {
	t := answerTemperature
	return &t
}

// OpenAI answers prompts with a GPT-family model.
type OpenAI struct {
	client openai.Client
	model  string
}

// NewOpenAI wraps an OpenAI client.
func NewOpenAI(client openai.Client, model string) *OpenAI {
	return &OpenAI{client: client, model: model}
}

// Name implements Platform.
func (p *OpenAI) Name() string { return NameOpenAI }

// Query implements Platform.
func (p *OpenAI) Query(ctx context.Context, prompt string) (*Answer, error) {
	resp, err := p.client.ChatCompletion(ctx, openai.ChatRequest{
		Model:       p.model,
		System:      assistantInstruction,
		User:        prompt,
		Temperature: temperature(),
		MaxTokens:   answerMaxTokens,
	})
	if err != nil {
		return nil, resilience.NewProviderError(NameOpenAI, openai.StatusCode(err), err)
	}
	return answer(NameOpenAI, resp.Content, resp.Model, nil)
}

// Anthropic answers prompts with a Claude-family model.
type Anthropic struct {
	client anthropic.Client
	model  string
}

// NewAnthropic wraps an Anthropic client.
func NewAnthropic(client anthropic.Client, model string) *Anthropic {
	return &Anthropic{client: client, model: model}
}

// Name implements Platform.
func (p *Anthropic) Name() string { return NameAnthropic }

// Query implements Platform.
func (p *Anthropic) Query(ctx context.Context, prompt string) (*Answer, error) {
	resp, err := p.client.CreateMessage(ctx, anthropic.MessageRequest{
		Model:       p.model,
		MaxTokens:   answerMaxTokens,
		System:      anthropic.CachedSystem(assistantInstruction),
		Messages:    []anthropic.Message{{Role: "user", Content: prompt}},
		Temperature: temperature(),
	})
	if err != nil {
		return nil, resilience.NewProviderError(NameAnthropic, anthropic.StatusCode(err), err)
	}
	return answer(NameAnthropic, resp.Text(), resp.Model, nil)
}

// Gemini answers prompts with a Gemini-family model.
type Gemini struct {
	client gemini.Client
	model  string
}

// NewGemini wraps a Gemini client.
func NewGemini(client gemini.Client, model string) *Gemini {
	return &Gemini{client: client, model: model}
}

// Name implements Platform.
func (p *Gemini) Name() string { return NameGemini }

// Query implements Platform.
func (p *Gemini) Query(ctx context.Context, prompt string) (*Answer, error) {
	resp, err := p.client.GenerateContent(ctx, gemini.GenerateRequest{
		Model:           p.model,
		System:          assistantInstruction,
		Prompt:          prompt,
		Temperature:     temperature(),
		MaxOutputTokens: answerMaxTokens,
	})
	if err != nil {
		return nil, resilience.NewProviderError(NameGemini, gemini.StatusCode(err), err)
	}
	model := resp.ModelVersion
	if model == "" {
		model = p.model
	}
	return answer(NameGemini, resp.Text, model, nil)
}

// Perplexity answers prompts with a search-grounded Sonar model. Its
// citations are kept so a cited target domain counts as a mention.
type Perplexity struct {
	client perplexity.Client
	model  string
}

// NewPerplexity wraps a Perplexity client.
func NewPerplexity(client perplexity.Client, model string) *Perplexity {
	return &Perplexity{client: client, model: model}
}

// Name implements Platform.
func (p *Perplexity) Name() string { return NamePerplexity }

// Query implements Platform.
func (p *Perplexity) Query(ctx context.Context, prompt string) (*Answer, error) {
	maxTokens := answerMaxTokens
	resp, err := p.client.ChatCompletion(ctx, perplexity.ChatCompletionRequest{
		Model: p.model,
		Messages: []perplexity.Message{
			{Role: "system", Content: assistantInstruction},
			{Role: "user", Content: prompt},
		},
		Temperature: temperature(),
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		return nil, resilience.NewProviderError(NamePerplexity, perplexity.StatusCode(err), err)
	}
	return answer(NamePerplexity, resp.Content(), resp.Model, resp.Citations)
}

func answer(name, text, model string, citations []string) (*Answer, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, resilience.NewProviderError(name, 0, errEmptyAnswer)
	}
	return &Answer{Text: text, Model: model, Citations: citations}, nil
}
