package platform

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/visibility-cli/internal/resilience"
	"github.com/sells-group/visibility-cli/pkg/anthropic"
	anthropicmocks "github.com/sells-group/visibility-cli/pkg/anthropic/mocks"
	"github.com/sells-group/visibility-cli/pkg/gemini"
	geminimocks "github.com/sells-group/visibility-cli/pkg/gemini/mocks"
	"github.com/sells-group/visibility-cli/pkg/openai"
	openaimocks "github.com/sells-group/visibility-cli/pkg/openai/mocks"
	"github.com/sells-group/visibility-cli/pkg/perplexity"
	perplexitymocks "github.com/sells-group/visibility-cli/pkg/perplexity/mocks"
)

const question = "Who is the best emergency plumber in Austin?"

func TestOpenAI_Query(t *testing.T) {
	client := openaimocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req openai.ChatRequest) bool {
		return req.User == question && req.System == assistantInstruction && req.Model == "gpt-4.1-mini"
	})).Return(&openai.ChatResponse{Content: "  Acme Plumbing.  ", Model: "gpt-4.1-mini-2025"}, nil)

	p := NewOpenAI(client, "gpt-4.1-mini")
	ans, err := p.Query(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, NameOpenAI, p.Name())
	assert.Equal(t, "Acme Plumbing.", ans.Text)
	assert.Equal(t, "gpt-4.1-mini-2025", ans.Model)
}

func TestOpenAI_QueryErrorClassified(t *testing.T) {
	client := openaimocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, &openai.Error{StatusCode: 429, Err: errors.New("rate limited")})

	_, err := NewOpenAI(client, "").Query(context.Background(), question)
	require.Error(t, err)

	var pe *resilience.ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, NameOpenAI, pe.Platform)
	assert.Equal(t, 429, pe.StatusCode)
	assert.True(t, resilience.IsTransient(err))
}

func TestAnthropic_Query(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.MatchedBy(func(req anthropic.MessageRequest) bool {
		return len(req.Messages) == 1 && req.Messages[0].Content == question &&
			len(req.System) == 1 && req.System[0].CacheControl != nil
	})).Return(&anthropic.MessageResponse{
		Model:   "claude-haiku-4-5-20251001",
		Content: []anthropic.ContentBlock{{Type: "text", Text: "Consider Acme Plumbing."}},
	}, nil)

	ans, err := NewAnthropic(client, "claude-haiku-4-5-20251001").Query(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, "Consider Acme Plumbing.", ans.Text)
}

func TestAnthropic_QueryPermanentError(t *testing.T) {
	client := anthropicmocks.NewMockClient(t)
	client.On("CreateMessage", mock.Anything, mock.Anything).
		Return(nil, &anthropic.Error{StatusCode: 400, Err: errors.New("invalid request")})

	_, err := NewAnthropic(client, "m").Query(context.Background(), question)
	require.Error(t, err)
	assert.False(t, resilience.IsTransient(err))
}

func TestGemini_Query(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.On("GenerateContent", mock.Anything, mock.MatchedBy(func(req gemini.GenerateRequest) bool {
		return req.Prompt == question && req.Model == "gemini-2.5-flash"
	})).Return(&gemini.GenerateResponse{Text: "Try Acme."}, nil)

	ans, err := NewGemini(client, "gemini-2.5-flash").Query(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, "Try Acme.", ans.Text)
	assert.Equal(t, "gemini-2.5-flash", ans.Model)
}

func TestGemini_EmptyAnswerIsError(t *testing.T) {
	client := geminimocks.NewMockClient(t)
	client.On("GenerateContent", mock.Anything, mock.Anything).Return(&gemini.GenerateResponse{Text: "  "}, nil)

	_, err := NewGemini(client, "gemini-2.5-flash").Query(context.Background(), question)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty answer")
	assert.False(t, resilience.IsTransient(err))
}

func TestPerplexity_QueryKeepsCitations(t *testing.T) {
	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.MatchedBy(func(req perplexity.ChatCompletionRequest) bool {
		return len(req.Messages) == 2 && req.Messages[0].Role == "system" && req.Messages[1].Content == question
	})).Return(&perplexity.ChatCompletionResponse{
		Model:     "sonar",
		Choices:   []perplexity.Choice{{Message: perplexity.Message{Role: "assistant", Content: "Acme [1]"}}},
		Citations: []string{"https://acme-plumbing.com"},
	}, nil)

	ans, err := NewPerplexity(client, "sonar").Query(context.Background(), question)
	require.NoError(t, err)
	assert.Equal(t, "Acme [1]", ans.Text)
	assert.Equal(t, []string{"https://acme-plumbing.com"}, ans.Citations)
}

func TestPerplexity_QueryStatusError(t *testing.T) {
	client := perplexitymocks.NewMockClient(t)
	client.On("ChatCompletion", mock.Anything, mock.Anything).
		Return(nil, &perplexity.Error{StatusCode: 502, Body: "bad gateway"})

	_, err := NewPerplexity(client, "sonar").Query(context.Background(), question)
	require.Error(t, err)
	assert.True(t, resilience.IsTransient(err))
	assert.Contains(t, err.Error(), "perplexity: status 502")
}

func TestFuncAndNames(t *testing.T) {
	p := Func{PlatformName: "fake", Fn: func(_ context.Context, prompt string) (*Answer, error) {
		return &Answer{Text: "echo " + prompt}, nil
	}}
	ans, err := p.Query(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "echo hi", ans.Text)
	assert.Equal(t, []string{"fake"}, Names([]Platform{p}))
}
