package llm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/salaheddineelazouti/Projet-innovation/pkg/anthropic"
	"github.com/salaheddineelazouti/Projet-innovation/pkg/gemini"
)

type mockAnthropic struct {
	mock.Mock
}

func (m *mockAnthropic) Complete(ctx context.Context, p anthropic.Prompt) (*anthropic.Completion, error) {
	args := m.Called(ctx, p)
	out, _ := args.Get(0).(*anthropic.Completion)
	return out, args.Error(1)
}

type mockGemini struct {
	mock.Mock
}

func (m *mockGemini) Generate(ctx context.Context, req gemini.GenerateRequest) (*gemini.GenerateResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*gemini.GenerateResponse)
	return resp, args.Error(1)
}

func TestAnthropic_Complete(t *testing.T) {
	client := &mockAnthropic{}
	client.On("Complete", mock.Anything, anthropic.Prompt{
		Model:       "claude-haiku-4-5",
		MaxTokens:   300,
		System:      "sys",
		User:        "bonjour",
		Temperature: 0.1,
	}).Return(&anthropic.Completion{
		Text:  `{"is_reorder": true}`,
		Usage: anthropic.Usage{Input: 10, Output: 5},
	}, nil)

	out, err := NewAnthropic(client).Complete(context.Background(), Request{
		Step:        "classify",
		Model:       "claude-haiku-4-5",
		System:      "sys",
		Prompt:      "bonjour",
		MaxTokens:   300,
		Temperature: 0.1,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"is_reorder": true}`, out)
	client.AssertExpectations(t)
}

func TestAnthropic_CompleteNoSystem(t *testing.T) {
	client := &mockAnthropic{}
	client.On("Complete", mock.Anything, mock.MatchedBy(func(p anthropic.Prompt) bool {
		return p.System == "" && p.User == "x"
	})).Return(&anthropic.Completion{}, nil)

	out, err := NewAnthropic(client).Complete(context.Background(), Request{Prompt: "x"})
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestAnthropic_CompleteError(t *testing.T) {
	client := &mockAnthropic{}
	client.On("Complete", mock.Anything, mock.Anything).Return(nil, errors.New("connection refused"))

	_, err := NewAnthropic(client).Complete(context.Background(), Request{Prompt: "x"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection refused")
}

func TestGemini_Complete(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.MatchedBy(func(req gemini.GenerateRequest) bool {
		return req.Model == "gemini-2.0-flash" &&
			req.System == "sys" &&
			req.Prompt == "salam" &&
			req.MaxOutputTokens == 2000 &&
			req.JSON &&
			req.Temperature != nil
	})).Return(&gemini.GenerateResponse{
		Text:  `{"confiance": 90}`,
		Usage: gemini.Usage{PromptTokens: 12, CandidateTokens: 4, TotalTokens: 16},
	}, nil)

	out, err := NewGemini(client).Complete(context.Background(), Request{
		Step:      "extract",
		Model:     "gemini-2.0-flash",
		System:    "sys",
		Prompt:    "salam",
		MaxTokens: 2000,
		JSON:      true,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"confiance": 90}`, out)
	client.AssertExpectations(t)
}

func TestGemini_CompleteError(t *testing.T) {
	client := &mockGemini{}
	client.On("Generate", mock.Anything, mock.Anything).Return(nil, context.DeadlineExceeded)

	_, err := NewGemini(client).Complete(context.Background(), Request{Prompt: "x"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNew(t *testing.T) {
	ctx := context.Background()

	c, err := New(ctx, Config{APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, c)

	c, err = New(ctx, Config{Provider: ProviderAnthropic, APIKey: "sk-test"})
	require.NoError(t, err)
	assert.IsType(t, &Anthropic{}, c)

	c, err = New(ctx, Config{Provider: ProviderGemini, APIKey: "g-test"})
	require.NoError(t, err)
	assert.IsType(t, &Gemini{}, c)
}

func TestNew_Errors(t *testing.T) {
	ctx := context.Background()

	_, err := New(ctx, Config{Provider: ProviderAnthropic})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "api key is required")

	_, err = New(ctx, Config{Provider: ProviderGemini})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "create gemini client")

	_, err = New(ctx, Config{Provider: "openai", APIKey: "k"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown provider "openai"`)
}
