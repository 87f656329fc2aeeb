package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

const (
	DefaultOpenAIModel = "gpt-4o"
	DefaultGeminiModel = "gemini-2.5-flash"
	// GeminiBaseURL is Google's OpenAI-compatible endpoint.
	GeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta/openai/"
)

// OpenAI is a Provider for the OpenAI chat completions API and any service
// exposing a compatible endpoint.
type OpenAI struct {
	name   string
	client *openai.Client
	model  string
}

// NewOpenAI returns a provider named name. baseURL may be empty for the
// default OpenAI endpoint.
func NewOpenAI(name, apiKey, model, baseURL string) *OpenAI {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	if model == "" {
		model = DefaultOpenAIModel
	}
	return &OpenAI{name: name, client: openai.NewClientWithConfig(cfg), model: model}
}

// NewGemini returns a Gemini provider using the OpenAI-compatible endpoint.
func NewGemini(apiKey, model string) *OpenAI {
	if model == "" {
		model = DefaultGeminiModel
	}
	return NewOpenAI("gemini", apiKey, model, GeminiBaseURL)
}

func (o *OpenAI) Name() string { return o.name }

func (o *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     o.model,
		MaxTokens: maxTokens,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return "", fmt.Errorf("%s API call: %w", o.name, err)
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}
