package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultAnthropicModel is used when no model is configured.
const DefaultAnthropicModel = "claude-sonnet-4-5"

// Anthropic is a Provider backed by the Anthropic Messages API.
type Anthropic struct {
	api   *anthropic.Client
	model anthropic.Model
}

// NewAnthropic creates a provider with the given API key and model. An
// empty key falls back to the SDK's environment lookup.
func NewAnthropic(apiKey, model string) *Anthropic {
	opts := []option.RequestOption{}
	if apiKey != "" {
		opts = append(opts, option.WithAPIKey(apiKey))
	}
	if model == "" {
		model = DefaultAnthropicModel
	}
	client := anthropic.NewClient(opts...)
	return &Anthropic{
		api:   &client,
		model: anthropic.Model(model),
	}
}

func (a *Anthropic) Name() string { return "claude" }

func (a *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	msg, err := a.api.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     a.model,
		MaxTokens: maxTokens,
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic API call: %w", err)
	}

	var sb strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	if sb.Len() == 0 {
		return "", ErrEmptyResponse
	}
	return sb.String(), nil
}
