package answer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// DefaultMaxOutputTokens limits the length of an answer.
const DefaultMaxOutputTokens = 2048

// ErrNoAPIKey is returned if no api key is configured.
var ErrNoAPIKey = errors.New("anthropic api key not set")

// Answerer generates a natural language answer for a prompt.
type Answerer interface {
	Answer(ctx context.Context, prompt Prompt) (string, error)
}

// AnthropicConfig configures an AnthropicAnswerer.
type AnthropicConfig struct {
	APIKey          string
	Model           string
	MaxOutputTokens int
	// Options are appended to the client options, e.g. a custom base url.
	Options []option.RequestOption
}

// AnthropicAnswerer answers prompts with the Anthropic messages api.
type AnthropicAnswerer struct {
	client          anthropic.Client
	model           string
	maxOutputTokens int64
	log             *slog.Logger
}

// NewAnthropicAnswerer creates an answerer. It returns ErrNoAPIKey without api key.
func NewAnthropicAnswerer(config AnthropicConfig, logger *slog.Logger) (*AnthropicAnswerer, error) {
	if config.APIKey == "" {
		return nil, ErrNoAPIKey
	}
	if config.Model == "" {
		return nil, fmt.Errorf("anthropic model not set")
	}
	if logger == nil {
		logger = slog.Default()
	}

	opts := []option.RequestOption{option.WithAPIKey(config.APIKey)}
	opts = append(opts, config.Options...)

	maxTokens := int64(DefaultMaxOutputTokens)
	if config.MaxOutputTokens > 0 {
		maxTokens = int64(config.MaxOutputTokens)
	}

	return &AnthropicAnswerer{
		client:          anthropic.NewClient(opts...),
		model:           config.Model,
		maxOutputTokens: maxTokens,
		log:             logger,
	}, nil
}

func (a *AnthropicAnswerer) Answer(ctx context.Context, prompt Prompt) (string, error) {
	a.log.Info("Requesting answer", slog.String("model", a.model))

	message, err := a.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(a.model),
		MaxTokens: a.maxOutputTokens,
		System: []anthropic.TextBlockParam{
			{Text: prompt.System},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt.User)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("failed to generate answer: %w", err)
	}

	var text string
	for _, block := range message.Content {
		if block.Type == "text" {
			text += block.Text
		}
	}

	a.log.Info("Received answer", slog.Int64("input_tokens", message.Usage.InputTokens), slog.Int64("output_tokens", message.Usage.OutputTokens))

	return text, nil
}
