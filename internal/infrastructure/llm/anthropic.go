package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"NewsDesk/internal/config"
	"NewsDesk/internal/domain"
	"NewsDesk/internal/ports"
)

const defaultAnthropicMaxTokens = 2048

// AnthropicClient implements ports.ChatClient with the Messages API.
type AnthropicClient struct {
	client    anthropic.Client
	model     string
	maxTokens int64
	timeout   time.Duration
}

var _ ports.ChatClient = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client from configuration. A non-empty Endpoint
// overrides the SDK base URL.
func NewAnthropicClient(cfg config.LLMConfig) *AnthropicClient {
	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithMaxRetries(0),
	}
	if cfg.Endpoint != "" {
		opts = append(opts, option.WithBaseURL(cfg.Endpoint))
	}

	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultAnthropicMaxTokens
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &AnthropicClient{
		client:    anthropic.NewClient(opts...),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   timeout,
	}
}

// Complete sends a single user turn with the system persona and joins the text blocks.
func (c *AnthropicClient) Complete(ctx context.Context, req domain.ChatRequest) (string, error) {
	if c.model == "" {
		return "", fmt.Errorf("anthropic client misconfigured")
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(c.model),
		MaxTokens: c.maxTokens,
		System:    []anthropic.TextBlockParam{{Text: safePrompt(req.System)}},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(req.Prompt)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic messages: %w", err)
	}

	var out strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			out.WriteString(block.Text)
		}
	}
	if out.Len() == 0 {
		return "", fmt.Errorf("anthropic returned no text")
	}
	return out.String(), nil
}
