package provider

import (
	"context"
	"fmt"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

// AnthropicClient implements Provider against Anthropic's Messages API.
type AnthropicClient struct {
	client anthropic.Client
	model  string
	price  map[string]float64
}

type anthropicFactory struct{}

// NewAnthropicFactory registers the "anthropic" provider.
func NewAnthropicFactory() Factory { return anthropicFactory{} }

func (anthropicFactory) Name() string        { return "anthropic" }
func (anthropicFactory) Description() string { return "Anthropic Messages API" }

func (anthropicFactory) DetectEnvironment() (int, bool) {
	return 100, envNonEmpty("ANTHROPIC_API_KEY")
}

func (anthropicFactory) Create(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic: missing API key")
	}
	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-latest"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := anthropic.NewClient(opts...)
	return &AnthropicClient{client: client, model: model, price: cfg.PricePerK}, nil
}

func (c *AnthropicClient) Name() string  { return "anthropic" }
func (c *AnthropicClient) Model() string { return c.model }

func (c *AnthropicClient) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, params)
}

func (c *AnthropicClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}

	var system string
	msgs := make([]anthropic.MessageParam, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			system = m.Content
		case "assistant":
			msgs = append(msgs, anthropic.NewAssistantMessage(anthropic.NewTextBlock(m.Content)))
		default:
			msgs = append(msgs, anthropic.NewUserMessage(anthropic.NewTextBlock(m.Content)))
		}
	}

	req := anthropic.MessageNewParams{
		Model:       anthropic.Model(c.model),
		Messages:    msgs,
		MaxTokens:   int64(params.MaxTokens),
		Temperature: anthropic.Float(params.Temperature),
		TopP:        anthropic.Float(params.TopP),
	}
	if system != "" {
		req.System = []anthropic.TextBlockParam{{Text: system}}
	}

	resp, err := c.client.Messages.New(ctx, req)
	if err != nil {
		return "", fmt.Errorf("anthropic: %w", err)
	}
	if len(resp.Content) == 0 {
		return "", fmt.Errorf("anthropic: empty response")
	}
	return resp.Content[0].Text, nil
}

func (c *AnthropicClient) CountTokens(text string) int {
	return (len(text) + 3) / 4
}

func (c *AnthropicClient) EstimateCost(inputTokens, outputTokens int) float64 {
	return (float64(inputTokens)/1000.0)*c.price["input"] + (float64(outputTokens)/1000.0)*c.price["output"]
}
