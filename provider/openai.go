package provider

import (
	"context"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIClient implements Provider against OpenAI's Chat Completions
// API via the official SDK.
type OpenAIClient struct {
	client openai.Client
	model  string
	price  map[string]float64
}

type openaiFactory struct{}

// NewOpenAIFactory registers the "openai" provider.
func NewOpenAIFactory() Factory { return openaiFactory{} }

func (openaiFactory) Name() string        { return "openai" }
func (openaiFactory) Description() string { return "OpenAI Chat Completions API" }

func (openaiFactory) DetectEnvironment() (int, bool) {
	return 100, envNonEmpty("OPENAI_API_KEY")
}

func (openaiFactory) Create(cfg Config) (Provider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	model := cfg.Model
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	client := openai.NewClient(opts...)
	return &OpenAIClient{client: client, model: model, price: cfg.PricePerK}, nil
}

func (c *OpenAIClient) Name() string  { return "openai" }
func (c *OpenAIClient) Model() string { return c.model }

func (c *OpenAIClient) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, params)
}

func (c *OpenAIClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("openai: %w", err)
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case "system":
			msgs = append(msgs, openai.SystemMessage(m.Content))
		case "assistant":
			msgs = append(msgs, openai.AssistantMessage(m.Content))
		default:
			msgs = append(msgs, openai.UserMessage(m.Content))
		}
	}

	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model:       c.model,
		Messages:    msgs,
		Temperature: openai.Float(params.Temperature),
		TopP:        openai.Float(params.TopP),
		MaxTokens:   openai.Int(int64(params.MaxTokens)),
		Stop:        openai.ChatCompletionNewParamsStopUnion{OfStringArray: params.Stop},
	})
	if err != nil {
		return "", classifyOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("openai: empty response")
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *OpenAIClient) CountTokens(text string) int {
	// Approximation per OpenAI's own documented rule of thumb (~4 chars/token
	// for English text). The tokenizer identity is not part of the cache
	// key; entries are keyed by provider name and model id.
	return (len(text) + 3) / 4
}

func (c *OpenAIClient) EstimateCost(inputTokens, outputTokens int) float64 {
	in := c.price["input"]
	out := c.price["output"]
	return (float64(inputTokens)/1000.0)*in + (float64(outputTokens)/1000.0)*out
}

func classifyOpenAIError(err error) error {
	// The SDK surfaces an *openai.Error with a StatusCode for HTTP faults;
	// transient vs permanent classification happens one layer up in
	// Mediator's classifyTransient, which matches net.Error values and
	// status codes or "connection reset"/"timeout" in the error text.
	return fmt.Errorf("openai: %w", err)
}

func envNonEmpty(name string) bool {
	return lookupEnv(name) != ""
}
