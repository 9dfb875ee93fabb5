package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// OllamaClient is a hand-rolled HTTP client against a local Ollama
// daemon's OpenAI-compatible chat endpoint. Ollama has no official Go
// SDK in this pack, so this follows ai/client.go's shape: a thin
// http.Client wrapper with its own request/response structs, used as
// the local-process provider spec.md §4.4 calls out explicitly.
type OllamaClient struct {
	httpClient *http.Client
	baseURL    string
	model      string
}

type ollamaFactory struct{}

// NewOllamaFactory registers the "ollama" provider.
func NewOllamaFactory() Factory { return ollamaFactory{} }

func (ollamaFactory) Name() string        { return "ollama" }
func (ollamaFactory) Description() string { return "local Ollama daemon, OpenAI-compatible chat API" }

func (ollamaFactory) DetectEnvironment() (int, bool) {
	// Lower priority than cloud providers: prefer an explicit cloud key
	// when both are configured, but Ollama is always "available" if a
	// base URL is reachable in principle — detection here is cheap and
	// optimistic, matching the teacher's environment-variable-only checks.
	return 10, envNonEmpty("OLLAMA_BASE_URL") || true
}

func (ollamaFactory) Create(cfg Config) (Provider, error) {
	base := cfg.BaseURL
	if base == "" {
		base = "http://localhost:11434"
	}
	model := cfg.Model
	if model == "" {
		model = "llama3"
	}
	return &OllamaClient{
		httpClient: &http.Client{Timeout: 120 * time.Second},
		baseURL:    strings.TrimRight(base, "/"),
		model:      model,
	}, nil
}

func (c *OllamaClient) Name() string  { return "ollama" }
func (c *OllamaClient) Model() string { return c.model }

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  ollamaOptions       `json:"options"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
}

type ollamaChatResponse struct {
	Message ollamaChatMessage `json:"message"`
	Done    bool              `json:"done"`
	Error   string            `json:"error,omitempty"`
}

func (c *OllamaClient) Complete(ctx context.Context, prompt string, params Params) (string, error) {
	return c.Chat(ctx, []Message{{Role: "user", Content: prompt}}, params)
}

func (c *OllamaClient) Chat(ctx context.Context, messages []Message, params Params) (string, error) {
	if err := params.Validate(); err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}

	msgs := make([]ollamaChatMessage, len(messages))
	for i, m := range messages {
		msgs[i] = ollamaChatMessage{Role: m.Role, Content: m.Content}
	}

	body, err := json.Marshal(ollamaChatRequest{
		Model:    c.model,
		Messages: msgs,
		Stream:   false,
		Options: ollamaOptions{
			Temperature: params.Temperature,
			TopP:        params.TopP,
			NumPredict:  params.MaxTokens,
		},
	})
	if err != nil {
		return "", fmt.Errorf("ollama: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("ollama: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("ollama: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("ollama: read response: %w", err)
	}

	if resp.StatusCode >= 500 {
		return "", fmt.Errorf("ollama: transient server error %d: %s", resp.StatusCode, data)
	}
	if resp.StatusCode >= 400 {
		return "", fmt.Errorf("ollama: request rejected %d: %s", resp.StatusCode, data)
	}

	var out ollamaChatResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return "", fmt.Errorf("ollama: decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("ollama: %s", out.Error)
	}
	return out.Message.Content, nil
}

func (c *OllamaClient) CountTokens(text string) int {
	return len(strings.Fields(text)) * 4 / 3 // rough word->token ratio, no real tokenizer locally
}

func (c *OllamaClient) EstimateCost(inputTokens, outputTokens int) float64 {
	return 0 // local inference, no per-token billing
}
