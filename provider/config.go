package provider

// Config is the functional-options-configured bundle handed to a
// Factory.Create call, mirroring ai/provider.go's AIConfig/AIOption
// shape.
type Config struct {
	APIKey      string
	BaseURL     string
	Model       string
	Tokenizer   string
	PricePerK   map[string]float64 // "input", "output" per 1k tokens
	MaxRetries  int
	Alias       string
}

// Option mutates a Config under construction.
type Option func(*Config)

func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

func WithBaseURL(url string) Option {
	return func(c *Config) { c.BaseURL = url }
}

func WithModel(model string) Option {
	return func(c *Config) { c.Model = model }
}

func WithTokenizer(name string) Option {
	return func(c *Config) { c.Tokenizer = name }
}

func WithPricing(inputPerK, outputPerK float64) Option {
	return func(c *Config) {
		c.PricePerK = map[string]float64{"input": inputPerK, "output": outputPerK}
	}
}

// WithProviderAlias applies the intelligent defaults for a known alias
// ("openai", "anthropic", "ollama") the way ai/provider.go's
// WithProviderAlias auto-configures base URL and tokenizer from a
// short name so callers don't have to repeat boilerplate per provider.
func WithProviderAlias(alias string) Option {
	return func(c *Config) {
		c.Alias = alias
		switch alias {
		case "openai":
			c.Tokenizer = firstNonEmpty(c.Tokenizer, "cl100k_base")
		case "anthropic":
			c.Tokenizer = firstNonEmpty(c.Tokenizer, "claude")
		case "ollama":
			c.BaseURL = firstNonEmpty(c.BaseURL, "http://localhost:11434")
			c.Tokenizer = firstNonEmpty(c.Tokenizer, "approx")
		}
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// NewConfig applies opts over a zero-value Config.
func NewConfig(opts ...Option) Config {
	var c Config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
