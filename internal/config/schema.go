package config

import "github.com/msalhab/tarajim/internal/segment"

// Config holds tarajim configuration.
// Stored at: ~/.tarajim/config.yaml
type Config struct {
	LLMProviders map[string]LLMProviderCfg `mapstructure:"llm_providers" yaml:"llm_providers"`
	Defaults     DefaultsCfg               `mapstructure:"defaults" yaml:"defaults"`
	Segmentation SegmentationCfg           `mapstructure:"segmentation" yaml:"segmentation"`
	Books        map[string]BookCfg        `mapstructure:"books" yaml:"books"`
	Server       ServerCfg                 `mapstructure:"server" yaml:"server"`
}

// LLMProviderCfg configures an LLM provider.
type LLMProviderCfg struct {
	Type      string  `mapstructure:"type" yaml:"type"`             // "openrouter", "openai"
	Model     string  `mapstructure:"model" yaml:"model"`           // Model name
	APIKey    string  `mapstructure:"api_key" yaml:"api_key"`       // API key (supports ${ENV_VAR} syntax)
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"` // Requests per minute
	Enabled   bool    `mapstructure:"enabled" yaml:"enabled"`
}

// DefaultsCfg specifies run defaults.
type DefaultsCfg struct {
	LLMProvider string `mapstructure:"llm_provider" yaml:"llm_provider"` // Default LLM provider
	MaxWorkers  int    `mapstructure:"max_workers" yaml:"max_workers"`   // Max concurrent extraction calls
}

// SegmentationCfg configures entry-boundary detection.
type SegmentationCfg struct {
	// DefaultPattern splits the text into entries. Must have two capture
	// groups: the ordinal and the heading.
	DefaultPattern string `mapstructure:"default_pattern" yaml:"default_pattern"`
}

// BookCfg holds per-book overrides, keyed by book ID.
type BookCfg struct {
	// Pattern overrides the segmentation pattern for editions whose entry
	// markers differ from the default.
	Pattern string `mapstructure:"pattern" yaml:"pattern"`
}

// ServerCfg configures the HTTP API.
type ServerCfg struct {
	Listen string `mapstructure:"listen" yaml:"listen"`   // Listen address
	APIKey string `mapstructure:"api_key" yaml:"api_key"` // Optional bearer key (supports ${ENV_VAR})
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.0-flash-001",
				APIKey:    "${OPENROUTER_API_KEY}",
				RateLimit: 60,
				Enabled:   true,
			},
			"openai": {
				Type:      "openai",
				Model:     "gpt-4o-mini",
				APIKey:    "${OPENAI_API_KEY}",
				RateLimit: 60,
				Enabled:   false,
			},
		},
		Defaults: DefaultsCfg{
			LLMProvider: "openrouter",
			MaxWorkers:  1,
		},
		Segmentation: SegmentationCfg{
			DefaultPattern: segment.DefaultExpr,
		},
		Books:  map[string]BookCfg{},
		Server: ServerCfg{
			Listen: "127.0.0.1:8380",
		},
	}
}

// GetLLMProvider returns an LLM provider config by name.
func (c *Config) GetLLMProvider(name string) (LLMProviderCfg, bool) {
	cfg, ok := c.LLMProviders[name]
	return cfg, ok
}

// EnabledLLMProviders returns all enabled LLM providers.
func (c *Config) EnabledLLMProviders() map[string]LLMProviderCfg {
	result := make(map[string]LLMProviderCfg)
	for name, cfg := range c.LLMProviders {
		if cfg.Enabled {
			result[name] = cfg
		}
	}
	return result
}

// PatternFor returns the segmentation pattern for a book, preferring a
// per-book override, then the configured default.
func (c *Config) PatternFor(bookID string) string {
	if book, ok := c.Books[bookID]; ok && book.Pattern != "" {
		return book.Pattern
	}
	if c.Segmentation.DefaultPattern != "" {
		return c.Segmentation.DefaultPattern
	}
	return segment.DefaultExpr
}
