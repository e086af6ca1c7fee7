package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v2"

	"github.com/msalhab/tarajim/internal/segment"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Defaults.LLMProvider != "openrouter" {
		t.Errorf("default provider = %q, want openrouter", cfg.Defaults.LLMProvider)
	}
	if cfg.Defaults.MaxWorkers != 1 {
		t.Errorf("default max workers = %d, want 1", cfg.Defaults.MaxWorkers)
	}
	if cfg.Segmentation.DefaultPattern != segment.DefaultExpr {
		t.Errorf("default pattern = %q", cfg.Segmentation.DefaultPattern)
	}

	or, ok := cfg.GetLLMProvider("openrouter")
	if !ok {
		t.Fatal("openrouter provider missing from defaults")
	}
	if !or.Enabled {
		t.Error("openrouter should be enabled by default")
	}
	if or.Model != "google/gemini-2.0-flash-001" {
		t.Errorf("openrouter model = %q", or.Model)
	}

	oa, ok := cfg.GetLLMProvider("openai")
	if !ok {
		t.Fatal("openai provider missing from defaults")
	}
	if oa.Enabled {
		t.Error("openai should be disabled by default")
	}
}

func TestEnabledLLMProviders(t *testing.T) {
	cfg := DefaultConfig()
	enabled := cfg.EnabledLLMProviders()

	if _, ok := enabled["openrouter"]; !ok {
		t.Error("openrouter missing from enabled providers")
	}
	if _, ok := enabled["openai"]; ok {
		t.Error("disabled openai listed as enabled")
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Setenv("TARAJIM_TEST_KEY", "secret-123")

	tests := []struct {
		input string
		want  string
	}{
		{"${TARAJIM_TEST_KEY}", "secret-123"},
		{"prefix-${TARAJIM_TEST_KEY}", "prefix-secret-123"},
		{"no-vars-here", "no-vars-here"},
		{"${TARAJIM_UNSET_VAR}", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := ResolveEnvVars(tt.input); got != tt.want {
			t.Errorf("ResolveEnvVars(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}

func TestToProviderRegistryConfig(t *testing.T) {
	t.Setenv("TARAJIM_TEST_API_KEY", "resolved-key")

	cfg := &Config{
		LLMProviders: map[string]LLMProviderCfg{
			"openrouter": {
				Type:      "openrouter",
				Model:     "google/gemini-2.0-flash-001",
				APIKey:    "${TARAJIM_TEST_API_KEY}",
				RateLimit: 30,
				Enabled:   true,
			},
		},
	}

	reg := cfg.ToProviderRegistryConfig()
	got, ok := reg.LLMProviders["openrouter"]
	if !ok {
		t.Fatal("openrouter missing from registry config")
	}
	if got.APIKey != "resolved-key" {
		t.Errorf("APIKey = %q, want resolved-key", got.APIKey)
	}
	if got.RateLimit != 30 {
		t.Errorf("RateLimit = %v, want 30", got.RateLimit)
	}
}

func TestPatternFor(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Books = map[string]BookCfg{
		"wafayat": {Pattern: `وفاة رقم (\d+): ([^\n]+)`},
	}

	if got := cfg.PatternFor("wafayat"); got != `وفاة رقم (\d+): ([^\n]+)` {
		t.Errorf("PatternFor(wafayat) = %q", got)
	}
	if got := cfg.PatternFor("other"); got != segment.DefaultExpr {
		t.Errorf("PatternFor(other) = %q, want default", got)
	}

	cfg.Segmentation.DefaultPattern = ""
	if got := cfg.PatternFor("other"); got != segment.DefaultExpr {
		t.Errorf("PatternFor with empty config = %q, want built-in default", got)
	}
}

func TestWriteDefaultRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("WriteDefault() error = %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "# Tarajim configuration") {
		t.Error("written config missing header comment")
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		t.Fatalf("written config is not valid YAML: %v", err)
	}
	if cfg.Defaults.LLMProvider != "openrouter" {
		t.Errorf("round-tripped provider = %q", cfg.Defaults.LLMProvider)
	}
	// The key must survive unexpanded so the env var is resolved at run
	// time, not at init time.
	if cfg.LLMProviders["openrouter"].APIKey != "${OPENROUTER_API_KEY}" {
		t.Errorf("APIKey = %q, want unexpanded env reference", cfg.LLMProviders["openrouter"].APIKey)
	}
}
