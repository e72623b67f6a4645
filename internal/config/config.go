package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (SOCRATIC_*). Nested keys use underscores
// doubled as separators: SOCRATIC_BREAKER__COOLDOWN_SECONDS=10.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: SOCRATIC_DATA_DIR -> data_dir, etc.
	if err := k.Load(env.Provider("SOCRATIC_", ".", func(s string) string {
		s = strings.ToLower(strings.TrimPrefix(s, "SOCRATIC_"))
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validEmbedders is the set of recognized embedder values.
var validEmbedders = map[EmbedderType]bool{
	EmbedderOpenAI: true,
	EmbedderLocal:  true,
}

// Validate checks that the configuration contains valid values.
func (c *Config) Validate() error {
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}

	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive")
	}

	if c.Breaker.FailureThreshold <= 0 {
		return fmt.Errorf("breaker.failure_threshold must be positive")
	}
	if c.Breaker.CooldownSeconds <= 0 {
		return fmt.Errorf("breaker.cooldown_seconds must be positive")
	}

	if c.Sessions.MaxActive <= 0 {
		return fmt.Errorf("sessions.max_active must be positive")
	}
	if c.Sessions.IdleTTLMinutes <= 0 {
		return fmt.Errorf("sessions.idle_ttl_minutes must be positive")
	}

	if c.Enrichment.TimeoutSeconds <= 0 {
		return fmt.Errorf("enrichment.timeout_seconds must be positive")
	}

	if c.Knowledge.Embedder != "" && !validEmbedders[c.Knowledge.Embedder] {
		return fmt.Errorf("invalid knowledge.embedder %q: must be one of openai, local", c.Knowledge.Embedder)
	}
	if c.Knowledge.Embedder == EmbedderOpenAI && c.Knowledge.EmbeddingModel == "" {
		return fmt.Errorf("knowledge.embedding_model is required for the openai embedder")
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in 1-65535")
	}

	return nil
}

// APIKeyEnvVar returns the conventional environment variable name holding the
// API key for the given embedder, or "" when no key is needed.
func APIKeyEnvVar(e EmbedderType) string {
	if e == EmbedderOpenAI {
		return "OPENAI_API_KEY"
	}
	return ""
}
