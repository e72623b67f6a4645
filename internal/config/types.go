package config

// EmbedderType identifies how knowledge documents are embedded.
type EmbedderType string

const (
	// EmbedderOpenAI uses the OpenAI embeddings API.
	EmbedderOpenAI EmbedderType = "openai"
	// EmbedderLocal uses a deterministic local hash embedder. No network,
	// no API key; suitable for tests and offline use.
	EmbedderLocal EmbedderType = "local"
)

// FeatureFlags gates the questioning pipeline. Flags are injected at
// construction time; components never read the environment directly.
type FeatureFlags struct {
	Questioning           bool `yaml:"questioning" koanf:"questioning"`
	QuestionGeneration    bool `yaml:"question_generation" koanf:"question_generation"`
	ExpertiseTracking     bool `yaml:"expertise_tracking" koanf:"expertise_tracking"`
	ProgressiveDisclosure bool `yaml:"progressive_disclosure" koanf:"progressive_disclosure"`
	AdaptiveComplexity    bool `yaml:"adaptive_complexity" koanf:"adaptive_complexity"`
	CircuitBreaker        bool `yaml:"circuit_breaker" koanf:"circuit_breaker"`
}

// CacheConfig tunes the facade's question cache.
type CacheConfig struct {
	MaxEntries int `yaml:"max_entries" koanf:"max_entries"`
}

// BreakerConfig tunes the generation circuit breaker.
type BreakerConfig struct {
	FailureThreshold int `yaml:"failure_threshold" koanf:"failure_threshold"`
	CooldownSeconds  int `yaml:"cooldown_seconds" koanf:"cooldown_seconds"`
}

// SessionConfig tunes session admission and lifetime.
type SessionConfig struct {
	MaxActive      int `yaml:"max_active" koanf:"max_active"`
	IdleTTLMinutes int `yaml:"idle_ttl_minutes" koanf:"idle_ttl_minutes"`
}

// DisclosureConfig tunes the progressive disclosure controller.
type DisclosureConfig struct {
	AutoAdvance bool `yaml:"auto_advance" koanf:"auto_advance"`
	AllowSkip   bool `yaml:"allow_skip" koanf:"allow_skip"`
}

// EnrichmentConfig tunes contextual enrichment.
type EnrichmentConfig struct {
	TimeoutSeconds    int  `yaml:"timeout_seconds" koanf:"timeout_seconds"`
	IncludeWebSearch  bool `yaml:"include_web_search" koanf:"include_web_search"`
	IncludeMCPServers bool `yaml:"include_mcp_servers" koanf:"include_mcp_servers"`
	MaxSources        int  `yaml:"max_sources" koanf:"max_sources"`
}

// KnowledgeConfig configures the best-practice knowledge store.
type KnowledgeConfig struct {
	Embedder       EmbedderType `yaml:"embedder" koanf:"embedder"`
	EmbeddingModel string       `yaml:"embedding_model" koanf:"embedding_model"`
	Include        []string     `yaml:"include" koanf:"include"`
	Exclude        []string     `yaml:"exclude" koanf:"exclude"`
}

// ServerConfig holds HTTP API settings.
type ServerConfig struct {
	Port     int  `yaml:"port" koanf:"port"`
	AllowAll bool `yaml:"allow_all" koanf:"allow_all"`
}

// Config is the top-level socratic configuration, corresponding to .socratic.yml.
type Config struct {
	DataDir    string           `yaml:"data_dir" koanf:"data_dir"`
	Flags      FeatureFlags     `yaml:"flags" koanf:"flags"`
	Cache      CacheConfig      `yaml:"cache" koanf:"cache"`
	Breaker    BreakerConfig    `yaml:"breaker" koanf:"breaker"`
	Sessions   SessionConfig    `yaml:"sessions" koanf:"sessions"`
	Disclosure DisclosureConfig `yaml:"disclosure" koanf:"disclosure"`
	Enrichment EnrichmentConfig `yaml:"enrichment" koanf:"enrichment"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge" koanf:"knowledge"`
	Server     ServerConfig     `yaml:"server" koanf:"server"`
}
