package config

// DefaultExcludes are glob patterns excluded from knowledge ingestion by default.
var DefaultExcludes = []string{
	"node_modules/**",
	".git/**",
	"**/*.draft.md",
}

// DefaultConfig returns a Config with sensible defaults. All feature flags
// start enabled so the pipeline works out of the box; consumers turn off
// what they do not want.
func DefaultConfig() *Config {
	return &Config{
		DataDir: ".socratic",
		Flags: FeatureFlags{
			Questioning:           true,
			QuestionGeneration:    true,
			ExpertiseTracking:     true,
			ProgressiveDisclosure: true,
			AdaptiveComplexity:    true,
			CircuitBreaker:        true,
		},
		Cache: CacheConfig{
			MaxEntries: 256,
		},
		Breaker: BreakerConfig{
			FailureThreshold: 3,
			CooldownSeconds:  30,
		},
		Sessions: SessionConfig{
			MaxActive:      5,
			IdleTTLMinutes: 30,
		},
		Disclosure: DisclosureConfig{
			AutoAdvance: true,
			AllowSkip:   false,
		},
		Enrichment: EnrichmentConfig{
			TimeoutSeconds:    5,
			IncludeWebSearch:  true,
			IncludeMCPServers: true,
			MaxSources:        5,
		},
		Knowledge: KnowledgeConfig{
			Embedder:       EmbedderLocal,
			EmbeddingModel: "text-embedding-3-small",
			Include:        []string{"knowledge/**/*.md"},
			Exclude:        DefaultExcludes,
		},
		Server: ServerConfig{
			Port:     8642,
			AllowAll: false,
		},
	}
}
