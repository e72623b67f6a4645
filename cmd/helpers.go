package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/flowsmith/socratic/internal/config"
	"github.com/flowsmith/socratic/internal/db"
	"github.com/flowsmith/socratic/internal/engine"
	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/session"
)

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `socratic init` to create a config file", err)
	}
	return cfg, nil
}

// newEmbedder creates the knowledge embedder selected in the config.
func newEmbedder(cfg *config.Config) (knowledge.Embedder, error) {
	switch cfg.Knowledge.Embedder {
	case config.EmbedderOpenAI:
		apiKey := os.Getenv(config.APIKeyEnvVar(config.EmbedderOpenAI))
		if apiKey == "" {
			return nil, fmt.Errorf("%s environment variable is required for OpenAI embeddings", config.APIKeyEnvVar(config.EmbedderOpenAI))
		}
		return knowledge.NewOpenAIEmbedder(apiKey, cfg.Knowledge.EmbeddingModel), nil
	default:
		return knowledge.LocalEmbedder{}, nil
	}
}

// openKnowledgeStore creates the knowledge store and loads any persisted
// index. A missing index is not an error; the corpus is simply empty until
// `socratic ingest` runs.
func openKnowledgeStore(cfg *config.Config) (*knowledge.Store, error) {
	embedder, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	store, err := knowledge.NewStore(embedder)
	if err != nil {
		return nil, fmt.Errorf("creating knowledge store: %w", err)
	}

	if err := store.Load(cfg.DataDir); err != nil {
		if verbose {
			fmt.Fprintf(os.Stderr, "Warning: could not load knowledge index from %s: %v\n", cfg.DataDir, err)
		}
	}
	return store, nil
}

// openEngine builds a fully wired questioning engine. The caller owns the
// returned database handle and must close it.
func openEngine(cfg *config.Config) (*engine.Engine, *knowledge.Store, *db.DB, error) {
	kstore, err := openKnowledgeStore(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	dbPath := filepath.Join(cfg.DataDir, "socratic.db")
	database, err := db.Open(dbPath)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening database: %w", err)
	}

	eng := engine.New(*cfg, session.NewStore(database), kstore, nil)
	return eng, kstore, database, nil
}
