package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
)

// RunWizard runs an interactive configuration wizard and returns the
// resulting Config. It also saves the config to .socratic.yml.
func RunWizard() (*Config, error) {
	fmt.Println("Welcome to socratic! Let's configure the questioning pipeline.")
	fmt.Println()

	cfg := DefaultConfig()

	// 1. Embedder selection.
	embedderPrompt := promptui.Select{
		Label: "Select knowledge embedder",
		Items: []string{
			"local  — deterministic, offline, no API key",
			"openai — OpenAI embeddings API",
		},
	}
	embedderIdx, _, err := embedderPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("embedder selection: %w", err)
	}
	if embedderIdx == 1 {
		cfg.Knowledge.Embedder = EmbedderOpenAI
	}

	// 2. Knowledge corpus location.
	includePrompt := promptui.Prompt{
		Label:   "Knowledge include patterns (comma-separated globs)",
		Default: strings.Join(cfg.Knowledge.Include, ","),
	}
	includeStr, err := includePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("include patterns: %w", err)
	}
	cfg.Knowledge.Include = splitAndTrim(includeStr)

	// 3. Data directory.
	dataPrompt := promptui.Prompt{
		Label:   "Data directory for session state and the knowledge index",
		Default: cfg.DataDir,
	}
	dataDir, err := dataPrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("data dir: %w", err)
	}
	cfg.DataDir = dataDir

	// 4. Auto-advance toggle.
	advancePrompt := promptui.Select{
		Label: "Advance question sophistication automatically as expertise grows?",
		Items: []string{"yes", "no (require external validation)"},
	}
	advanceIdx, _, err := advancePrompt.Run()
	if err != nil {
		return nil, fmt.Errorf("auto-advance selection: %w", err)
	}
	cfg.Disclosure.AutoAdvance = advanceIdx == 0

	if envVar := APIKeyEnvVar(cfg.Knowledge.Embedder); envVar != "" {
		if os.Getenv(envVar) == "" {
			fmt.Printf("\nNote: Set %s in your environment before running socratic ingest.\n", envVar)
		}
	}

	configPath := ".socratic.yml"
	if err := cfg.Save(configPath); err != nil {
		return nil, fmt.Errorf("saving config: %w", err)
	}

	fmt.Printf("\nConfiguration saved to %s\n", configPath)
	return cfg, nil
}

// splitAndTrim splits a comma-separated string and trims whitespace.
func splitAndTrim(s string) []string {
	var result []string
	for _, part := range strings.Split(s, ",") {
		if token := strings.TrimSpace(part); token != "" {
			result = append(result, token)
		}
	}
	return result
}
