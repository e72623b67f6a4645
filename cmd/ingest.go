package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/flowsmith/socratic/internal/knowledge"
	"github.com/flowsmith/socratic/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [dir]",
	Short: "Index best-practice documents into the knowledge base",
	Long: `Walks a directory for markdown documents matching the configured include
patterns, chunks them, and indexes them into the knowledge base used for
question enrichment. Defaults to the current directory.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		root := "."
		if len(args) == 1 {
			root = args[0]
		}

		store, err := openKnowledgeStore(cfg)
		if err != nil {
			return err
		}

		reporter := progress.NewReporter()
		started := false
		n, err := knowledge.Ingest(cmd.Context(), store, root,
			cfg.Knowledge.Include, cfg.Knowledge.Exclude,
			func(current, total int, path string) {
				if !started {
					reporter.Start(total)
					started = true
				}
				reporter.Update(current, path)
			})
		if started {
			reporter.Finish()
		}
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", root, err)
		}

		if err := store.Persist(cfg.DataDir); err != nil {
			return fmt.Errorf("persisting knowledge index: %w", err)
		}

		fmt.Printf("Indexed %d chunks (%d documents in store)\n", n, store.Count())
		return nil
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}
