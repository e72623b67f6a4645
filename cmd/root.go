package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "socratic",
	Short: "Adaptive requirement-elicitation through Socratic questioning",
	Long: `Socratic runs conversational requirement-elicitation sessions for
workflow design: it asks context-aware questions, adapts their complexity
to the user's inferred expertise, and enriches them with best-practice
knowledge from an ingested document corpus.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".socratic.yml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func exitOnError(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
