package cmd

import (
	"github.com/spf13/cobra"

	"github.com/flowsmith/socratic/internal/config"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize socratic configuration with an interactive wizard",
	Long:  `Runs an interactive wizard to configure socratic for your project and generates a .socratic.yml file.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := config.RunWizard()
		return err
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
