package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/flowsmith/socratic/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing questioning-session and knowledge-search tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		eng, kstore, database, err := openEngine(cfg)
		if err != nil {
			return err
		}
		defer database.Close()

		mcpserver.Version = Version

		fmt.Fprintf(os.Stderr, "socratic MCP server started on stdio (documents=%d)\n", kstore.Count())

		srv := mcpserver.NewServer(eng, kstore)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
