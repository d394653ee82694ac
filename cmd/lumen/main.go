package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lumenkb/lumen/internal/cli"
	"github.com/lumenkb/lumen/internal/cli/client"
)

var version = "dev"

func main() {
	rootCmd := &cobra.Command{
		Use:   "lumen",
		Short: "Lumen CLI - Retrieval-backed knowledge base",
		Long: `Lumen CLI ingests content, searches it semantically, and answers questions
against your knowledge base.

Environment variables:
  LUMEN_API_KEY   API key for authentication (required)
  LUMEN_API_URL   API base URL (default: http://localhost:8080)`,
		Version: version,
	}

	rootCmd.PersistentFlags().Bool("output", false, "Output as JSON")
	rootCmd.PersistentFlags().String("api-key", "", "API key for authentication (overrides env and config)")
	rootCmd.PersistentFlags().String("api-url", "", "API base URL (overrides env and config)")
	cli.AddHelpJSONFlag(rootCmd)

	rootCmd.AddCommand(client.InitCmd())
	rootCmd.AddCommand(client.AddCmd())
	rootCmd.AddCommand(client.AskCmd())
	rootCmd.AddCommand(client.SearchCmd())
	rootCmd.AddCommand(client.ChunkCmd())
	rootCmd.AddCommand(client.GapsCmd())
	rootCmd.AddCommand(client.DeleteCmd())
	rootCmd.AddCommand(client.AuthCmd())

	cli.CheckHelpJSON(rootCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
