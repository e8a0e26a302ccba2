package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "gateway",
	Short: "Jupiter Gateway - OpenAI-compatible LLM request-plane dispatcher",
	Long: `Jupiter Gateway terminates OpenAI-compatible HTTP requests and dispatches
them to upstream LLM providers (OpenAI, Anthropic, and OpenAI-compatible
generic backends).

It provides:
  - API-key admission control with sliding-window rate limits and an overflow queue
  - Configurable provider routing (round-robin, sticky, manual, health-aware)
  - Per-provider circuit breakers, retry with backoff, and failover
  - A unified SSE streaming relay with usage accounting and cost estimation`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Global persistent flags (available to all subcommands)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")

	// Disable default completion command (we'll add our own)
	rootCmd.CompletionOptions.DisableDefaultCmd = false
}
