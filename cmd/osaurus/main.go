// Command osaurus is the CLI entry point for the local inference gateway:
// a single binary that serves the dialect-compatible HTTP API, manages
// external tool plugins, and exposes the tool registry over MCP.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags during release builds.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd assembles the command tree. Separated from main so tests
// can exercise it without touching os.Exit.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "osaurus",
		Short: "osaurus - local OpenAI/Anthropic/Ollama-compatible inference gateway",
		Long: `osaurus serves a dialect-compatible chat completions API in front of a
local inference backend, with an external tool plugin system and an MCP
server over the same tool registry.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildPluginsCmd(),
		buildMcpCmd(),
	)

	return rootCmd
}
