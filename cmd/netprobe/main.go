// Package main provides the netprobe CLI: an LLM-driven network
// diagnostics assistant with a directly scriptable tool surface.
//
// # Basic Usage
//
// Start the interactive assistant:
//
//	netprobe interactive
//
// Run a single tool and print its result envelope:
//
//	netprobe run-tool ping_host --args '{"target": "8.8.8.8"}'
//
// Serve the machine protocol over stdio:
//
//	netprobe server
//
// # Environment Variables
//
//   - NETPROBE_CONFIG: path to the YAML configuration file
//   - OLLAMA_HOST: chat model endpoint (default http://localhost:11434)
//   - NETPROBE_MODEL: chat model name (default llama3.2)
//   - NETPROBE_AUTH_ENABLED / NETPROBE_API_KEY: protocol server auth
//   - ABUSEIPDB_API_KEY: enables the external-IP reputation lookup
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

// Build information, populated by ldflags.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "netprobe",
		Short: "netprobe - LLM-driven network diagnostics",
		Long: `netprobe runs real network diagnostics (ping, DNS, TLS, NTP, WHOIS,
port scans) behind a conversational assistant, a one-shot CLI, and a
machine protocol over stdio. Every tool returns the same result
envelope whichever surface invoked it.`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildInteractiveCmd(),
		buildRunToolCmd(),
		buildSelftestCmd(),
		buildServerCmd(),
		buildVersionCmd(),
	)
	return rootCmd
}

func buildVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("netprobe %s (commit: %s, built: %s)\n", version, commit, date)
		},
	}
}
