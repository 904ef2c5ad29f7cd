package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/meta-introspector/claude-code-mux/pkg/cli"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/pid"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "ccm",
	Short: "Claude Code Mux - chat completion gateway",
	Long: `Claude Code Mux is a chat completion gateway that multiplexes requests
across heterogeneous LLM providers.

It speaks the Anthropic Messages API and an OpenAI-compatible surface,
routes each request by model mapping rules, fails over across provider
candidates in priority order, and manages OAuth token lifecycles.

For more information, visit: https://github.com/meta-introspector/claude-code-mux`,
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
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", config.DefaultPath(), "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// pidFile returns the gateway's PID file handle.
func pidFile() *pid.File {
	return pid.New(filepath.Join(config.DefaultDir(), "ccm.pid"))
}

// loadConfig reads the configuration, seeding a starter file on first
// run when the default path is used. The verbose flag forces debug
// logging.
func loadConfig() (*config.Config, error) {
	if cfgFile == config.DefaultPath() {
		if _, err := os.Stat(cfgFile); os.IsNotExist(err) {
			if err := config.WriteStarter(cfgFile); err != nil {
				return nil, cli.NewConfigError("", fmt.Sprintf("failed to write starter config: %v", err))
			}
			fmt.Printf("✓ Wrote starter configuration to %s\n", cfgFile)
		}
	}

	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return cfg, nil
}
