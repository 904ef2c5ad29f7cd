package main

import (
	"fmt"
	"net"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/meta-introspector/claude-code-mux/pkg/cli"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
	"github.com/meta-introspector/claude-code-mux/pkg/server"
)

var startFlags struct {
	port   int
	dryRun bool
}

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the gateway",
	Long: `Start the gateway with the specified configuration.

The gateway listens on the configured address, routes completion
requests across the configured providers, and records its PID so that
stop, restart, and status can find it.

Examples:
  # Start with the default config (a starter file is written on first run)
  ccm start

  # Start with a custom config
  ccm start --config /etc/ccm/config.yaml

  # Override the listen port
  ccm start --port 8080

  # Validate config without starting
  ccm start --dry-run`,
	RunE: runStart,
}

func init() {
	rootCmd.AddCommand(startCmd)

	startCmd.Flags().IntVarP(&startFlags.port, "port", "p", 0, "override listen port")
	startCmd.Flags().BoolVar(&startFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runStart(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if startFlags.port != 0 {
		cfg.Server.Port = startFlags.port
	}

	if startFlags.dryRun {
		fmt.Println("✓ Configuration valid")
		return nil
	}

	return runServer(cfg)
}

// runServer blocks until the gateway shuts down. Shared with restart.
func runServer(cfg *config.Config) error {
	pf := pidFile()
	if err := pf.Write(); err != nil {
		return cli.NewCommandError("start", err)
	}
	defer pf.Remove()

	srv, err := server.New(cfg, server.Options{
		ConfigPath: cfgFile,
		Version:    Version,
	})
	if err != nil {
		return cli.NewCommandError("start", err)
	}

	addr := net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
	fmt.Printf("✓ Gateway listening on %s\n", addr)
	fmt.Printf("✓ Health endpoint: http://%s/health\n", addr)
	if cfg.Telemetry.Metrics.IsEnabled() {
		fmt.Printf("✓ Metrics endpoint: http://%s%s\n", addr, cfg.Telemetry.Metrics.Path)
	}
	fmt.Println("\nPress Ctrl+C to stop")

	if err := srv.Start(cli.SetupSignalHandler()); err != nil {
		return cli.NewCommandError("start", err)
	}
	return nil
}
