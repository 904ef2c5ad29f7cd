package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var restartCmd = &cobra.Command{
	Use:   "restart",
	Short: "Restart the gateway",
	Long:  `Stop a running gateway, then start it again with the current configuration.`,
	RunE:  runRestart,
}

func init() {
	rootCmd.AddCommand(restartCmd)

	restartCmd.Flags().IntVarP(&startFlags.port, "port", "p", 0, "override listen port")
}

func runRestart(cmd *cobra.Command, args []string) error {
	stopped, err := stopGateway()
	if err != nil {
		return err
	}
	if stopped != 0 {
		fmt.Printf("✓ Gateway stopped (pid %d)\n", stopped)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if startFlags.port != 0 {
		cfg.Server.Port = startFlags.port
	}
	return runServer(cfg)
}
