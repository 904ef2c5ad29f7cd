package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/meta-introspector/claude-code-mux/pkg/cli"
	"github.com/meta-introspector/claude-code-mux/pkg/pid"
)

var stopCmd = &cobra.Command{
	Use:   "stop",
	Short: "Stop a running gateway",
	Long:  `Send SIGTERM to the gateway recorded in the PID file and wait for it to exit.`,
	RunE:  runStop,
}

func init() {
	rootCmd.AddCommand(stopCmd)
}

func runStop(cmd *cobra.Command, args []string) error {
	stopped, err := stopGateway()
	if err != nil {
		return err
	}
	if stopped == 0 {
		fmt.Println("Gateway is not running")
		return nil
	}
	fmt.Printf("✓ Gateway stopped (pid %d)\n", stopped)
	return nil
}

// stopGateway signals the recorded process and waits for it to exit.
// Returns 0 when nothing was running.
func stopGateway() (int, error) {
	pf := pidFile()
	stopped, err := pf.Stop()
	if err != nil {
		if errors.Is(err, pid.ErrNotRunning) {
			return 0, nil
		}
		return 0, cli.NewCommandError("stop", err)
	}

	// The server drains in-flight requests before exiting; poll briefly
	// instead of trusting the signal alone.
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		if !pid.Alive(stopped) {
			return stopped, nil
		}
		time.Sleep(100 * time.Millisecond)
	}
	return stopped, nil
}
