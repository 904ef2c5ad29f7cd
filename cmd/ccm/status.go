package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/meta-introspector/claude-code-mux/pkg/cli"
	"github.com/meta-introspector/claude-code-mux/pkg/pid"
	"github.com/meta-introspector/claude-code-mux/pkg/proxy/handlers"
)

var statusFlags struct {
	output string
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show gateway status",
	Long:  `Report whether the gateway is running and, when it is, its health summary.`,
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().StringVarP(&statusFlags.output, "output", "o", "text", "output format (text, json)")
}

// gatewayStatus is the status command's output shape.
type gatewayStatus struct {
	Running bool                   `json:"running"`
	PID     int                    `json:"pid,omitempty"`
	Address string                 `json:"address,omitempty"`
	Health  *handlers.HealthStatus `json:"health,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	status := gatewayStatus{}

	procID, err := pidFile().Read()
	switch {
	case errors.Is(err, pid.ErrNotRunning):
	case err != nil:
		return cli.NewCommandError("status", err)
	default:
		status.Running = true
		status.PID = procID
		if cfg, err := loadConfig(); err == nil {
			status.Address = net.JoinHostPort(cfg.Server.Host, strconv.Itoa(cfg.Server.Port))
			status.Health = fetchHealth(status.Address)
		}
	}

	if statusFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, status)
	}

	if !status.Running {
		fmt.Println("Gateway is not running")
		return nil
	}
	fmt.Printf("Gateway is running (pid %d)\n", status.PID)
	if status.Address != "" {
		fmt.Printf("Address: %s\n", status.Address)
	}
	if status.Health != nil {
		fmt.Printf("Status:  %s\n", status.Health.Status)
		fmt.Printf("Version: %s\n", status.Health.Version)
		fmt.Printf("Uptime:  %ds\n", status.Health.UptimeSec)
		fmt.Printf("Providers: %d configured\n", len(status.Health.Providers))
	}
	return nil
}

// fetchHealth queries the health endpoint; nil when unreachable.
func fetchHealth(addr string) *handlers.HealthStatus {
	client := &http.Client{Timeout: 2 * time.Second}
	resp, err := client.Get("http://" + addr + "/health")
	if err != nil {
		return nil
	}
	defer resp.Body.Close()

	var health handlers.HealthStatus
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil
	}
	return &health
}
