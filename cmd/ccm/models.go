package main

import (
	"fmt"
	"os"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/meta-introspector/claude-code-mux/pkg/cli"
	"github.com/meta-introspector/claude-code-mux/pkg/config"
)

var modelsFlags struct {
	output string
}

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Print the routing table",
	Long: `Print the configured model mappings with their provider candidates in
failover order, plus the provider list.`,
	RunE: runModels,
}

func init() {
	rootCmd.AddCommand(modelsCmd)

	modelsCmd.Flags().StringVarP(&modelsFlags.output, "output", "o", "text", "output format (text, json)")
}

// routeView is one model mapping in the models command output.
type routeView struct {
	Model      string             `json:"model"`
	Candidates []config.Candidate `json:"candidates"`
}

// providerRow is one provider in the models command output.
type providerRow struct {
	Name    string `json:"name"`
	Type    string `json:"type"`
	Auth    string `json:"auth"`
	Enabled bool   `json:"enabled"`
}

func runModels(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	routes := make([]routeView, 0, len(cfg.Models))
	for model, candidates := range cfg.Models {
		sorted := make([]config.Candidate, len(candidates))
		copy(sorted, candidates)
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Priority < sorted[j].Priority
		})
		routes = append(routes, routeView{Model: model, Candidates: sorted})
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Model < routes[j].Model })

	rows := make([]providerRow, 0, len(cfg.Providers))
	for name, p := range cfg.Providers {
		auth := p.Auth
		if auth == "" {
			auth = "api_key"
		}
		rows = append(rows, providerRow{Name: name, Type: p.Type, Auth: auth, Enabled: p.IsEnabled()})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Name < rows[j].Name })

	if modelsFlags.output == "json" {
		return cli.NewFormatter(cli.FormatJSON).FormatTo(os.Stdout, struct {
			Default   string        `json:"default_model"`
			Models    []routeView   `json:"models"`
			Providers []providerRow `json:"providers"`
		}{cfg.Router.Default, routes, rows})
	}

	fmt.Printf("Default model: %s\n\n", cfg.Router.Default)

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "MODEL\tPRIORITY\tPROVIDER\tUPSTREAM MODEL")
	for _, route := range routes {
		for _, c := range route.Candidates {
			fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", route.Model, c.Priority, c.Provider, c.Model)
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}

	fmt.Println()
	w = tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "PROVIDER\tTYPE\tAUTH\tENABLED")
	for _, row := range rows {
		fmt.Fprintf(w, "%s\t%s\t%s\t%t\n", row.Name, row.Type, row.Auth, row.Enabled)
	}
	return w.Flush()
}
