package main

import (
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/fyrsmithlabs/gatekeeper/internal/monitor"
)

func newMonitorCmd() *cobra.Command {
	var (
		server   string
		interval time.Duration
		period   time.Duration
	)
	cmd := &cobra.Command{
		Use:   "monitor",
		Short: "Live dashboard for a running gatekeeper server",
		Long: `Poll a gatekeeper server and show the truth score, validator counters
and hook latencies in the terminal.

Examples:
  gatekeeper monitor
  gatekeeper monitor --server http://10.0.0.5:9191 --interval 2s --period 1h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if interval <= 0 {
				return fmt.Errorf("interval must be positive")
			}
			p := tea.NewProgram(monitor.NewModel(server, interval, period),
				tea.WithContext(cmd.Context()),
				tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return fmt.Errorf("monitor: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&server, "server", "http://localhost:9191", "gatekeeper server URL")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "refresh interval")
	cmd.Flags().DurationVar(&period, "period", 0, "score averaging window (0 for all history)")
	return cmd
}
