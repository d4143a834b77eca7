package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
	transcriptx "github.com/tanpawarit/sentinel-orchestrator/agent/transcript"
	configx "github.com/tanpawarit/sentinel-orchestrator/pkg/config"
)

var (
	historyAgent string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent exchanges from the transcript database",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyAgent, "agent", "", "only show this agent")
	historyCmd.Flags().IntVar(&historyLimit, "limit", transcriptx.DefaultLimit, "number of exchanges")
}

func runHistory(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	var agent contractx.AgentKey
	if historyAgent != "" {
		a, err := personax.Default().Lookup(historyAgent)
		if err != nil {
			return err
		}
		agent = a.Key
	}

	cfg, err := configx.New[transcriptx.Config]("SENTINEL_TRANSCRIPT")
	if err != nil {
		return err
	}
	if strings.TrimSpace(cfg.DSN) == "" {
		fmt.Fprintln(cmd.OutOrStdout(), "SENTINEL_TRANSCRIPT_DSN is not set; exchanges are only kept in memory by the running process.")
		return nil
	}
	store, err := transcriptx.Open(ctx, *cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	exchanges, err := store.List(ctx, agent, historyLimit)
	if err != nil {
		return err
	}
	if len(exchanges) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "No exchanges recorded.")
		return nil
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), historyTable(exchanges))
	return err
}

func historyTable(exchanges []contractx.Exchange) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("WHEN", "AGENT", "QUERY", "SUMMARY").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for _, ex := range exchanges {
		t.Row(
			ex.CreatedAt.Local().Format(time.DateTime),
			string(ex.Agent),
			oneLine(ex.Query, 40),
			oneLine(ex.Handoff.Summary, 60),
		)
	}
	return t.Render()
}

func oneLine(s string, n int) string {
	s = promptx.SanitizeArg(s)
	if len([]rune(s)) <= n {
		return s
	}
	return promptx.Truncate(s, n-1) + "…"
}
