package main

import (
	"fmt"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

var agentsCmd = &cobra.Command{
	Use:   "agents",
	Short: "List the pipeline agents in order",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadAppConfig()
		if err != nil {
			return err
		}
		personas, err := loadPersonas(cfg)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), agentsTable(personas))
		return err
	},
}

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func agentsTable(personas *personax.Registry) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("#", "KEY", "NAME", "STAGE", "ROLE").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	for i, a := range personas.Order() {
		t.Row(strconv.Itoa(i+1), string(a.Key), a.Name, a.Stage, a.Role)
	}
	return t.Render()
}
