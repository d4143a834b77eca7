package main

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	statex "github.com/tanpawarit/sentinel-orchestrator/agent/state"
	tuix "github.com/tanpawarit/sentinel-orchestrator/ui/tui"
)

var (
	tuiDoc       string
	tuiTransport string
)

var tuiCmd = &cobra.Command{
	Use:   "tui",
	Short: "Interactive terminal console",
	Args:  cobra.NoArgs,
	RunE:  runTUI,
}

func init() {
	tuiCmd.Flags().StringVar(&tuiDoc, "doc", "", "text file used as context for every question")
	tuiCmd.Flags().StringVar(&tuiTransport, "transport", "", "subprocess or inprocess (default from SENTINEL_TRANSPORT)")
}

func runTUI(cmd *cobra.Command, args []string) error {
	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	kind := cfg.Transport
	if tuiTransport != "" {
		kind = tuiTransport
	}

	ctrl, cleanup, err := buildController(cmd.Context(), cfg, kind)
	if err != nil {
		return err
	}
	defer cleanup()

	st := *statex.NewSessionState(uuid.NewString(), ctrl.Personas(), time.Now())
	if tuiDoc != "" {
		raw, err := os.ReadFile(tuiDoc)
		if err != nil {
			return fmt.Errorf("read document: %w", err)
		}
		st = st.SetDocument(filepath.Base(tuiDoc), string(raw), time.Now())
	}

	model := tuix.New(ctrl, st, tuix.WithRenderer(tuix.DefaultRenderer(76)))
	_, err = tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(cmd.Context())).Run()
	return err
}
