package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	configx "github.com/tanpawarit/sentinel-orchestrator/pkg/config"
	logx "github.com/tanpawarit/sentinel-orchestrator/pkg/logger"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "sentinel",
	Short: "Five-stage analysis pipeline: strata → dealhawk → neo → proforma → cipher",
	Long: `Sentinel runs five specialist agents in a fixed pipeline. Each agent answers
in prose and ends its reply with a JSON hand-off that seeds the next stage.

  sentinel ask strata "Map Canada's energy transition ecosystem"
  sentinel tui
  sentinel serve`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		configx.SetEnvFile(envFile)
		logConf, err := configx.New[logx.Config]("LOG")
		if err != nil {
			return err
		}
		if verbose {
			logConf.Debug = true
		}
		logx.Init(*logConf)
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env", "", "env file to load (default ./.env when present)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(askCmd, tuiCmd, serveCmd, doctorCmd, agentsCmd, historyCmd)
}

func main() {
	err := rootCmd.Execute()
	if err == nil {
		return
	}

	if errors.Is(err, errUsage) {
		fmt.Fprintln(os.Stdout, askUsage)
		os.Exit(1)
	}
	var exitErr *exitError
	if errors.As(err, &exitErr) {
		os.Exit(exitErr.code)
	}
	fmt.Fprintln(os.Stderr, "Error:", err)
	os.Exit(1)
}

// exitError ends the process with code without printing anything further.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}
