package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	orchestratorx "github.com/tanpawarit/sentinel-orchestrator/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/sentinel-orchestrator/agent/agents/specialist"
	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

const askUsage = "usage: sentinel ask <agent_key> <query_text>"

var errUsage = errors.New("wrong number of arguments")

var (
	askStrict bool
	askJSON   bool
)

var askCmd = &cobra.Command{
	Use:   "ask <agent> <query>",
	Short: "Ask one agent a single question",
	Long: `Runs one completion for the named agent and prints the reply followed by
the hand-off JSON on the last line. API failures are printed as a warning reply
and still exit 0 unless --strict is set.`,
	Args: func(cmd *cobra.Command, args []string) error {
		if len(args) != 2 {
			return errUsage
		}
		return nil
	},
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askStrict, "strict", false, "exit with status 2 when the API call fails")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print a single JSON envelope instead of text")
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := loadAppConfig()
	if err != nil {
		return err
	}
	personas, err := loadPersonas(cfg)
	if err != nil {
		return err
	}
	llmCfg, err := loadLLMConfig()
	if err != nil {
		return err
	}
	orch, transcript, err := buildOrchestrator(ctx, personas, specialistx.OpenAIModels(llmCfg), llmCfg.HistoryTurns())
	if err != nil {
		return err
	}
	defer transcript.Close()

	return ask(ctx, orch, cmd.OutOrStdout(), askOptions{
		Agent:  args[0],
		Query:  args[1],
		Strict: askStrict,
		JSON:   askJSON,
	})
}

type askOptions struct {
	Agent  string
	Query  string
	Strict bool
	JSON   bool
}

func ask(ctx context.Context, orch contractx.Orchestrator, w io.Writer, opts askOptions) error {
	resp, err := orch.Ask(ctx, contractx.AskRequest{
		SessionID: orchestratorx.DefaultSessionID,
		Agent:     contractx.AgentKey(opts.Agent),
		Query:     opts.Query,
	})
	if err != nil {
		return err
	}

	if opts.JSON {
		err = writeEnvelope(w, resp)
	} else {
		err = writeReply(w, resp)
	}
	if err != nil {
		return err
	}

	if opts.Strict && resp.Failed {
		return &exitError{code: 2}
	}
	return nil
}

// writeReply prints the reply, then the hand-off object alone on the last line.
func writeReply(w io.Writer, resp contractx.AskResponse) error {
	handoff, err := json.Marshal(resp.Handoff)
	if err != nil {
		return fmt.Errorf("encode hand-off: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n%s\n", strings.TrimSpace(resp.Reply), handoff)
	return err
}

func writeEnvelope(w io.Writer, resp contractx.AskResponse) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(resp)
}
