package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	chatmodelx "github.com/tanpawarit/sentinel-orchestrator/pkg/chatmodel"
	configx "github.com/tanpawarit/sentinel-orchestrator/pkg/config"
)

var doctorPing bool

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check the environment the agents need",
	Args:  cobra.NoArgs,
	RunE:  runDoctor,
}

func init() {
	doctorCmd.Flags().BoolVar(&doctorPing, "ping", false, "ask the API for the configured model")
}

func runDoctor(cmd *cobra.Command, args []string) error {
	cfg, err := configx.New[chatmodelx.Config]("OPENAI")
	if err != nil {
		return err
	}
	return doctor(cmd.Context(), cmd.OutOrStdout(), *cfg, doctorPing, chatmodelx.Ping)
}

type pingFunc func(ctx context.Context, cfg chatmodelx.Config) (string, error)

func doctor(ctx context.Context, w io.Writer, cfg chatmodelx.Config, ping bool, pinger pingFunc) error {
	key := strings.TrimSpace(cfg.APIKey)
	if key == "" {
		fmt.Fprintln(w, "❌ OPENAI_API_KEY is not set")
	} else {
		fmt.Fprintf(w, "✅ OPENAI_API_KEY loaded: %s\n", maskKey(key))
	}
	fmt.Fprintf(w, "✅ OPENAI_MODEL: %s\n", cfg.ModelName())
	fmt.Fprintf(w, "   OPENAI_BASE_URL: %s\n", cfg.BaseURL)

	if key == "" {
		return &exitError{code: 1}
	}
	if !ping {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	owner, err := pinger(ctx, cfg)
	if err != nil {
		fmt.Fprintf(w, "❌ API check failed: %v\n", err)
		return &exitError{code: 1}
	}
	fmt.Fprintf(w, "✅ API reachable, model %s owned by %s\n", cfg.ModelName(), owner)
	return nil
}

func maskKey(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:7] + "…" + key[len(key)-2:]
}
