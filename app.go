package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	orchestratorx "github.com/tanpawarit/sentinel-orchestrator/agent/agents/orchestrator"
	specialistx "github.com/tanpawarit/sentinel-orchestrator/agent/agents/specialist"
	frontendx "github.com/tanpawarit/sentinel-orchestrator/agent/frontend"
	llmx "github.com/tanpawarit/sentinel-orchestrator/agent/llm"
	memoryx "github.com/tanpawarit/sentinel-orchestrator/agent/memory"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	promptx "github.com/tanpawarit/sentinel-orchestrator/agent/prompt"
	transcriptx "github.com/tanpawarit/sentinel-orchestrator/agent/transcript"
	transportx "github.com/tanpawarit/sentinel-orchestrator/agent/transport"
	chatmodelx "github.com/tanpawarit/sentinel-orchestrator/pkg/chatmodel"
	configx "github.com/tanpawarit/sentinel-orchestrator/pkg/config"
)

const (
	transportSubprocess = "subprocess"
	transportInProcess  = "inprocess"
)

// AppConfig is decoded with the SENTINEL prefix.
type AppConfig struct {
	PersonaFile      string        `split_words:"true"`
	Transport        string        `default:"subprocess"`
	TransportTimeout time.Duration `split_words:"true" default:"90s"`
	RetryBackoff     time.Duration `split_words:"true" default:"2s"`
}

func loadAppConfig() (*AppConfig, error) {
	return configx.New[AppConfig]("SENTINEL")
}

func loadPersonas(cfg *AppConfig) (*personax.Registry, error) {
	if path := strings.TrimSpace(cfg.PersonaFile); path != "" {
		return personax.LoadFile(path)
	}
	return personax.Default(), nil
}

func loadLLMConfig() (llmx.Config, error) {
	base, err := configx.New[chatmodelx.Config]("OPENAI")
	if err != nil {
		return llmx.Config{}, err
	}
	overrides, err := configx.New[llmx.Overrides]("SENTINEL")
	if err != nil {
		return llmx.Config{}, err
	}
	cfg := llmx.Config{Base: *base, Overrides: *overrides}
	if err := cfg.Validate(); err != nil {
		log.Warn().Err(err).Msg("calls will fail until the API key is configured")
	}
	return cfg, nil
}

// buildOrchestrator wires the persona table, the per-agent chat models and the
// transcript log. The caller closes the returned store.
func buildOrchestrator(
	ctx context.Context,
	personas *personax.Registry,
	models specialistx.ModelFactory,
	historyTurns int,
) (*orchestratorx.Orchestrator, transcriptx.Store, error) {
	registry, err := specialistx.NewRegistry(ctx, personas, models)
	if err != nil {
		return nil, nil, err
	}

	transcriptCfg, err := configx.New[transcriptx.Config]("SENTINEL_TRANSCRIPT")
	if err != nil {
		return nil, nil, err
	}
	transcript, err := transcriptx.Open(ctx, *transcriptCfg)
	if err != nil {
		log.Warn().Err(err).Msg("transcript database unavailable, using in-memory log")
		transcript = transcriptx.NewMemoryLog(transcriptCfg.Capacity)
	}

	orch, err := orchestratorx.New(personas, registry, memoryx.New(0), transcript, orchestratorx.Config{
		HistoryTurns: historyTurns,
	})
	if err != nil {
		_ = transcript.Close()
		return nil, nil, err
	}
	return orch, transcript, nil
}

// buildController wires the front-end controller over the configured transport.
func buildController(ctx context.Context, cfg *AppConfig, kind string) (*frontendx.Controller, func() error, error) {
	personas, err := loadPersonas(cfg)
	if err != nil {
		return nil, nil, err
	}
	limits, err := configx.New[promptx.Limits]("SENTINEL_PROMPT")
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() error { return nil }
	var inner transportx.Transport
	switch kind {
	case transportSubprocess:
		var args []string
		if envFile != "" {
			args = append(args, "--env", envFile)
		}
		sub, err := transportx.NewSubprocess(cfg.TransportTimeout, args...)
		if err != nil {
			return nil, nil, err
		}
		inner = sub
	case transportInProcess:
		llmCfg, err := loadLLMConfig()
		if err != nil {
			return nil, nil, err
		}
		orch, transcript, err := buildOrchestrator(ctx, personas, specialistx.OpenAIModels(llmCfg), llmCfg.HistoryTurns())
		if err != nil {
			return nil, nil, err
		}
		cleanup = transcript.Close
		inner = transportx.NewInProcess(orch)
	default:
		return nil, nil, fmt.Errorf("unknown transport %q (valid: %s, %s)", kind, transportSubprocess, transportInProcess)
	}

	ctrl, err := frontendx.NewController(personas, transportx.NewRetrying(inner, cfg.RetryBackoff), *limits)
	if err != nil {
		_ = cleanup()
		return nil, nil, err
	}
	log.Debug().Str("transport", kind).Msg("controller ready")
	return ctrl, cleanup, nil
}
