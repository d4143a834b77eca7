package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
	chatmodelx "github.com/tanpawarit/sentinel-orchestrator/pkg/chatmodel"
)

type fakeChatModel struct {
	mu     sync.Mutex
	reply  string
	err    error
	inputs [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	return schema.AssistantMessage(f.reply, nil), nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func fakeModels(fake *fakeChatModel) func(context.Context, contractx.AgentKey) (einomodel.BaseChatModel, error) {
	return func(context.Context, contractx.AgentKey) (einomodel.BaseChatModel, error) {
		return fake, nil
	}
}

func TestAskEndToEnd(t *testing.T) {
	fake := &fakeChatModel{reply: "Canada's ecosystem spans hydro, nuclear and critical minerals.\n" +
		`{"summary":"S","insights":"I","next_steps":"N"}`}
	orch, transcript, err := buildOrchestrator(context.Background(), personax.Default(), fakeModels(fake), 6)
	if err != nil {
		t.Fatalf("buildOrchestrator() error = %v", err)
	}
	defer transcript.Close()

	var out bytes.Buffer
	err = ask(context.Background(), orch, &out, askOptions{Agent: "strata", Query: "Map Canada's energy transition ecosystem"})
	if err != nil {
		t.Fatalf("ask() error = %v", err)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one completion call, got %d", len(fake.inputs))
	}
	system := fake.inputs[0][0]
	strata, _ := personax.Default().Lookup("strata")
	if system.Role != schema.System || !strings.Contains(system.Content, "STRATA") || !strings.Contains(system.Content, strata.Mission) {
		t.Fatalf("unexpected system message: %#v", system)
	}

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if !strings.HasPrefix(lines[0], "Canada's ecosystem") {
		t.Fatalf("reply not printed first:\n%s", out.String())
	}
	var h contractx.Handoff
	if err := json.Unmarshal([]byte(lines[len(lines)-1]), &h); err != nil {
		t.Fatalf("last line is not the hand-off JSON: %v\n%s", err, out.String())
	}
	if h != (contractx.Handoff{Summary: "S", Insights: "I", NextSteps: "N"}) {
		t.Fatalf("unexpected hand-off %#v", h)
	}
}

func TestAskFailureExitCodes(t *testing.T) {
	fake := &fakeChatModel{err: errors.New("401 unauthorized")}
	orch, transcript, err := buildOrchestrator(context.Background(), personax.Default(), fakeModels(fake), 6)
	if err != nil {
		t.Fatalf("buildOrchestrator() error = %v", err)
	}
	defer transcript.Close()

	var out bytes.Buffer
	if err := ask(context.Background(), orch, &out, askOptions{Agent: "neo", Query: "q"}); err != nil {
		t.Fatalf("non-strict ask must succeed, got %v", err)
	}
	if !strings.HasPrefix(out.String(), "⚠️ NEO error:") {
		t.Fatalf("unexpected output %q", out.String())
	}

	out.Reset()
	err = ask(context.Background(), orch, &out, askOptions{Agent: "neo", Query: "q", Strict: true, JSON: true})
	var exitErr *exitError
	if !errors.As(err, &exitErr) || exitErr.code != 2 {
		t.Fatalf("expected exit code 2, got %v", err)
	}
	var env contractx.AskResponse
	if err := json.Unmarshal(out.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if !env.Failed || env.Agent != contractx.AgentNeo {
		t.Fatalf("unexpected envelope %#v", env)
	}
}

func TestAskUnknownAgent(t *testing.T) {
	orch, transcript, err := buildOrchestrator(context.Background(), personax.Default(), fakeModels(&fakeChatModel{reply: "x"}), 6)
	if err != nil {
		t.Fatalf("buildOrchestrator() error = %v", err)
	}
	defer transcript.Close()

	err = ask(context.Background(), orch, &bytes.Buffer{}, askOptions{Agent: "oracle", Query: "q"})
	if !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestAskArgs(t *testing.T) {
	t.Parallel()

	for _, args := range [][]string{{}, {"strata"}, {"strata", "a", "b"}} {
		if err := askCmd.Args(askCmd, args); !errors.Is(err, errUsage) {
			t.Fatalf("Args(%v) = %v, want errUsage", args, err)
		}
	}
	if err := askCmd.Args(askCmd, []string{"strata", "q"}); err != nil {
		t.Fatalf("Args() error = %v", err)
	}
}

func TestDoctor(t *testing.T) {
	t.Parallel()

	var out bytes.Buffer
	err := doctor(context.Background(), &out, chatmodelx.Config{}, false, nil)
	var exitErr *exitError
	if !errors.As(err, &exitErr) || !strings.Contains(out.String(), "OPENAI_API_KEY is not set") {
		t.Fatalf("missing key: err=%v out=%q", err, out.String())
	}

	out.Reset()
	cfg := chatmodelx.Config{APIKey: "sk-test-1234567890", Model: "gpt-test"}
	pinged := false
	err = doctor(context.Background(), &out, cfg, true, func(ctx context.Context, c chatmodelx.Config) (string, error) {
		pinged = true
		return "openai", nil
	})
	if err != nil || !pinged {
		t.Fatalf("doctor() err=%v pinged=%v", err, pinged)
	}
	if strings.Contains(out.String(), "1234567890") || !strings.Contains(out.String(), "sk-test…90") {
		t.Fatalf("key not masked: %q", out.String())
	}
	if !strings.Contains(out.String(), "owned by openai") {
		t.Fatalf("ping result missing: %q", out.String())
	}
}

func TestAgentsTableOrder(t *testing.T) {
	t.Parallel()

	out := agentsTable(personax.Default())
	last := -1
	for _, name := range []string{"STRATA", "DEALHAWK", "NEO", "PROFORMA", "CIPHER"} {
		i := strings.Index(out, name)
		if i <= last {
			t.Fatalf("%s out of order:\n%s", name, out)
		}
		last = i
	}
}

func TestRootInitialisesLoggerFromEnv(t *testing.T) {
	t.Setenv("LOG_DEBUG", "true")

	if err := rootCmd.PersistentPreRunE(agentsCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE() error = %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.DebugLevel {
		t.Fatalf("logger level = %s, want debug", got)
	}

	t.Setenv("LOG_DEBUG", "false")
	if err := rootCmd.PersistentPreRunE(agentsCmd, nil); err != nil {
		t.Fatalf("PersistentPreRunE() error = %v", err)
	}
	if got := log.Logger.GetLevel(); got != zerolog.InfoLevel {
		t.Fatalf("logger level = %s, want info", got)
	}
}
