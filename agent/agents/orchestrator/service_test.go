package orchestrator

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	memoryx "github.com/tanpawarit/sentinel-orchestrator/agent/memory"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

type fakeSpecialist struct {
	mu       sync.Mutex
	replies  []string
	err      error
	calls    int
	lastReqs []contractx.CompletionRequest
}

func (f *fakeSpecialist) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastReqs = append(f.lastReqs, req)
	if f.err != nil {
		return "", f.err
	}
	idx := f.calls - 1
	if idx >= len(f.replies) {
		return "", errors.New("no reply left")
	}
	return f.replies[idx], nil
}

type fakeRegistry struct {
	specialists map[contractx.AgentKey]*fakeSpecialist
}

func (f *fakeRegistry) Specialist(agent contractx.AgentKey) (contractx.Specialist, error) {
	s, ok := f.specialists[agent]
	if !ok {
		return nil, contractx.ErrUnknownAgent
	}
	return s, nil
}

type fakeTranscript struct {
	mu        sync.Mutex
	err       error
	exchanges []contractx.Exchange
}

func (f *fakeTranscript) Record(ctx context.Context, ex contractx.Exchange) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.exchanges = append(f.exchanges, ex)
	return nil
}

func (f *fakeTranscript) List(ctx context.Context, agent contractx.AgentKey, limit int) ([]contractx.Exchange, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]contractx.Exchange(nil), f.exchanges...), nil
}

func TestAskUsesPersonaSystemPrompt(t *testing.T) {
	t.Parallel()

	strata := &fakeSpecialist{replies: []string{"Market map.\n{\"summary\":\"s\",\"insights\":\"i\",\"next_steps\":\"n\"}"}}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentStrata: strata}, nil, nil)

	resp, err := o.Ask(context.Background(), contractx.AskRequest{Agent: "strata", Query: "Map the EV battery market"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if strata.calls != 1 {
		t.Fatalf("expected one completion call, got %d", strata.calls)
	}

	req := strata.lastReqs[0]
	if !strings.Contains(req.System, "STRATA") {
		t.Fatalf("system prompt must name STRATA, got %q", req.System)
	}
	agent, _ := personax.Default().Lookup("strata")
	if !strings.Contains(req.System, agent.Mission) {
		t.Fatalf("system prompt must carry the mission, got %q", req.System)
	}
	if req.Input != "Map the EV battery market" {
		t.Fatalf("unexpected input %q", req.Input)
	}

	if !resp.Parsed || resp.Handoff.Summary != "s" || resp.Handoff.NextSteps != "n" {
		t.Fatalf("unexpected handoff: %#v parsed=%v", resp.Handoff, resp.Parsed)
	}
	if resp.Agent != contractx.AgentStrata || resp.Failed {
		t.Fatalf("unexpected response: %#v", resp)
	}
}

func TestAskNormalizesAgentKey(t *testing.T) {
	t.Parallel()

	neo := &fakeSpecialist{replies: []string{"numbers"}}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentNeo: neo}, nil, nil)

	resp, err := o.Ask(context.Background(), contractx.AskRequest{Agent: "  NEO ", Query: "model it"})
	if err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if resp.Agent != contractx.AgentNeo {
		t.Fatalf("expected agent neo, got %q", resp.Agent)
	}
	if resp.Parsed {
		t.Fatal("plain reply must not parse a handoff")
	}
	if resp.Handoff.Summary != "numbers" {
		t.Fatalf("fallback summary = %q", resp.Handoff.Summary)
	}
}

func TestAskInvalidInput(t *testing.T) {
	t.Parallel()

	strata := &fakeSpecialist{replies: []string{"unused"}}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentStrata: strata}, nil, nil)

	_, err := o.Ask(context.Background(), contractx.AskRequest{Agent: "strata", Query: "   "})
	if !errors.Is(err, ErrInvalidMessage) {
		t.Fatalf("expected ErrInvalidMessage, got %v", err)
	}

	_, err = o.Ask(context.Background(), contractx.AskRequest{Agent: "oracle", Query: "hi"})
	if !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
	if !strings.Contains(err.Error(), "strata, dealhawk, neo, proforma, cipher") {
		t.Fatalf("error must list valid agents, got %v", err)
	}

	if strata.calls != 0 {
		t.Fatalf("no completion expected on invalid input, got %d", strata.calls)
	}
}

func TestAskEmbedsModelFailure(t *testing.T) {
	t.Parallel()

	cipher := &fakeSpecialist{err: errors.New("rate limited")}
	memory := memoryx.New(0)
	transcript := &fakeTranscript{}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentCipher: cipher}, memory, transcript)

	resp, err := o.Ask(context.Background(), contractx.AskRequest{SessionID: "s1", Agent: "cipher", Query: "assemble"})
	if err != nil {
		t.Fatalf("model failure must not be returned as error, got %v", err)
	}
	if !resp.Failed {
		t.Fatal("expected Failed to be set")
	}
	if !strings.HasPrefix(resp.Reply, "⚠️ CIPHER error:") || !strings.Contains(resp.Reply, "rate limited") {
		t.Fatalf("unexpected failure reply %q", resp.Reply)
	}

	turns, _ := memory.Recent(context.Background(), "s1", contractx.AgentCipher, 10)
	if len(turns) != 0 {
		t.Fatalf("failed call must not be remembered, got %d turns", len(turns))
	}
	if len(transcript.exchanges) != 0 {
		t.Fatalf("failed call must not be recorded, got %d", len(transcript.exchanges))
	}
}

func TestAskCarriesHistoryPerSession(t *testing.T) {
	t.Parallel()

	dealhawk := &fakeSpecialist{replies: []string{"first", "second", "other"}}
	memory := memoryx.New(0)
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentDealhawk: dealhawk}, memory, nil)
	ctx := context.Background()

	if _, err := o.Ask(ctx, contractx.AskRequest{SessionID: "a", Agent: "dealhawk", Query: "q1"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := o.Ask(ctx, contractx.AskRequest{SessionID: "a", Agent: "dealhawk", Query: "q2"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if _, err := o.Ask(ctx, contractx.AskRequest{SessionID: "b", Agent: "dealhawk", Query: "q3"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}

	second := dealhawk.lastReqs[1].History
	if len(second) != 2 || second[0].Content != "q1" || second[1].Content != "first" {
		t.Fatalf("unexpected history for second call: %#v", second)
	}
	if second[0].Role != contractx.RoleUser || second[1].Role != contractx.RoleAssistant {
		t.Fatalf("unexpected roles: %#v", second)
	}
	if len(dealhawk.lastReqs[2].History) != 0 {
		t.Fatalf("session b must not see session a history: %#v", dealhawk.lastReqs[2].History)
	}

	if err := o.Reset(ctx, "a", "DEALHAWK"); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	turns, _ := memory.Recent(ctx, "a", contractx.AgentDealhawk, 10)
	if len(turns) != 0 {
		t.Fatalf("expected session a cleared, got %d turns", len(turns))
	}
	turns, _ = memory.Recent(ctx, "b", contractx.AgentDealhawk, 10)
	if len(turns) != 2 {
		t.Fatalf("reset must not touch session b, got %d turns", len(turns))
	}

	if err := o.Reset(ctx, "a", "oracle"); !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}

func TestAskHistoryWindow(t *testing.T) {
	t.Parallel()

	proforma := &fakeSpecialist{replies: []string{"r1", "r2", "r3"}}
	registry := &fakeRegistry{specialists: map[contractx.AgentKey]*fakeSpecialist{contractx.AgentProforma: proforma}}
	o, err := New(personax.Default(), registry, memoryx.New(0), nil, Config{HistoryTurns: 2})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	for _, q := range []string{"q1", "q2", "q3"} {
		if _, err := o.Ask(context.Background(), contractx.AskRequest{Agent: "proforma", Query: q}); err != nil {
			t.Fatalf("Ask() error = %v", err)
		}
	}

	last := proforma.lastReqs[2].History
	if len(last) != 2 || last[0].Content != "q2" || last[1].Content != "r2" {
		t.Fatalf("expected the latest two turns, got %#v", last)
	}
}

func TestAskRecordsTranscript(t *testing.T) {
	t.Parallel()

	strata := &fakeSpecialist{replies: []string{"ok"}}
	transcript := &fakeTranscript{}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentStrata: strata}, nil, transcript)
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	o.now = func() time.Time { return fixed }
	o.newID = func() string { return "ex-1" }

	if _, err := o.Ask(context.Background(), contractx.AskRequest{SessionID: "s", Agent: "strata", Query: "q"}); err != nil {
		t.Fatalf("Ask() error = %v", err)
	}
	if len(transcript.exchanges) != 1 {
		t.Fatalf("expected one exchange, got %d", len(transcript.exchanges))
	}
	ex := transcript.exchanges[0]
	if ex.ID != "ex-1" || ex.SessionID != "s" || ex.Agent != contractx.AgentStrata || !ex.CreatedAt.Equal(fixed) {
		t.Fatalf("unexpected exchange: %#v", ex)
	}
}

func TestAskTranscriptErrorIsIgnored(t *testing.T) {
	t.Parallel()

	strata := &fakeSpecialist{replies: []string{"ok"}}
	transcript := &fakeTranscript{err: errors.New("db down")}
	o := newTestOrchestrator(t, map[contractx.AgentKey]*fakeSpecialist{contractx.AgentStrata: strata}, nil, transcript)

	resp, err := o.Ask(context.Background(), contractx.AskRequest{Agent: "strata", Query: "q"})
	if err != nil {
		t.Fatalf("transcript failure must not fail the ask, got %v", err)
	}
	if resp.Reply != "ok" {
		t.Fatalf("unexpected reply %q", resp.Reply)
	}
}

func TestNewRequiresDependencies(t *testing.T) {
	t.Parallel()

	if _, err := New(nil, &fakeRegistry{}, nil, nil, Config{}); err == nil {
		t.Fatal("expected error without personas")
	}
	if _, err := New(personax.Default(), nil, nil, nil, Config{}); err == nil {
		t.Fatal("expected error without registry")
	}
}

func newTestOrchestrator(
	t *testing.T,
	specialists map[contractx.AgentKey]*fakeSpecialist,
	memory contractx.MemoryStore,
	transcript contractx.TranscriptStore,
) *Orchestrator {
	t.Helper()
	o, err := New(personax.Default(), &fakeRegistry{specialists: specialists}, memory, transcript, Config{HistoryTurns: 6})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return o
}
