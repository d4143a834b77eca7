package specialist

import (
	"context"
	"errors"
	"testing"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

type fakeChatModel struct {
	responses []*schema.Message
	err       error
	idx       int
	inputs    [][]*schema.Message
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.Message, error) {
	f.inputs = append(f.inputs, input)
	if f.err != nil {
		return nil, f.err
	}
	if f.idx >= len(f.responses) {
		return nil, errors.New("no fake response left")
	}
	msg := f.responses[f.idx]
	f.idx++
	return msg, nil
}

func (f *fakeChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not implemented in fake model")
}

func TestCompleteBuildsMessages(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{
		responses: []*schema.Message{schema.AssistantMessage("  the reply  ", nil)},
	}
	sp, err := newSpecialist(context.Background(), contractx.AgentStrata, fake)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}

	out, err := sp.Complete(context.Background(), contractx.CompletionRequest{
		System: `You are STRATA. End with {"summary": "..."}`,
		History: []contractx.Turn{
			{Role: contractx.RoleUser, Content: "earlier question"},
			{Role: contractx.RoleAssistant, Content: "earlier answer"},
		},
		Input: "Map {the} ecosystem",
	})
	if err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if out != "the reply" {
		t.Fatalf("unexpected reply: %q", out)
	}

	if len(fake.inputs) != 1 {
		t.Fatalf("expected one model call, got %d", len(fake.inputs))
	}
	msgs := fake.inputs[0]
	if len(msgs) != 4 {
		t.Fatalf("expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Role != schema.System || msgs[0].Content != `You are STRATA. End with {"summary": "..."}` {
		t.Fatalf("unexpected system message: %#v", msgs[0])
	}
	if msgs[1].Role != schema.User || msgs[2].Role != schema.Assistant {
		t.Fatalf("history out of order: %v, %v", msgs[1].Role, msgs[2].Role)
	}
	if msgs[3].Role != schema.User || msgs[3].Content != "Map {the} ecosystem" {
		t.Fatalf("unexpected user message: %#v", msgs[3])
	}
}

func TestCompleteWithoutHistory(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("ok", nil)}}
	sp, err := newSpecialist(context.Background(), contractx.AgentNeo, fake)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}
	if _, err := sp.Complete(context.Background(), contractx.CompletionRequest{System: "sys", Input: "q"}); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	if got := len(fake.inputs[0]); got != 2 {
		t.Fatalf("expected system+user only, got %d messages", got)
	}
}

func TestCompleteModelError(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{err: errors.New("401 unauthorized")}
	sp, err := newSpecialist(context.Background(), contractx.AgentNeo, fake)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}
	_, err = sp.Complete(context.Background(), contractx.CompletionRequest{System: "sys", Input: "q"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Complete() error = %v, want ErrModelInvoke", err)
	}
}

func TestCompleteEmptyReply(t *testing.T) {
	t.Parallel()

	fake := &fakeChatModel{responses: []*schema.Message{schema.AssistantMessage("   ", nil)}}
	sp, err := newSpecialist(context.Background(), contractx.AgentNeo, fake)
	if err != nil {
		t.Fatalf("newSpecialist() error = %v", err)
	}
	_, err = sp.Complete(context.Background(), contractx.CompletionRequest{System: "sys", Input: "q"})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("Complete() error = %v, want ErrModelInvoke", err)
	}
}

func TestNewRegistryBuildsEveryAgent(t *testing.T) {
	t.Parallel()

	var built []contractx.AgentKey
	reg, err := NewRegistry(context.Background(), personax.Default(),
		func(ctx context.Context, agent contractx.AgentKey) (einomodel.BaseChatModel, error) {
			built = append(built, agent)
			return &fakeChatModel{}, nil
		})
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	if len(built) != 5 {
		t.Fatalf("expected 5 models, got %d", len(built))
	}
	if _, err := reg.Specialist(contractx.AgentCipher); err != nil {
		t.Fatalf("Specialist(cipher) error = %v", err)
	}
	if _, err := reg.Specialist("oracle"); !errors.Is(err, contractx.ErrUnknownAgent) {
		t.Fatalf("Specialist(oracle) error = %v, want ErrUnknownAgent", err)
	}
}

func TestNewRegistryModelFactoryError(t *testing.T) {
	t.Parallel()

	_, err := NewRegistry(context.Background(), personax.Default(),
		func(ctx context.Context, agent contractx.AgentKey) (einomodel.BaseChatModel, error) {
			return nil, errors.New("boom")
		})
	if !errors.Is(err, contractx.ErrModelInvoke) {
		t.Fatalf("NewRegistry() error = %v, want ErrModelInvoke", err)
	}
}
