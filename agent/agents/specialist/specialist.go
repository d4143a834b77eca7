package specialist

import (
	"context"
	"fmt"
	"strings"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
)

type specialistImpl struct {
	agent  contractx.AgentKey
	runner compose.Runnable[map[string]any, *schema.Message]
}

func newSpecialist(ctx context.Context, agent contractx.AgentKey, chatModel einomodel.BaseChatModel) (*specialistImpl, error) {
	runner, err := compileCompletionGraph(ctx, chatModel, "specialist."+string(agent))
	if err != nil {
		return nil, fmt.Errorf("%w: compile completion graph for agent=%s: %v", contractx.ErrModelInvoke, agent, err)
	}
	return &specialistImpl{agent: agent, runner: runner}, nil
}

func (s *specialistImpl) Complete(ctx context.Context, req contractx.CompletionRequest) (string, error) {
	if strings.TrimSpace(req.System) == "" {
		return "", fmt.Errorf("%w: system prompt for agent=%s", contractx.ErrPromptMissing, s.agent)
	}
	if strings.TrimSpace(req.Input) == "" {
		return "", contractx.ErrEmptyQuery
	}

	msg, err := s.runner.Invoke(ctx, map[string]any{
		varSystem:  req.System,
		varHistory: toMessages(req.History),
		varInput:   req.Input,
	})
	if err != nil {
		return "", fmt.Errorf("%w: agent=%s: %v", contractx.ErrModelInvoke, s.agent, err)
	}
	if msg == nil || strings.TrimSpace(msg.Content) == "" {
		return "", fmt.Errorf("%w: agent=%s returned an empty reply", contractx.ErrModelInvoke, s.agent)
	}
	return strings.TrimSpace(msg.Content), nil
}

func toMessages(turns []contractx.Turn) []*schema.Message {
	out := make([]*schema.Message, 0, len(turns))
	for _, t := range turns {
		switch t.Role {
		case contractx.RoleUser:
			out = append(out, schema.UserMessage(t.Content))
		case contractx.RoleAssistant:
			out = append(out, schema.AssistantMessage(t.Content, nil))
		}
	}
	return out
}
