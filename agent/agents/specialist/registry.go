package specialist

import (
	"context"
	"fmt"

	einomodel "github.com/cloudwego/eino/components/model"
	contractx "github.com/tanpawarit/sentinel-orchestrator/agent/contract"
	llmx "github.com/tanpawarit/sentinel-orchestrator/agent/llm"
	personax "github.com/tanpawarit/sentinel-orchestrator/agent/persona"
)

type registryImpl struct {
	specialists map[contractx.AgentKey]contractx.Specialist
}

func (r *registryImpl) Specialist(agent contractx.AgentKey) (contractx.Specialist, error) {
	s, ok := r.specialists[agent]
	if !ok {
		return nil, fmt.Errorf("%w %q", contractx.ErrUnknownAgent, agent)
	}
	return s, nil
}

// ModelFactory builds the chat model for one agent.
type ModelFactory func(ctx context.Context, agent contractx.AgentKey) (einomodel.BaseChatModel, error)

// OpenAIModels builds per-agent OpenAI chat models from cfg.
func OpenAIModels(cfg llmx.Config) ModelFactory {
	return func(ctx context.Context, agent contractx.AgentKey) (einomodel.BaseChatModel, error) {
		modelCfg := cfg.For(agent)
		return modelCfg.New(ctx)
	}
}

// NewRegistry compiles one completion graph per pipeline agent.
func NewRegistry(ctx context.Context, personas *personax.Registry, models ModelFactory) (contractx.Registry, error) {
	if personas == nil {
		return nil, fmt.Errorf("%w: persona registry is required", contractx.ErrValidation)
	}
	if models == nil {
		return nil, fmt.Errorf("%w: model factory is required", contractx.ErrValidation)
	}

	r := &registryImpl{specialists: make(map[contractx.AgentKey]contractx.Specialist, 5)}
	for _, a := range personas.Order() {
		chatModel, err := models(ctx, a.Key)
		if err != nil {
			return nil, fmt.Errorf("%w: create %s model: %v", contractx.ErrModelInvoke, a.Key, err)
		}
		s, err := newSpecialist(ctx, a.Key, chatModel)
		if err != nil {
			return nil, err
		}
		r.specialists[a.Key] = s
	}
	return r, nil
}
