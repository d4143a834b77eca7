package orchestrator

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/sentinel-orchestrator/agent/nodes/orchestrator"
)

type step struct {
	name string
	run  func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error)
}

// askSteps are the state-to-state nodes between validation and the reply,
// in execution order.
func (o *Orchestrator) askSteps() []step {
	return []step{
		{"load_persona", func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadPersona(in, o.personas)
		}},
		{"read_memory", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ReadMemory(ctx, in, o.memory, o.historyTurns)
		}},
		{"invoke_specialist", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.InvokeSpecialist(ctx, in, o.models)
		}},
		{"extract_handoff", func(_ context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ExtractHandoff(in)
		}},
		{"write_memory", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.WriteMemory(ctx, in, o.memory)
		}},
		{"record_transcript", func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.RecordTranscript(ctx, in, o.transcript, o.newID)
		}},
	}
}

func (o *Orchestrator) compileAskGraph(
	ctx context.Context,
) (compose.Runnable[nodex.GraphInput, nodex.GraphOutput], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.GraphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateRequest(in, o.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	order := []string{compose.START, "validate_request"}
	for _, s := range o.askSteps() {
		if err := graph.AddLambdaNode(s.name, compose.InvokableLambda(s.run)); err != nil {
			return nil, fmt.Errorf("add node %s: %w", s.name, err)
		}
		order = append(order, s.name)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(_ context.Context, in *nodex.GraphState) (nodex.GraphOutput, error) {
			return nodex.FinalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}
	order = append(order, "finalize_reply", compose.END)

	for i := 1; i < len(order); i++ {
		if err := graph.AddEdge(order[i-1], order[i]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", order[i-1], order[i], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("orchestrator.ask"))
	if err != nil {
		return nil, fmt.Errorf("compile orchestrator graph: %w", err)
	}
	return runner, nil
}
