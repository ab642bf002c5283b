package conversation

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"
	nodex "github.com/tanpawarit/gram-sahayak/assistant/nodes"
)

const (
	nodeValidateEvent = "validate_event"
	nodeLoadSession   = "load_session"
	nodeResetSession  = "reset_session"
	nodeApplyEvent    = "apply_event"
	nodeSettleStep    = "settle_step"
	nodeSaveSession   = "save_session"
	nodeFinalizeView  = "finalize_view"
)

func (s *Service) compileRoundGraph(ctx context.Context) (compose.Runnable[nodex.GraphInput, nodex.Outcome], error) {
	graph := compose.NewGraph[nodex.GraphInput, nodex.Outcome]()

	if err := graph.AddLambdaNode(nodeValidateEvent,
		compose.InvokableLambda(func(ctx context.Context, in nodex.GraphInput) (*nodex.GraphState, error) {
			return nodex.ValidateEvent(in, s.deps.Locales, s.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeValidateEvent, err)
	}

	if err := graph.AddLambdaNode(nodeLoadSession,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.LoadOrCreateSession(ctx, in, s.store, s.defaultLocale)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeLoadSession, err)
	}

	if err := graph.AddLambdaNode(nodeResetSession,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ResetSession(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeResetSession, err)
	}

	if err := graph.AddLambdaNode(nodeApplyEvent,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.ApplyEvent(ctx, in, s.deps)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeApplyEvent, err)
	}

	if err := graph.AddLambdaNode(nodeSettleStep,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SettleStep(in, s.deps.Catalog, s.deps.Locales)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSettleStep, err)
	}

	if err := graph.AddLambdaNode(nodeSaveSession,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (*nodex.GraphState, error) {
			return nodex.SaveSession(ctx, in, s.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeSaveSession, err)
	}

	if err := graph.AddLambdaNode(nodeFinalizeView,
		compose.InvokableLambda(func(ctx context.Context, in *nodex.GraphState) (nodex.Outcome, error) {
			return nodex.FinalizeView(in, s.deps.Catalog, s.deps.Locales)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node %s: %w", nodeFinalizeView, err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *nodex.GraphState) (string, error) {
			if in == nil {
				return "", fmt.Errorf("graph state is nil")
			}
			if nodex.NeedsReset(in.Event.Kind) {
				return nodeResetSession, nil
			}
			return nodeApplyEvent, nil
		},
		map[string]bool{
			nodeResetSession: true,
			nodeApplyEvent:   true,
		},
	)
	if err := graph.AddBranch(nodeLoadSession, branch); err != nil {
		return nil, fmt.Errorf("add branch after %s: %w", nodeLoadSession, err)
	}

	edges := [][2]string{
		{compose.START, nodeValidateEvent},
		{nodeValidateEvent, nodeLoadSession},
		{nodeResetSession, nodeSettleStep},
		{nodeApplyEvent, nodeSettleStep},
		{nodeSettleStep, nodeSaveSession},
		{nodeSaveSession, nodeFinalizeView},
		{nodeFinalizeView, compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("conversation.round"))
	if err != nil {
		return nil, fmt.Errorf("compile conversation graph: %w", err)
	}
	return runner, nil
}
