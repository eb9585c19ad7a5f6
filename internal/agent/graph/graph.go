package graph

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/SmartLoan360X/server/internal/agent/graph/nodes"
	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/workflow"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// GraphConfig holds all configuration needed to build the graph
type GraphConfig struct {
	Steps *nodes.Steps
}

// GraphBuilder handles the construction of the loan workflow graph
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[*model.Turn, *model.Turn]
}

// BuildGraph compiles the workflow into an Eino graph with one lambda node
// per step. Every branch enumerates exactly the successors the transition
// table allows for its step.
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[*model.Turn, *model.Turn], error) {
	if config == nil || config.Steps == nil {
		return nil, fmt.Errorf("graph config is nil")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[*model.Turn, *model.Turn](
			compose.WithGenLocalState(func(ctx context.Context) *model.RunState {
				return &model.RunState{}
			}),
		),
	}

	if err := builder.addNodes(); err != nil {
		return nil, err
	}
	if err := builder.addBranches(); err != nil {
		return nil, err
	}
	return builder.compile(ctx)
}

// addNodes adds one lambda node per workflow step
func (b *GraphBuilder) addNodes() error {
	for _, step := range workflow.Steps {
		err := b.graph.AddLambdaNode(nodes.NodeKey(step),
			b.config.Steps.Lambda(step),
			compose.WithStatePreHandler(nodes.NewStepPreHandler()),
			compose.WithStatePostHandler(nodes.NewStepPostHandler()),
			compose.WithNodeName(nodes.AgentFor(step)),
		)
		if err != nil {
			return fmt.Errorf("add node %s: %w", step, err)
		}
	}
	return nil
}

// addBranches wires the entry branch and one routing branch or edge per step
func (b *GraphBuilder) addBranches() error {
	entry := compose.NewGraphBranch(nodes.NewEntryCondition(), nodes.EntryTargets())
	if err := b.graph.AddBranch(compose.START, entry); err != nil {
		logx.Error().Err(err).Msg("Error adding entry branch")
		return fmt.Errorf("error adding entry branch: %w", err)
	}

	for _, step := range workflow.Steps {
		key := nodes.NodeKey(step)
		targets := nodes.RouteTargets(step)
		if len(targets) == 1 {
			for to := range targets {
				if err := b.graph.AddEdge(key, to); err != nil {
					return fmt.Errorf("add edge %s -> %s: %w", key, to, err)
				}
			}
			continue
		}
		branch := compose.NewGraphBranch(nodes.NewRouteCondition(), targets)
		if err := b.graph.AddBranch(key, branch); err != nil {
			logx.Error().Err(err).Str("step", string(step)).Msg("Error adding routing branch")
			return fmt.Errorf("error adding %s branch: %w", step, err)
		}
	}
	return nil
}

// compile finalizes and compiles the graph
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[*model.Turn, *model.Turn], error) {
	// the longest path visits every step once
	maxSteps := len(workflow.Steps) + 2

	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(maxSteps), compose.WithGraphName("loan_workflow"))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
