package nodes

import (
	"context"
	"fmt"

	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/workflow"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// NewStepPreHandler binds the invocation's RunState to the session and guards
// against revisiting more steps than the workflow has.
func NewStepPreHandler() func(context.Context, *model.Turn, *model.RunState) (*model.Turn, error) {
	return func(ctx context.Context, in *model.Turn, rs *model.RunState) (*model.Turn, error) {
		if rs.SessionID == "" {
			rs.SessionID = in.State.ID
		}
		if len(rs.Trail) >= len(workflow.Steps) {
			return nil, fmt.Errorf("session %s: step limit reached after %v", rs.SessionID, rs.Trail)
		}
		return in, nil
	}
}

// NewStepPostHandler records the visited step and parks the conversation when
// the next step needs a fresh utterance.
func NewStepPostHandler() func(context.Context, *model.Turn, *model.RunState) (*model.Turn, error) {
	return func(ctx context.Context, out *model.Turn, rs *model.RunState) (*model.Turn, error) {
		rs.Trail = append(rs.Trail, out.Step)
		out.Trail = append([]workflow.Step(nil), rs.Trail...)

		if out.Next.AwaitsInput() {
			out.State.Pending = out.Next
			logx.Debug().
				Str("session_id", rs.SessionID).
				Str("step", string(out.Step)).
				Str("pending_step", string(out.Next)).
				Msg("waiting for user input")
			out.Next = workflow.End
		}
		return out, nil
	}
}

// NewEntryCondition picks the first node from the turn's entry step.
func NewEntryCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, in *model.Turn) (string, error) {
		if !in.Entry.Valid() {
			return "", fmt.Errorf("invalid entry step %q", in.Entry)
		}
		logx.Debug().Str("session_id", in.State.ID).Str("entry", string(in.Entry)).Msg("routing entry")
		return NodeKey(in.Entry), nil
	}
}

// NewRouteCondition follows the next step resolved by the step that just ran.
func NewRouteCondition() func(context.Context, *model.Turn) (string, error) {
	return func(ctx context.Context, in *model.Turn) (string, error) {
		logx.Debug().Str("session_id", in.State.ID).Str("from", string(in.Step)).Str("to", string(in.Next)).Msg("routing")
		return NodeKey(in.Next), nil
	}
}

// RouteTargets returns the graph node keys a branch after step may choose.
// Awaiting steps are never entered mid-invocation, so they map to END.
func RouteTargets(step workflow.Step) map[string]bool {
	out := map[string]bool{}
	for _, next := range workflow.Successors(step) {
		if next.AwaitsInput() {
			next = workflow.End
		}
		out[NodeKey(next)] = true
	}
	return out
}

// EntryTargets returns every node an invocation may start at.
func EntryTargets() map[string]bool {
	out := map[string]bool{NodeKey(workflow.Sales): true, NodeKey(workflow.KYC): true}
	for _, s := range workflow.Steps {
		if s.AwaitsInput() {
			out[NodeKey(s)] = true
		}
	}
	return out
}

