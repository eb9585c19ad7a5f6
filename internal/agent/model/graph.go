package model

import (
	"github.com/SmartLoan360X/server/internal/agent/workflow"
)

// EventKind identifies which UI action started an invocation.
type EventKind string

const (
	EventChat   EventKind = "chat"
	EventUpload EventKind = "upload"
)

// Event is one user action delivered by the presentation boundary.
type Event struct {
	Kind      EventKind `json:"kind"`
	Utterance string    `json:"utterance,omitempty"`
	FilePath  string    `json:"file_path,omitempty"`
}

// Turn is the value passed between graph nodes during one invocation.
type Turn struct {
	Event   Event
	State   *ConversationState
	Entry   workflow.Step
	Step    workflow.Step
	Next    workflow.Step
	Agent   string
	Replies []string
	Trail   []workflow.Step
	CostUSD float64
}

// Reply records one user-facing message produced by the current step.
func (t *Turn) Reply(text string) {
	t.State.FinalResponse = text
	t.Replies = append(t.Replies, text)
}

// RunState stores per-invocation bookkeeping for the Eino Graph.
// It is registered via compose.WithGenLocalState and only touched inside
// state handlers or compose.ProcessState.
type RunState struct {
	SessionID string
	Trail     []workflow.Step
}

// TurnResult is what the orchestrator hands back to the presentation boundary.
type TurnResult struct {
	SessionID string             `json:"session_id"`
	Reply     string             `json:"reply"`
	Replies   []string           `json:"replies"`
	Agent     string             `json:"agent"`
	Trail     []workflow.Step    `json:"trail"`
	TaskDone  bool               `json:"task_is_done"`
	CostUSD   float64            `json:"cost_usd"`
	State     *ConversationState `json:"state"`
}
