package graph

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/SmartLoan360X/server/internal/agent/graph/conversations"
	"github.com/SmartLoan360X/server/internal/agent/graph/nodes"
	"github.com/SmartLoan360X/server/internal/agent/graph/observers"
	"github.com/SmartLoan360X/server/internal/agent/graph/prompts"
	"github.com/SmartLoan360X/server/internal/agent/graph/tools"
	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/workflow"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	"github.com/SmartLoan360X/server/internal/events"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// greeting is the synthetic utterance that opens every session.
const greeting = "Hello"

// Config holds everything needed to compose the orchestrator end-to-end.
// This is a convenience layer over GraphConfig that also constructs the chat
// model, the text extractor and the session manager.
type Config struct {
	APIKey        string
	BaseURL       string
	ResponseModel model.ResponseModelConfig
	Underwriting  model.UnderwritingConfig
	Session       model.SessionConfig
	KYC           model.KYCConfig
	Letter        model.LetterConfig
	Sessions      model.SessionRepository
	Publisher     events.Publisher
}

// Orchestrator runs one graph invocation per user action.
type Orchestrator struct {
	runnable compose.Runnable[*model.Turn, *model.Turn]
	offline  error
	sessions *conversations.SessionManager
	personas *prompts.Registry
	newID    func() string
}

// BuildResponseGraph wires the Gemini chat model into the workflow graph.
// When the generative service cannot be initialised the orchestrator is
// returned in offline mode instead of failing.
func BuildResponseGraph(ctx context.Context, cfg Config) (*Orchestrator, error) {
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session repository is nil")
	}
	personas, err := prompts.LoadRegistry()
	if err != nil {
		return nil, err
	}
	if cfg.Session.DefaultPersona == "" {
		cfg.Session.DefaultPersona = personas.Default()
	}
	if !personas.Has(cfg.Session.DefaultPersona) {
		return nil, errx.New(nil, http.StatusInternalServerError, fmt.Sprintf("unknown default persona %q", cfg.Session.DefaultPersona))
	}
	sessions := conversations.NewSessionManager(cfg.Sessions, cfg.Session)

	cms, err := nodes.NewChatModels(ctx, nodes.ChatModelConfig{
		APIKey:     cfg.APIKey,
		BaseURL:    cfg.BaseURL,
		RespConfig: &cfg.ResponseModel,
	})
	if err != nil {
		logx.Warn().Err(err).Msg("generative service unavailable, running offline")
		return NewOfflineOrchestrator(sessions, personas, err), nil
	}

	generator, err := nodes.NewChatModelGenerator(cms.Response, cms.ResponseModelName, personas)
	if err != nil {
		return nil, err
	}

	var extractor tools.TextExtractor = tools.FilenameExtractor{}
	if cfg.KYC.Extractor == "gemini" {
		ge, err := tools.NewGeminiExtractor(cms.Client, cfg.KYC.Model)
		if err != nil {
			return nil, err
		}
		extractor = ge
	}

	steps, err := nodes.NewSteps(nodes.StepDeps{
		Generator: generator,
		Verifier:  tools.NewDocumentVerifier(extractor),
		Scorer:    tools.NewScorer(cfg.Underwriting),
		Letters:   tools.NewMarkdownLetterRenderer(cfg.Letter.Lender, cfg.Letter.Dir),
		Publisher: cfg.Publisher,
	})
	if err != nil {
		return nil, err
	}

	o, err := NewOrchestrator(ctx, steps, sessions, personas)
	if err != nil {
		return nil, err
	}
	logx.Debug().Str("extractor", cfg.KYC.Extractor).Msg("Response graph built successfully")
	return o, nil
}

// NewOrchestrator compiles the graph over already built steps.
func NewOrchestrator(ctx context.Context, steps *nodes.Steps, sessions *conversations.SessionManager, personas *prompts.Registry) (*Orchestrator, error) {
	runnable, err := BuildGraph(ctx, &GraphConfig{Steps: steps})
	if err != nil {
		return nil, err
	}
	return &Orchestrator{runnable: runnable, sessions: sessions, personas: personas, newID: uuid.NewString}, nil
}

// NewOfflineOrchestrator answers every turn with the offline message.
func NewOfflineOrchestrator(sessions *conversations.SessionManager, personas *prompts.Registry, cause error) *Orchestrator {
	if cause == nil {
		cause = errors.New("generative service not configured")
	}
	return &Orchestrator{offline: errx.Offline(cause), sessions: sessions, personas: personas, newID: uuid.NewString}
}

// Offline reports whether the generative service failed to initialise.
func (o *Orchestrator) Offline() bool { return o.offline != nil }

func (o *Orchestrator) Personas() []string { return o.personas.Names() }

// Start creates a session and runs the opening sales turn.
func (o *Orchestrator) Start(ctx context.Context) (*model.TurnResult, error) {
	id := o.newID()
	if _, err := o.sessions.Create(ctx, id); err != nil {
		return nil, err
	}
	return o.Chat(ctx, id, greeting)
}

// Chat handles a typed user message. It enters at the pending step when one
// is parked, otherwise at sales.
func (o *Orchestrator) Chat(ctx context.Context, sessionID, utterance string) (*model.TurnResult, error) {
	if strings.TrimSpace(utterance) == "" {
		return nil, errx.Validation("message must not be empty")
	}
	return o.invoke(ctx, sessionID, model.Event{Kind: model.EventChat, Utterance: utterance})
}

// Upload handles a stored identity document and enters the graph at kyc.
func (o *Orchestrator) Upload(ctx context.Context, sessionID, path string) (*model.TurnResult, error) {
	return o.invoke(ctx, sessionID, model.Event{Kind: model.EventUpload, FilePath: path})
}

// SetPersona switches the active persona. Unknown names are rejected.
func (o *Orchestrator) SetPersona(ctx context.Context, sessionID, persona string) (*model.ConversationState, error) {
	if !o.personas.Has(persona) {
		return nil, errx.Validationf("unknown persona %q", persona)
	}
	return o.sessions.Update(ctx, sessionID, func(st *model.ConversationState) error {
		st.Persona = persona
		return nil
	})
}

func (o *Orchestrator) UpdateProfile(ctx context.Context, sessionID string, u model.ProfileUpdate) (*model.ConversationState, error) {
	if err := u.Validate(); err != nil {
		return nil, err
	}
	return o.sessions.Update(ctx, sessionID, func(st *model.ConversationState) error {
		return u.Apply(&st.Customer)
	})
}

func (o *Orchestrator) Session(ctx context.Context, sessionID string) (*model.ConversationState, error) {
	return o.sessions.Get(ctx, sessionID)
}

// EndSession drops the session and its transcript.
func (o *Orchestrator) EndSession(ctx context.Context, sessionID string) error {
	if _, err := o.sessions.Get(ctx, sessionID); err != nil {
		return err
	}
	return o.sessions.Delete(ctx, sessionID)
}

func (o *Orchestrator) invoke(ctx context.Context, sessionID string, ev model.Event) (*model.TurnResult, error) {
	var out *model.Turn
	st, err := o.sessions.Update(ctx, sessionID, func(st *model.ConversationState) error {
		if o.offline != nil {
			out = &model.Turn{State: st}
			logx.Debug().Err(o.offline).Str("session_id", sessionID).Msg("offline turn")
			out.Reply(errx.MessageOf(o.offline))
			st.MarkDone()
			return nil
		}

		turn := o.prepare(st, ev)
		res, err := o.runnable.Invoke(ctx, turn, compose.WithCallbacks(observers.NewAllCallbacks()))
		if err != nil {
			return o.wrapInvokeError(err)
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	logx.Info().
		Str("session_id", sessionID).
		Str("event", string(ev.Kind)).
		Str("agent", out.Agent).
		Interface("trail", out.Trail).
		Bool("task_is_done", st.TaskDone).
		Float64("total_cost_usd", out.CostUSD).
		Msg("turn completed")

	return &model.TurnResult{
		SessionID: sessionID,
		Reply:     st.FinalResponse,
		Replies:   out.Replies,
		Agent:     out.Agent,
		Trail:     out.Trail,
		TaskDone:  st.TaskDone,
		CostUSD:   out.CostUSD,
		State:     st,
	}, nil
}

// prepare starts a new task cycle on st and picks the entry step for ev.
func (o *Orchestrator) prepare(st *model.ConversationState, ev model.Event) *model.Turn {
	st.TaskDone = false
	turn := &model.Turn{Event: ev, State: st, Entry: workflow.Sales}

	switch ev.Kind {
	case model.EventUpload:
		st.Customer.UploadedFilePath = ev.FilePath
		st.Pending = ""
		turn.Entry = workflow.KYC
	default:
		st.Query = ev.Utterance
		if st.Pending != "" {
			turn.Entry = st.Pending
			st.Pending = ""
		}
	}
	return turn
}

func (o *Orchestrator) wrapInvokeError(err error) error {
	var ae *errx.AppError
	if errors.As(err, &ae) {
		return err
	}
	return errx.New(err, http.StatusBadGateway, "failed to process turn")
}
