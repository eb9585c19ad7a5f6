package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/compose"

	"github.com/SmartLoan360X/server/internal/agent/graph/prompts"
	"github.com/SmartLoan360X/server/internal/agent/graph/tools"
	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/workflow"
	"github.com/SmartLoan360X/server/internal/events"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

const (
	hintMarriage = "Context: The user mentioned getting married. Gently guide them towards a personal loan for wedding expenses or a home loan."
	hintMedical  = "Context: The user mentioned a medical emergency. Be extremely empathetic. Offer a quick personal loan for medical expenses."
	hintTips     = "Context: Provide 3 concise, actionable tips on managing debt responsibly."

	msgUploadError = "There was an error with the file upload. Please try again."
	msgDeclined    = "No problem. Let me know if you change your mind. Would you like some financial literacy tips?"
	msgNoOffer     = "There is no approved offer on file yet. Please upload your KYC document to start an application."
)

// StepDeps are the collaborators the workflow steps call out to.
type StepDeps struct {
	Generator Generator
	Verifier  *tools.DocumentVerifier
	Scorer    *tools.Scorer
	Letters   tools.LetterRenderer
	Publisher events.Publisher
}

// Steps implements every workflow step as a function of the turn.
type Steps struct {
	deps StepDeps
	run  map[workflow.Step]func(context.Context, *model.Turn) (workflow.Outcome, error)
}

func NewSteps(deps StepDeps) (*Steps, error) {
	switch {
	case deps.Generator == nil:
		return nil, fmt.Errorf("generator is nil")
	case deps.Verifier == nil:
		return nil, fmt.Errorf("document verifier is nil")
	case deps.Scorer == nil:
		return nil, fmt.Errorf("scorer is nil")
	case deps.Letters == nil:
		return nil, fmt.Errorf("letter renderer is nil")
	}
	if deps.Publisher == nil {
		deps.Publisher = events.Noop{}
	}

	s := &Steps{deps: deps}
	s.run = map[workflow.Step]func(context.Context, *model.Turn) (workflow.Outcome, error){
		workflow.Sales:          s.sales,
		workflow.KYC:            s.kyc,
		workflow.Underwriting:   s.underwriting,
		workflow.Approval:       s.approval,
		workflow.Rejection:      s.rejection,
		workflow.SanctionLetter: s.sanctionLetter,
		workflow.Education:      s.education,
	}
	return s, nil
}

// Run executes step against the turn and resolves the next step from the transition table.
func (s *Steps) Run(ctx context.Context, step workflow.Step, t *model.Turn) (*model.Turn, error) {
	fn, ok := s.run[step]
	if !ok {
		return nil, fmt.Errorf("unknown step %q", step)
	}
	t.Step = step
	t.Agent = AgentFor(step)

	outcome, err := fn(ctx, t)
	if err != nil {
		logx.Error().Err(err).Str("session_id", t.State.ID).Str("step", string(step)).Msg("step failed")
		return nil, err
	}
	next, err := workflow.Next(step, outcome)
	if err != nil {
		return nil, err
	}
	t.Next = next

	logx.Debug().
		Str("session_id", t.State.ID).
		Str("step", string(step)).
		Str("agent", t.Agent).
		Str("outcome", string(outcome)).
		Str("next", string(next)).
		Msg("step completed")
	return t, nil
}

// Lambda wraps step as an Eino lambda node.
func (s *Steps) Lambda(step workflow.Step) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, t *model.Turn) (*model.Turn, error) {
		return s.Run(ctx, step, t)
	})
}

func (s *Steps) generate(ctx context.Context, t *model.Turn, req GenerateRequest) (string, error) {
	gen, err := s.deps.Generator.Generate(ctx, req)
	if err != nil {
		return "", err
	}
	t.CostUSD += gen.CostUSD
	return gen.Text, nil
}

func (s *Steps) publish(ctx context.Context, t *model.Turn, subject string, data any) {
	if err := s.deps.Publisher.Publish(ctx, subject, t.State.ID, data); err != nil {
		logx.Warn().Err(err).Str("session_id", t.State.ID).Str("subject", subject).Msg("event publish failed")
	}
}

func (s *Steps) sales(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	utterance := t.Event.Utterance

	var hint string
	switch ev := tools.DetectLifeEvent(utterance); ev {
	case tools.EventMarriage:
		st.Persona = prompts.FriendlyAdvisor
		hint = hintMarriage
	case tools.EventMedicalEmergency:
		st.Persona = prompts.EmpatheticListener
		hint = hintMedical
	default:
		logx.Debug().Str("session_id", st.ID).Str("life_event", string(ev)).Msg("persona unchanged")
	}

	reply, err := s.generate(ctx, t, GenerateRequest{
		Persona:    st.Persona,
		Transcript: st.History,
		Hint:       hint,
		Utterance:  utterance,
	})
	if err != nil {
		return "", err
	}
	st.AppendExchange(utterance, reply)
	t.Reply(reply)
	return workflow.Replied, nil
}

func (s *Steps) kyc(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	path := st.Customer.UploadedFilePath
	if path == "" {
		t.Reply(msgUploadError)
		st.MarkDone()
		return workflow.VerificationFailed, nil
	}

	res := s.deps.Verifier.Verify(ctx, path)
	problem := res.Problem()
	if problem == "" {
		problem = tools.CheckNameConsistency(st.Customer.VerifiedNames, *res.Document)
	}
	if problem != "" {
		logx.Info().Str("session_id", st.ID).Str("reason", problem).Msg("kyc failed")
		st.Customer.KYCVerified = false
		t.Reply(fmt.Sprintf("KYC Failed: %s. Please upload a clear Aadhar or PAN card image.", strings.TrimSuffix(problem, ".")))
		st.MarkDone()
		return workflow.VerificationFailed, nil
	}

	doc := *res.Document
	st.Customer.ApplyDocument(doc)
	st.Customer.KYCVerified = true

	name := doc.Name
	if name == "" {
		name = "not detected"
	}
	t.Reply(fmt.Sprintf("Thank you! We've successfully verified your %s. Name: %s. Proceeding with underwriting.", doc.Type, name))
	s.publish(ctx, t, events.SubjectKYCVerified, map[string]any{"doc_type": doc.Type, "name": doc.Name})
	return workflow.Verified, nil
}

func (s *Steps) underwriting(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	decision, err := s.deps.Scorer.Evaluate(st.Customer)
	if err != nil {
		return "", err
	}
	st.Underwriting = &decision
	fhi := decision.FHIScore
	st.Customer.FHIScore = &fhi

	logx.Info().
		Str("session_id", st.ID).
		Int("fhi_score", fhi).
		Bool("approved", decision.Approved).
		Str("tier", string(decision.Tier)).
		Msg("underwriting decided")
	s.publish(ctx, t, events.SubjectUnderwritingDecided, decision)
	return workflow.AfterUnderwriting(decision.Approved), nil
}

func (s *Steps) approval(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	st.Persona = prompts.DataDrivenAnalyst
	if st.Underwriting == nil {
		return "", fmt.Errorf("approval reached without an underwriting decision")
	}
	payload, err := json.Marshal(st.Underwriting)
	if err != nil {
		return "", fmt.Errorf("encode decision: %w", err)
	}

	reply, err := s.generate(ctx, t, GenerateRequest{
		Persona:   st.Persona,
		Hint:      "Context: The user's loan is approved. Present this offer: " + string(payload),
		Utterance: "Present the approved loan offer.",
	})
	if err != nil {
		return "", err
	}
	t.Reply(reply)
	return workflow.OfferPresented, nil
}

func (s *Steps) rejection(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	st.Persona = prompts.EmpatheticListener
	if st.Underwriting == nil {
		return "", fmt.Errorf("rejection reached without an underwriting decision")
	}

	hint := fmt.Sprintf("Context: The user's loan was not approved because: '%s'. Their FHI is %d. "+
		"Gently inform them and suggest a credit improvement plan.", st.Underwriting.Reason, st.Underwriting.FHIScore)
	reply, err := s.generate(ctx, t, GenerateRequest{
		Persona:   st.Persona,
		Hint:      hint,
		Utterance: "Inform user about loan rejection and provide guidance.",
	})
	if err != nil {
		return "", err
	}
	t.Reply(reply)
	st.MarkDone()
	return workflow.Closed, nil
}

func (s *Steps) sanctionLetter(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	utterance := t.Event.Utterance
	decision := st.Underwriting

	switch {
	case decision == nil || !decision.Approved:
		t.Reply(msgNoOffer)
		return workflow.Closed, nil
	case workflow.AcceptsOffer(utterance):
		letter, err := s.deps.Letters.Render(ctx, tools.LetterRequest{
			CustomerName: st.Customer.Name,
			LoanAmount:   decision.LoanAmount,
			InterestRate: decision.InterestRate,
		})
		if err != nil {
			return "", fmt.Errorf("render sanction letter: %w", err)
		}
		t.Reply(fmt.Sprintf("Excellent! Here is your sanction letter:\n\n---\n%s\n---\n\nWhat's next? I can offer some financial literacy tips.", letter.Text))
		s.publish(ctx, t, events.SubjectSanctionIssued, map[string]any{
			"reference":     letter.Reference,
			"loan_amount":   decision.LoanAmount,
			"interest_rate": decision.InterestRate,
			"path":          letter.Path,
		})
	default:
		t.Reply(msgDeclined)
	}
	return workflow.AfterSanctionLetter(utterance), nil
}

func (s *Steps) education(ctx context.Context, t *model.Turn) (workflow.Outcome, error) {
	st := t.State
	st.Persona = prompts.FinancialGuru
	reply, err := s.generate(ctx, t, GenerateRequest{
		Persona:   st.Persona,
		Hint:      hintTips,
		Utterance: "Provide financial tips.",
	})
	if err != nil {
		return "", err
	}
	t.Reply(reply)
	st.MarkDone()
	return workflow.Closed, nil
}
