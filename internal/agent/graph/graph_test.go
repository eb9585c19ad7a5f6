package graph

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SmartLoan360X/server/internal/agent/graph/conversations"
	"github.com/SmartLoan360X/server/internal/agent/graph/nodes"
	"github.com/SmartLoan360X/server/internal/agent/graph/prompts"
	"github.com/SmartLoan360X/server/internal/agent/graph/tools"
	"github.com/SmartLoan360X/server/internal/agent/model"
	"github.com/SmartLoan360X/server/internal/agent/repo"
	"github.com/SmartLoan360X/server/internal/agent/workflow"
	errx "github.com/SmartLoan360X/server/internal/core/error"
	"github.com/SmartLoan360X/server/internal/events"
)

type fakeGenerator struct {
	mu       sync.Mutex
	requests []nodes.GenerateRequest
	err      error
}

func (f *fakeGenerator) Generate(_ context.Context, req nodes.GenerateRequest) (*nodes.Generation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.requests = append(f.requests, req)
	return &nodes.Generation{Text: "reply as " + req.Persona, CostUSD: 0.001}, nil
}

func (f *fakeGenerator) last() nodes.GenerateRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type harness struct {
	o        *Orchestrator
	gen      *fakeGenerator
	recorder *events.Recorder
}

func newHarness(t *testing.T, uw model.UnderwritingConfig) *harness {
	t.Helper()
	personas := loadPersonas(t)
	gen := &fakeGenerator{}
	rec := &events.Recorder{}

	steps, err := nodes.NewSteps(nodes.StepDeps{
		Generator: gen,
		Verifier:  tools.NewDocumentVerifier(tools.FilenameExtractor{}),
		Scorer:    tools.NewScorer(uw),
		Letters:   tools.NewMarkdownLetterRenderer("SmartLoan360X", ""),
		Publisher: rec,
	})
	require.NoError(t, err)

	sessions := conversations.NewSessionManager(repo.NewMemorySessionRepository(), model.SessionConfig{DefaultPersona: prompts.FriendlyAdvisor})
	o, err := NewOrchestrator(context.Background(), steps, sessions, personas)
	require.NoError(t, err)
	return &harness{o: o, gen: gen, recorder: rec}
}

func writeUpload(t *testing.T, name string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(p, []byte{0x89, 'P', 'N', 'G'}, 0o600))
	return p
}

func setProfile(t *testing.T, h *harness, id string, credit int, income float64) {
	t.Helper()
	_, err := h.o.UpdateProfile(context.Background(), id, model.ProfileUpdate{CreditScore: &credit, Income: &income})
	require.NoError(t, err)
}

func TestStartRunsOpeningSalesTurn(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())

	res, err := h.o.Start(context.Background())
	require.NoError(t, err)

	assert.NotEmpty(t, res.SessionID)
	assert.Equal(t, []workflow.Step{workflow.Sales}, res.Trail)
	assert.Equal(t, nodes.AgentSales, res.Agent)
	assert.Equal(t, "reply as Friendly Advisor", res.Reply)
	assert.Equal(t, []string{"User: Hello", "AI: reply as Friendly Advisor"}, res.State.History)
	assert.False(t, res.TaskDone)
	assert.InDelta(t, 0.001, res.CostUSD, 1e-9)
}

func TestChatSwitchesPersonaOnLifeEvent(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	res, err := h.o.Chat(ctx, start.SessionID, "I had a medical emergency")
	require.NoError(t, err)
	assert.Equal(t, prompts.EmpatheticListener, res.State.Persona)
	req := h.gen.last()
	assert.Equal(t, prompts.EmpatheticListener, req.Persona)
	assert.Contains(t, req.Hint, "medical emergency")
	assert.Equal(t, []string{"User: Hello", "AI: reply as Friendly Advisor"}, req.Transcript)
	assert.Len(t, res.State.History, 4)

	res, err = h.o.Chat(ctx, start.SessionID, "We are getting married")
	require.NoError(t, err)
	assert.Equal(t, prompts.FriendlyAdvisor, res.State.Persona)
	assert.Contains(t, h.gen.last().Hint, "wedding")

	// no life event keeps whatever persona the caller chose
	_, err = h.o.SetPersona(ctx, start.SessionID, prompts.FinancialGuru)
	require.NoError(t, err)
	res, err = h.o.Chat(ctx, start.SessionID, "Tell me about rates")
	require.NoError(t, err)
	assert.Equal(t, prompts.FinancialGuru, res.State.Persona)
	assert.Empty(t, h.gen.last().Hint)
}

func TestUploadWithoutFileSkipsUnderwriting(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	res, err := h.o.Upload(ctx, start.SessionID, "")
	require.NoError(t, err)
	assert.Equal(t, "There was an error with the file upload. Please try again.", res.Reply)
	assert.Equal(t, []workflow.Step{workflow.KYC}, res.Trail)
	assert.True(t, res.TaskDone)
	assert.Nil(t, res.State.Underwriting)
	assert.False(t, res.State.Customer.KYCVerified)
	assert.Empty(t, h.recorder.Subjects())
}

func TestUploadUnrecognisedDocumentFailsKYC(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	res, err := h.o.Upload(ctx, start.SessionID, writeUpload(t, "selfie.png"))
	require.NoError(t, err)
	assert.Equal(t, "KYC Failed: Could not confidently determine document type. Please upload a clear Aadhar or PAN card image.", res.Reply)
	assert.True(t, res.TaskDone)
	assert.Nil(t, res.State.Underwriting)
}

func TestUploadApprovalThenAcceptOffer(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)
	setProfile(t, h, start.SessionID, 760, 1_200_000)

	res, err := h.o.Upload(ctx, start.SessionID, writeUpload(t, "pan_card.png"))
	require.NoError(t, err)

	assert.Equal(t, []workflow.Step{workflow.KYC, workflow.Underwriting, workflow.Approval}, res.Trail)
	require.Len(t, res.Replies, 2)
	assert.Equal(t, "Thank you! We've successfully verified your PAN. Name: Priya Sharma. Proceeding with underwriting.", res.Replies[0])
	assert.Equal(t, "reply as Data-Driven Analyst", res.Reply)
	assert.Equal(t, nodes.AgentApproval, res.Agent)
	assert.False(t, res.TaskDone)

	st := res.State
	assert.True(t, st.Customer.KYCVerified)
	assert.Equal(t, "ABCDE1234F", st.Customer.PANNumber)
	require.NotNil(t, st.Underwriting)
	assert.True(t, st.Underwriting.Approved)
	assert.Equal(t, 95, st.Underwriting.FHIScore)
	assert.Equal(t, model.TierStrong, st.Underwriting.Tier)
	assert.Equal(t, 95, *st.Customer.FHIScore)
	assert.Equal(t, workflow.SanctionLetter, st.Pending)
	assert.Equal(t, []string{events.SubjectKYCVerified, events.SubjectUnderwritingDecided}, h.recorder.Subjects())

	approvalReq := h.gen.last()
	assert.Empty(t, approvalReq.Transcript)
	assert.Contains(t, approvalReq.Hint, `"approved":true`)
	assert.Equal(t, "Present the approved loan offer.", approvalReq.Utterance)

	res, err = h.o.Chat(ctx, start.SessionID, "Yes, please generate it")
	require.NoError(t, err)
	assert.Equal(t, []workflow.Step{workflow.SanctionLetter, workflow.Education}, res.Trail)
	require.Len(t, res.Replies, 2)
	assert.Contains(t, res.Replies[0], "Excellent! Here is your sanction letter:")
	assert.Contains(t, res.Replies[0], "Dear Priya Sharma,")
	assert.Contains(t, res.Replies[0], "5,00,000 INR")
	assert.Equal(t, "reply as Financial Guru", res.Reply)
	assert.True(t, res.TaskDone)
	assert.Empty(t, res.State.Pending)
	// the offer answer is not a sales exchange
	assert.Len(t, res.State.History, 2)
	assert.Contains(t, h.recorder.Subjects(), events.SubjectSanctionIssued)

	// after the cycle a new chat goes back to sales
	res, err = h.o.Chat(ctx, start.SessionID, "Thanks")
	require.NoError(t, err)
	assert.Equal(t, []workflow.Step{workflow.Sales}, res.Trail)
	assert.False(t, res.TaskDone)
}

func TestDecliningOfferEndsWithoutTips(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	_, err = h.o.Upload(ctx, start.SessionID, writeUpload(t, "aadhar.jpg"))
	require.NoError(t, err)

	res, err := h.o.Chat(ctx, start.SessionID, "not now")
	require.NoError(t, err)
	assert.Equal(t, []workflow.Step{workflow.SanctionLetter}, res.Trail)
	assert.Equal(t, "No problem. Let me know if you change your mind. Would you like some financial literacy tips?", res.Reply)
	assert.False(t, res.TaskDone)
	assert.Empty(t, res.State.Pending)
}

func TestRejectionMarksTerminal(t *testing.T) {
	uw := model.DefaultUnderwritingConfig()
	uw.ModerateThreshold = 60
	h := newHarness(t, uw)
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)
	setProfile(t, h, start.SessionID, 600, 100_000)

	res, err := h.o.Upload(ctx, start.SessionID, writeUpload(t, "pan.png"))
	require.NoError(t, err)

	assert.Equal(t, []workflow.Step{workflow.KYC, workflow.Underwriting, workflow.Rejection}, res.Trail)
	assert.True(t, res.TaskDone)
	assert.False(t, res.State.Underwriting.Approved)
	assert.Equal(t, prompts.EmpatheticListener, res.State.Persona)
	assert.Empty(t, res.State.Pending)
	assert.Contains(t, h.gen.last().Hint, "Their FHI is 45")
}

func TestKYCNameMismatch(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	_, err = h.o.Upload(ctx, start.SessionID, writeUpload(t, "pan.png"))
	require.NoError(t, err)

	// seed a different verified name for the other card type
	_, err = h.o.sessions.Update(ctx, start.SessionID, func(st *model.ConversationState) error {
		st.Customer.VerifiedNames[model.DocPAN] = "Rahul Verma"
		return nil
	})
	require.NoError(t, err)

	res, err := h.o.Upload(ctx, start.SessionID, writeUpload(t, "aadhar.png"))
	require.NoError(t, err)
	assert.Equal(t, "KYC Failed: Name mismatch in documents. Please upload a clear Aadhar or PAN card image.", res.Reply)
	assert.False(t, res.State.Customer.KYCVerified)
	assert.True(t, res.TaskDone)
}

func TestGeneratorFailureLeavesStateUntouched(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()
	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	h.gen.err = errors.New("quota exceeded")
	_, err = h.o.Chat(ctx, start.SessionID, "hi again")
	require.Error(t, err)

	st, err := h.o.Session(ctx, start.SessionID)
	require.NoError(t, err)
	assert.Len(t, st.History, 2)
}

func TestOfflineOrchestrator(t *testing.T) {
	sessions := conversations.NewSessionManager(repo.NewMemorySessionRepository(), model.SessionConfig{DefaultPersona: prompts.FriendlyAdvisor})
	o := NewOfflineOrchestrator(sessions, loadPersonas(t), nil)
	ctx := context.Background()

	require.True(t, o.Offline())
	res, err := o.Start(ctx)
	require.NoError(t, err)
	assert.Equal(t, errx.ServiceOfflineMessage, res.Reply)

	res, err = o.Upload(ctx, res.SessionID, "/tmp/pan.png")
	require.NoError(t, err)
	assert.Equal(t, errx.ServiceOfflineMessage, res.Reply)
	assert.Empty(t, res.Trail)
}

func TestSessionErrors(t *testing.T) {
	h := newHarness(t, model.DefaultUnderwritingConfig())
	ctx := context.Background()

	_, err := h.o.Chat(ctx, "missing", "hello")
	require.Error(t, err)
	assert.True(t, errx.IsKind(err, errx.KindNotFound))

	start, err := h.o.Start(ctx)
	require.NoError(t, err)

	_, err = h.o.SetPersona(ctx, start.SessionID, "Pirate")
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	_, err = h.o.Chat(ctx, start.SessionID, "   ")
	assert.True(t, errx.IsKind(err, errx.KindValidation))

	require.NoError(t, h.o.EndSession(ctx, start.SessionID))
	_, err = h.o.Session(ctx, start.SessionID)
	assert.True(t, errx.IsKind(err, errx.KindNotFound))
	err = h.o.EndSession(ctx, start.SessionID)
	assert.True(t, errx.IsKind(err, errx.KindNotFound))
}

func TestBuildResponseGraphDefaultsPersona(t *testing.T) {
	o, err := BuildResponseGraph(context.Background(), Config{
		Underwriting: model.DefaultUnderwritingConfig(),
		Sessions:     repo.NewMemorySessionRepository(),
		Publisher:    events.Noop{},
	})
	require.NoError(t, err)
	require.True(t, o.Offline())

	res, err := o.Start(context.Background())
	require.NoError(t, err)
	assert.Equal(t, prompts.FriendlyAdvisor, res.State.Persona)
}

func TestBranchTargetsMatchTransitionTable(t *testing.T) {
	for _, step := range workflow.Steps {
		targets := nodes.RouteTargets(step)
		require.NotEmpty(t, targets, step)
		for _, next := range workflow.Successors(step) {
			key := nodes.NodeKey(next)
			if next.AwaitsInput() {
				key = nodes.NodeKey(workflow.End)
			}
			assert.True(t, targets[key], "%s -> %s", step, next)
		}
	}
}

func loadPersonas(t *testing.T) *prompts.Registry {
	t.Helper()
	r, err := prompts.LoadRegistry()
	require.NoError(t, err)
	return r
}
