package nodes

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/SmartLoan360X/server/internal/agent/graph/prompts"
	"github.com/SmartLoan360X/server/internal/agent/model"
	logx "github.com/SmartLoan360X/server/pkg/logger"
)

// GenerateRequest is one reply request. Transcript may be empty on purpose.
type GenerateRequest struct {
	Persona    string
	Transcript []string
	Hint       string
	Utterance  string
}

type Generation struct {
	Text    string
	Usage   *schema.TokenUsage
	CostUSD float64
}

// Generator produces a persona-styled reply from the generative text service.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (*Generation, error)
}

// ChatModelGenerator renders the turn prompt and sends it as a single user
// message to an Eino chat model.
type ChatModelGenerator struct {
	chatModel einomodel.BaseChatModel
	modelName string
	personas  *prompts.Registry
	now       func() time.Time
	location  *time.Location
}

func NewChatModelGenerator(cm einomodel.BaseChatModel, modelName string, personas *prompts.Registry) (*ChatModelGenerator, error) {
	if cm == nil {
		return nil, fmt.Errorf("chat model is nil")
	}
	if personas == nil {
		return nil, fmt.Errorf("persona registry is nil")
	}
	loc, err := time.LoadLocation("Asia/Kolkata")
	if err != nil {
		loc = time.FixedZone("IST", 5*3600+1800)
	}
	return &ChatModelGenerator{chatModel: cm, modelName: modelName, personas: personas, now: time.Now, location: loc}, nil
}

func (g *ChatModelGenerator) Generate(ctx context.Context, req GenerateRequest) (*Generation, error) {
	in := prompts.TurnInput{
		Persona:    g.personas.Lookup(req.Persona),
		Transcript: req.Transcript,
		Hint:       req.Hint,
		Utterance:  req.Utterance,
	}
	if req.Persona == prompts.FriendlyAdvisor {
		in.Now = g.now().In(g.location).Format("Monday, January 2, 2006 at 3:04 PM MST")
	}
	text, err := prompts.RenderTurn(ctx, in)
	if err != nil {
		return nil, err
	}

	ctx = callbacks.ReuseHandlers(ctx, &callbacks.RunInfo{
		Name:      g.modelName,
		Type:      "Gemini",
		Component: components.ComponentOfChatModel,
	})
	out, err := g.chatModel.Generate(ctx, []*schema.Message{schema.UserMessage(text)})
	if err != nil {
		return nil, fmt.Errorf("generate reply: %w", err)
	}
	if out == nil {
		return nil, fmt.Errorf("generate reply: empty message")
	}

	gen := &Generation{Text: out.Content}
	if out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		gen.Usage = out.ResponseMeta.Usage
		inC, outC, totalC := model.ComputeCost(gen.Usage, model.ResolvePricing(g.modelName))
		gen.CostUSD = totalC
		logx.Debug().
			Str("model", g.modelName).
			Int("prompt_tokens", gen.Usage.PromptTokens).
			Int("completion_tokens", gen.Usage.CompletionTokens).
			Int("total_tokens", gen.Usage.TotalTokens).
			Float64("input_cost_usd", inC).
			Float64("output_cost_usd", outC).
			Float64("total_cost_usd", totalC).
			Msg("LLM usage")
	}
	return gen, nil
}

var _ Generator = (*ChatModelGenerator)(nil)
