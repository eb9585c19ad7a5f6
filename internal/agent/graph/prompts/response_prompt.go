package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed template/turn_prompt.txt
var turnPrompt string

// TurnInput is everything that goes into one generated reply.
type TurnInput struct {
	Persona    string
	Transcript []string
	Hint       string
	Utterance  string
	// Now is rendered verbatim when set.
	Now string
}

var turnTemplate = prompt.FromMessages(schema.GoTemplate, schema.UserMessage(turnPrompt))

// RenderTurn assembles the single prompt block (persona, transcript, hint,
// utterance) through the Eino prompt component so prompt callbacks fire.
func RenderTurn(ctx context.Context, in TurnInput) (string, error) {
	msgs, err := turnTemplate.Format(ctx, map[string]any{
		"Persona":    in.Persona,
		"Transcript": strings.Join(in.Transcript, "\n"),
		"Hint":       in.Hint,
		"Utterance":  in.Utterance,
		"Now":        in.Now,
	})
	if err != nil {
		return "", fmt.Errorf("turn prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("turn prompt render: empty result")
	}
	return msgs[0].Content, nil
}
