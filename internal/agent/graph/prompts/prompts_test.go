package prompts

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadRegistry(t *testing.T) {
	r, err := LoadRegistry()
	require.NoError(t, err)

	assert.Equal(t, []string{DataDrivenAnalyst, EmpatheticListener, FinancialGuru, FriendlyAdvisor}, r.Names())
	assert.Equal(t, FriendlyAdvisor, r.Default())
	for _, name := range r.Names() {
		assert.True(t, r.Has(name))
		assert.NotEmpty(t, r.Lookup(name))
	}
	assert.False(t, r.Has("Pirate"))
	assert.Equal(t, r.Lookup(FriendlyAdvisor), r.Lookup("Pirate"))
	assert.Contains(t, r.Lookup(DataDrivenAnalyst), "focus on the numbers")
}

func TestRegistryNamesIsACopy(t *testing.T) {
	r, err := LoadRegistry()
	require.NoError(t, err)
	names := r.Names()
	names[0] = "mutated"
	assert.NotEqual(t, "mutated", r.Names()[0])
}

func TestParseRegistryRejectsBadTables(t *testing.T) {
	cases := map[string]string{
		"missing default": "default: Nope\npersonas:\n  - name: A\n    prompt: a\n",
		"duplicate":       "default: A\npersonas:\n  - name: A\n    prompt: a\n  - name: A\n    prompt: b\n",
		"empty prompt":    "default: A\npersonas:\n  - name: A\n    prompt: ''\n",
		"not yaml":        "personas: [",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(doc))
			require.Error(t, err)
		})
	}
}

func TestRenderTurnOrdersSections(t *testing.T) {
	out, err := RenderTurn(context.Background(), TurnInput{
		Persona:    "You are a test persona.",
		Transcript: []string{"User: hi", "AI: hello"},
		Hint:       "Context: be brief.",
		Utterance:  "I need a loan",
	})
	require.NoError(t, err)

	persona := strings.Index(out, "You are a test persona.")
	history := strings.Index(out, "User: hi\nAI: hello")
	hint := strings.Index(out, "Context: be brief.")
	utter := strings.Index(out, "User: I need a loan")
	require.True(t, persona >= 0 && history > persona && hint > history && utter > hint, out)
	assert.True(t, strings.HasSuffix(strings.TrimSpace(out), "AI:"))
	assert.NotContains(t, out, "current time")
}

func TestRenderTurnWithTime(t *testing.T) {
	out, err := RenderTurn(context.Background(), TurnInput{Persona: "p", Utterance: "u", Now: "Thursday, 11:59 AM IST"})
	require.NoError(t, err)
	assert.Contains(t, out, "the current time is Thursday, 11:59 AM IST.")
}
