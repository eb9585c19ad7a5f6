// Package workflow holds the loan conversation state machine as plain data:
// the closed set of steps, the outcomes a step can report, and the
// transition table between them. It has no dependency on the graph runtime
// so every edge can be checked in isolation.
package workflow

import (
	"fmt"
	"strings"
)

// Step is one state of the conversation graph.
type Step string

const (
	Sales          Step = "sales"
	KYC            Step = "kyc"
	Underwriting   Step = "underwriting"
	Approval       Step = "approval"
	Rejection      Step = "rejection"
	SanctionLetter Step = "sanction_letter"
	Education      Step = "education"
	End            Step = "end"
)

// Steps lists every non-terminal step in graph order.
var Steps = []Step{Sales, KYC, Underwriting, Approval, Rejection, SanctionLetter, Education}

// Outcome is what a step reports after it ran.
type Outcome string

const (
	Replied            Outcome = "replied"
	Verified           Outcome = "verified"
	VerificationFailed Outcome = "verification_failed"
	Approved           Outcome = "approved"
	Rejected           Outcome = "rejected"
	OfferPresented     Outcome = "offer_presented"
	TipsRequested      Outcome = "tips_requested"
	Closed             Outcome = "closed"
)

type edge struct {
	from    Step
	outcome Outcome
}

var transitions = map[edge]Step{
	{Sales, Replied}:                End,
	{KYC, Verified}:                 Underwriting,
	{KYC, VerificationFailed}:       End,
	{Underwriting, Approved}:        Approval,
	{Underwriting, Rejected}:        Rejection,
	{Approval, OfferPresented}:      SanctionLetter,
	{Rejection, Closed}:             End,
	{SanctionLetter, TipsRequested}: Education,
	{SanctionLetter, Closed}:        End,
	{Education, Closed}:             End,
}

// Next returns the step that follows from after it reported outcome.
func Next(from Step, outcome Outcome) (Step, error) {
	to, ok := transitions[edge{from, outcome}]
	if !ok {
		return "", fmt.Errorf("no transition from %q on %q", from, outcome)
	}
	return to, nil
}

// Successors returns every step reachable from s in one transition, in table order.
func Successors(s Step) []Step {
	var out []Step
	seen := map[Step]bool{}
	for _, o := range []Outcome{Replied, Verified, VerificationFailed, Approved, Rejected, OfferPresented, TipsRequested, Closed} {
		if to, ok := transitions[edge{s, o}]; ok && !seen[to] {
			seen[to] = true
			out = append(out, to)
		}
	}
	return out
}

// AwaitsInput reports whether s must consume a fresh user utterance. Reaching
// such a step mid-invocation parks the conversation until the next chat turn.
func (s Step) AwaitsInput() bool {
	return s == SanctionLetter
}

// Valid reports whether s is a known non-terminal step.
func (s Step) Valid() bool {
	for _, v := range Steps {
		if v == s {
			return true
		}
	}
	return false
}

// AfterUnderwriting routes on the underwriting decision.
func AfterUnderwriting(approved bool) Outcome {
	if approved {
		return Approved
	}
	return Rejected
}

// AcceptsOffer reports whether the utterance accepts the sanction letter.
func AcceptsOffer(utterance string) bool {
	return containsAny(utterance, "yes", "generate", "accept")
}

// AfterSanctionLetter routes to the education step when the user asks for tips.
func AfterSanctionLetter(utterance string) Outcome {
	if containsAny(utterance, "yes", "tips") {
		return TipsRequested
	}
	return Closed
}

func containsAny(s string, keywords ...string) bool {
	s = strings.ToLower(s)
	for _, k := range keywords {
		if strings.Contains(s, k) {
			return true
		}
	}
	return false
}
