package nodes

import (
	"github.com/cloudwego/eino/compose"

	"github.com/SmartLoan360X/server/internal/agent/workflow"
)

// Agent tags reported back to the presentation layer for each step.
const (
	AgentSales        = "Sales & Negotiation Agent"
	AgentKYC          = "Vision-Based KYC Agent"
	AgentUnderwriting = "Underwriting & Risk Agent"
	AgentApproval     = "Approval Agent"
	AgentRejection    = "Rejection & Guidance Agent"
	AgentSanction     = "Sanction Letter Agent"
	AgentEducation    = "Financial Education Coach"
)

var agentTags = map[workflow.Step]string{
	workflow.Sales:          AgentSales,
	workflow.KYC:            AgentKYC,
	workflow.Underwriting:   AgentUnderwriting,
	workflow.Approval:       AgentApproval,
	workflow.Rejection:      AgentRejection,
	workflow.SanctionLetter: AgentSanction,
	workflow.Education:      AgentEducation,
}

// AgentFor returns the display tag of step.
func AgentFor(step workflow.Step) string {
	return agentTags[step]
}

// NodeKey maps a step to its graph node key. The terminal step maps to compose.END.
func NodeKey(step workflow.Step) string {
	if step == workflow.End {
		return compose.END
	}
	return string(step)
}
