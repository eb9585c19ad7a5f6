package tools

import (
	"math"

	"github.com/SmartLoan360X/server/internal/agent/model"
	errx "github.com/SmartLoan360X/server/internal/core/error"
)

const (
	reasonStrong   = "Strong FHI score."
	reasonModerate = "Moderate FHI score."
	reasonLow      = "Low FHI score. Suggest credit improvement plan."
)

// Scorer computes the Financial Health Index and the resulting loan decision.
type Scorer struct {
	cfg model.UnderwritingConfig
}

func NewScorer(cfg model.UnderwritingConfig) *Scorer {
	return &Scorer{cfg: cfg}
}

// FHI sums the credit tier, income tier and the fixed repayment-habit contribution.
func (s *Scorer) FHI(creditScore int, income float64) int {
	c := s.cfg
	fhi := 0
	switch {
	case creditScore > c.CreditHighCutoff:
		fhi += c.CreditHighBonus
	case creditScore > c.CreditMidCutoff:
		fhi += c.CreditMidBonus
	default:
		fhi += c.CreditLowBonus
	}

	switch {
	case income > c.IncomeHighCutoff:
		fhi += c.IncomeHighBonus
	case income > c.IncomeMidCutoff:
		fhi += c.IncomeMidBonus
	default:
		fhi += c.IncomeLowBonus
	}

	return fhi + c.HabitBonus
}

// Evaluate scores the profile, applying defaults for missing credit score or income.
func (s *Scorer) Evaluate(p model.CustomerProfile) (model.UnderwritingDecision, error) {
	creditScore := s.cfg.DefaultCreditScore
	if p.CreditScore != nil {
		creditScore = *p.CreditScore
	}
	income := s.cfg.DefaultIncome
	if p.Income != nil {
		income = *p.Income
	}
	if math.IsNaN(income) || math.IsInf(income, 0) {
		return model.UnderwritingDecision{}, errx.Validation("income must be a finite number")
	}

	fhi := s.FHI(creditScore, income)
	d := model.UnderwritingDecision{FHIScore: fhi}
	switch {
	case fhi > s.cfg.StrongThreshold:
		d.Approved = true
		d.Reason = reasonStrong
		d.Tier = model.TierStrong
		d.InterestRate = s.cfg.StrongRate
		d.LoanAmount = s.cfg.StrongAmount
	case fhi > s.cfg.ModerateThreshold:
		d.Approved = true
		d.Reason = reasonModerate
		d.Tier = model.TierModerate
		d.InterestRate = s.cfg.ModerateRate
		d.LoanAmount = s.cfg.ModerateAmount
	default:
		d.Reason = reasonLow
		d.Tier = model.TierNone
	}
	return d, nil
}

const (
	prequalMinCreditScore = 650
	prequalMaxDebtRatio   = 4.0
)

// Prequalify is the legacy threshold rule. It is kept apart from the FHI
// workflow and only backs the stand-alone pre-qualification check.
func Prequalify(creditScore int, income, loanAmount float64) model.PrequalificationResult {
	if creditScore < prequalMinCreditScore {
		return model.PrequalificationResult{Approved: false, Reason: "Credit score is too low."}
	}
	if income <= 0 || loanAmount/income > prequalMaxDebtRatio {
		return model.PrequalificationResult{Approved: false, Reason: "Debt-to-income ratio is too high."}
	}
	return model.PrequalificationResult{Approved: true, Reason: "Customer profile meets preliminary criteria."}
}
