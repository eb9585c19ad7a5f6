package model

import (
	"math"
	"strings"

	errx "github.com/SmartLoan360X/server/internal/core/error"
)

const maxCreditScore = 900

// ProfileUpdate carries the applicant fields a caller may set directly. Nil fields are left as is.
type ProfileUpdate struct {
	Name            *string  `json:"name,omitempty"`
	CreditScore     *int     `json:"credit_score,omitempty"`
	Income          *float64 `json:"income,omitempty"`
	RequestedAmount *float64 `json:"requested_amount,omitempty"`
}

func (u ProfileUpdate) Validate() error {
	if u.CreditScore != nil && (*u.CreditScore < 0 || *u.CreditScore > maxCreditScore) {
		return errx.Validationf("credit_score must be between 0 and %d", maxCreditScore)
	}
	if err := validAmount("income", u.Income); err != nil {
		return err
	}
	return validAmount("requested_amount", u.RequestedAmount)
}

// Apply validates and merges the update into p.
func (u ProfileUpdate) Apply(p *CustomerProfile) error {
	if err := u.Validate(); err != nil {
		return err
	}
	if u.Name != nil {
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.CreditScore != nil {
		p.CreditScore = clonePtr(u.CreditScore)
	}
	if u.Income != nil {
		p.Income = clonePtr(u.Income)
	}
	if u.RequestedAmount != nil {
		p.RequestedAmount = clonePtr(u.RequestedAmount)
	}
	return nil
}

func validAmount(field string, v *float64) error {
	if v == nil {
		return nil
	}
	if math.IsNaN(*v) || math.IsInf(*v, 0) || *v < 0 {
		return errx.Validationf("%s must be a non-negative number", field)
	}
	return nil
}
