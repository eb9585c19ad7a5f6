package model

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/SmartLoan360X/server/internal/agent/workflow"
)

// ErrSessionNotFound is returned by repositories for unknown session ids.
var ErrSessionNotFound = errors.New("session not found")

type SessionRepository interface {
	// Load returns the stored state or ErrSessionNotFound.
	Load(ctx context.Context, sessionID string) (*ConversationState, error)

	// Save persists the state. Transcript entries already stored are never rewritten.
	Save(ctx context.Context, state *ConversationState) error

	// Delete removes all data for the session.
	Delete(ctx context.Context, sessionID string) error
}

// CustomerProfile is the applicant record built up by KYC and profile updates.
// Nil numeric fields fall back to underwriting defaults.
type CustomerProfile struct {
	Name            string   `json:"name,omitempty"`
	DocType         DocType  `json:"doc_type,omitempty"`
	PANNumber       string   `json:"pan_number,omitempty"`
	AadharNumber    string   `json:"aadhar_number,omitempty"`
	DateOfBirth     string   `json:"date_of_birth,omitempty"`
	CreditScore     *int     `json:"credit_score,omitempty"`
	Income          *float64 `json:"income,omitempty"`
	RequestedAmount *float64 `json:"requested_amount,omitempty"`
	FHIScore        *int     `json:"fhi_score,omitempty"`
	KYCVerified     bool     `json:"kyc_verified"`

	UploadedFilePath string `json:"uploaded_file_path,omitempty"`

	// VerifiedNames records the holder name per verified document type.
	VerifiedNames map[DocType]string `json:"verified_names,omitempty"`
}

// ApplyDocument merges extracted document fields into the profile.
func (p *CustomerProfile) ApplyDocument(doc Document) {
	p.DocType = doc.Type
	if doc.Name != "" {
		p.Name = doc.Name
	}
	switch doc.Type {
	case DocPAN:
		p.PANNumber = doc.Number
	case DocAadhar:
		p.AadharNumber = doc.Number
	}
	if doc.DateOfBirth != "" {
		p.DateOfBirth = doc.DateOfBirth
	}
	if doc.Name != "" {
		if p.VerifiedNames == nil {
			p.VerifiedNames = map[DocType]string{}
		}
		p.VerifiedNames[doc.Type] = doc.Name
	}
}

// ConversationState is the single record threaded through every step of a session.
type ConversationState struct {
	ID            string                `json:"id"`
	Query         string                `json:"customer_query"`
	History       []string              `json:"conversation_history"`
	Customer      CustomerProfile       `json:"customer_data"`
	Persona       string                `json:"current_persona"`
	Underwriting  *UnderwritingDecision `json:"underwriting_result,omitempty"`
	FinalResponse string                `json:"final_response"`
	TaskDone      bool                  `json:"task_is_done"`
	Pending       workflow.Step         `json:"pending_step,omitempty"`
	UpdatedAt     time.Time             `json:"updated_at"`
}

// NewConversationState creates an empty session using persona as the starting persona.
func NewConversationState(id, persona string) *ConversationState {
	return &ConversationState{
		ID:      id,
		History: []string{},
		Persona: persona,
	}
}

// AppendExchange appends one user/assistant pair to the transcript.
func (s *ConversationState) AppendExchange(user, assistant string) {
	s.History = append(s.History, "User: "+user, "AI: "+assistant)
}

// MarkDone sets the terminal flag. It is only reset when a new task cycle begins.
func (s *ConversationState) MarkDone() {
	s.TaskDone = true
}

// Transcript renders the history one entry per line.
func (s *ConversationState) Transcript() string {
	return strings.Join(s.History, "\n")
}

// Clone returns a deep copy so callers can hand out snapshots safely.
func (s *ConversationState) Clone() *ConversationState {
	if s == nil {
		return nil
	}
	c := *s
	c.History = append([]string(nil), s.History...)
	if c.History == nil {
		c.History = []string{}
	}
	c.Customer.CreditScore = clonePtr(s.Customer.CreditScore)
	c.Customer.Income = clonePtr(s.Customer.Income)
	c.Customer.RequestedAmount = clonePtr(s.Customer.RequestedAmount)
	c.Customer.FHIScore = clonePtr(s.Customer.FHIScore)
	if s.Customer.VerifiedNames != nil {
		c.Customer.VerifiedNames = make(map[DocType]string, len(s.Customer.VerifiedNames))
		for k, v := range s.Customer.VerifiedNames {
			c.Customer.VerifiedNames[k] = v
		}
	}
	if s.Underwriting != nil {
		d := *s.Underwriting
		c.Underwriting = &d
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
