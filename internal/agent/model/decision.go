package model

// Tier is the pricing band of an approved loan.
type Tier string

const (
	TierStrong   Tier = "strong"
	TierModerate Tier = "moderate"
	TierNone     Tier = ""
)

// UnderwritingDecision is produced once per evaluation and never mutated afterwards.
type UnderwritingDecision struct {
	Approved     bool    `json:"approved"`
	Reason       string  `json:"reason"`
	FHIScore     int     `json:"fhi_score"`
	Tier         Tier    `json:"tier,omitempty"`
	InterestRate float64 `json:"interest_rate,omitempty"`
	LoanAmount   int64   `json:"loan_amount,omitempty"`
}

// PrequalificationResult is the output of the legacy threshold rule.
type PrequalificationResult struct {
	Approved bool   `json:"approved"`
	Reason   string `json:"reason"`
}

// DocType tags a recognised identity document.
type DocType string

const (
	DocPAN     DocType = "PAN"
	DocAadhar  DocType = "Aadhar"
	DocUnknown DocType = ""
)

// Document is what the verification adapter extracted from an upload.
type Document struct {
	Type        DocType `json:"doc_type"`
	Name        string  `json:"name,omitempty"`
	Number      string  `json:"number,omitempty"`
	DateOfBirth string  `json:"date_of_birth,omitempty"`
	RawText     string  `json:"raw_text,omitempty"`
}

// VerificationResult is always returned by the adapter; failures are carried, not raised.
type VerificationResult struct {
	Document *Document `json:"document,omitempty"`
	Warning  string    `json:"warning,omitempty"`
	Error    string    `json:"error,omitempty"`
}

// OK reports whether a document was classified without error.
func (r VerificationResult) OK() bool {
	return r.Error == "" && r.Document != nil && r.Document.Type != DocUnknown
}

// Problem returns the user-facing reason for a failed verification.
func (r VerificationResult) Problem() string {
	switch {
	case r.Error != "":
		return r.Error
	case r.Warning != "":
		return r.Warning
	case r.OK():
		return ""
	default:
		return "Could not recognize document type."
	}
}
