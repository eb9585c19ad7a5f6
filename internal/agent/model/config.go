package model

import "time"

// ================ Config ================
type SessionConfig struct {
	TTL            time.Duration `envconfig:"SESSION_TTL" default:"30m"`
	DefaultPersona string        `envconfig:"SESSION_DEFAULT_PERSONA" default:"Friendly Advisor"`
}

type ResponseModelConfig struct {
	Model       string  `envconfig:"RESPONSE_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"RESPONSE_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"RESPONSE_TEMPERATURE" default:"0.7"`
}

// UnderwritingConfig carries every constant of the FHI rule. Offers are fixed
// per tier and are not derived from the requested amount.
type UnderwritingConfig struct {
	DefaultCreditScore int     `envconfig:"UW_DEFAULT_CREDIT_SCORE" default:"720"`
	DefaultIncome      float64 `envconfig:"UW_DEFAULT_INCOME" default:"800000"`

	CreditHighCutoff int `envconfig:"UW_CREDIT_HIGH_CUTOFF" default:"750"`
	CreditMidCutoff  int `envconfig:"UW_CREDIT_MID_CUTOFF" default:"680"`
	CreditHighBonus  int `envconfig:"UW_CREDIT_HIGH_BONUS" default:"40"`
	CreditMidBonus   int `envconfig:"UW_CREDIT_MID_BONUS" default:"30"`
	CreditLowBonus   int `envconfig:"UW_CREDIT_LOW_BONUS" default:"10"`

	IncomeHighCutoff float64 `envconfig:"UW_INCOME_HIGH_CUTOFF" default:"1000000"`
	IncomeMidCutoff  float64 `envconfig:"UW_INCOME_MID_CUTOFF" default:"500000"`
	IncomeHighBonus  int     `envconfig:"UW_INCOME_HIGH_BONUS" default:"40"`
	IncomeMidBonus   int     `envconfig:"UW_INCOME_MID_BONUS" default:"30"`
	IncomeLowBonus   int     `envconfig:"UW_INCOME_LOW_BONUS" default:"20"`

	HabitBonus int `envconfig:"UW_HABIT_BONUS" default:"15"`

	StrongThreshold   int `envconfig:"UW_STRONG_THRESHOLD" default:"65"`
	ModerateThreshold int `envconfig:"UW_MODERATE_THRESHOLD" default:"40"`

	StrongRate     float64 `envconfig:"UW_STRONG_RATE" default:"10.5"`
	StrongAmount   int64   `envconfig:"UW_STRONG_AMOUNT" default:"500000"`
	ModerateRate   float64 `envconfig:"UW_MODERATE_RATE" default:"12.5"`
	ModerateAmount int64   `envconfig:"UW_MODERATE_AMOUNT" default:"250000"`
}

// DefaultUnderwritingConfig mirrors the envconfig defaults for callers that do not load env.
func DefaultUnderwritingConfig() UnderwritingConfig {
	return UnderwritingConfig{
		DefaultCreditScore: 720,
		DefaultIncome:      800000,
		CreditHighCutoff:   750,
		CreditMidCutoff:    680,
		CreditHighBonus:    40,
		CreditMidBonus:     30,
		CreditLowBonus:     10,
		IncomeHighCutoff:   1000000,
		IncomeMidCutoff:    500000,
		IncomeHighBonus:    40,
		IncomeMidBonus:     30,
		IncomeLowBonus:     20,
		HabitBonus:         15,
		StrongThreshold:    65,
		ModerateThreshold:  40,
		StrongRate:         10.5,
		StrongAmount:       500000,
		ModerateRate:       12.5,
		ModerateAmount:     250000,
	}
}

type KYCConfig struct {
	// Extractor selects the text-extraction backend: "filename" (fixture) or "gemini".
	Extractor string `envconfig:"KYC_EXTRACTOR" default:"filename"`
	Model     string `envconfig:"KYC_MODEL" default:"gemini-2.5-flash"`
}

type UploadConfig struct {
	Dir      string `envconfig:"UPLOAD_DIR" default:"uploads"`
	MaxBytes int64  `envconfig:"UPLOAD_MAX_BYTES" default:"10485760"`
}

type LetterConfig struct {
	Dir    string `envconfig:"LETTER_DIR"`
	Lender string `envconfig:"LETTER_LENDER" default:"SmartLoan360X"`
}
