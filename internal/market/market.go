// Package market serves simulated market benchmarks. Values jitter on every
// read and are not consumed by the loan workflow.
package market

import (
	"math"
	"math/rand/v2"
	"sort"
	"time"
)

const (
	rbiRepoRate  = 6.50
	rbiJitter    = 0.05
	offerJitter  = 0.1
	rbiSource    = "Reserve Bank of India (Simulated)"
	offersSource = "Aggregated Market Data (Simulated)"
)

type RBIRate struct {
	Rate        float64   `json:"rate"`
	LastUpdated time.Time `json:"last_updated"`
	Source      string    `json:"source"`
}

type Offer struct {
	PersonalLoanRate float64 `json:"personal_loan_rate"`
	ProcessingFee    float64 `json:"processing_fee"`
}

type CompetitorOffers struct {
	Offers      map[string]Offer `json:"offers"`
	LastUpdated time.Time        `json:"last_updated"`
	Source      string           `json:"source"`
}

var competitors = map[string]Offer{
	"HDFC Bank":     {PersonalLoanRate: 10.75, ProcessingFee: 1.5},
	"ICICI Bank":    {PersonalLoanRate: 11.25, ProcessingFee: 1.25},
	"Bajaj Finserv": {PersonalLoanRate: 12.00, ProcessingFee: 2.0},
}

// Provider produces jittered snapshots. Float and Now are swappable for tests.
type Provider struct {
	Float func() float64
	Now   func() time.Time
}

func NewProvider() *Provider {
	return &Provider{Float: rand.Float64, Now: time.Now}
}

func (p *Provider) RBIRate() RBIRate {
	return RBIRate{
		Rate:        round2(rbiRepoRate + p.jitter(rbiJitter)),
		LastUpdated: p.Now(),
		Source:      rbiSource,
	}
}

func (p *Provider) CompetitorOffers() CompetitorOffers {
	banks := make([]string, 0, len(competitors))
	for bank := range competitors {
		banks = append(banks, bank)
	}
	// stable draw order keeps injected sequences reproducible
	sort.Strings(banks)

	out := make(map[string]Offer, len(banks))
	for _, bank := range banks {
		base := competitors[bank]
		out[bank] = Offer{
			PersonalLoanRate: round2(base.PersonalLoanRate + p.jitter(offerJitter)),
			ProcessingFee:    base.ProcessingFee,
		}
	}
	return CompetitorOffers{Offers: out, LastUpdated: p.Now(), Source: offersSource}
}

// jitter returns a value in [-span, span).
func (p *Provider) jitter(span float64) float64 {
	return (p.Float()*2 - 1) * span
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
