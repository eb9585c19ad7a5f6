// Package events publishes loan lifecycle notifications to NATS.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"

	logx "github.com/SmartLoan360X/server/pkg/logger"
)

const (
	SubjectKYCVerified         = "loan.kyc.verified"
	SubjectUnderwritingDecided = "loan.underwriting.decided"
	SubjectSanctionIssued      = "loan.sanction.issued"
)

// Envelope wraps every payload put on the bus.
type Envelope struct {
	ID         string    `json:"id"`
	Subject    string    `json:"subject"`
	SessionID  string    `json:"session_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

type Publisher interface {
	Publish(ctx context.Context, subject, sessionID string, data any) error
	Close()
}

type Config struct {
	URL   string `envconfig:"NATS_URL"`
	Token string `envconfig:"NATS_TOKEN"`
}

func (c Config) Enabled() bool { return c.URL != "" }

// NATSPublisher is a fire-and-forget publisher over a core NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

func Connect(cfg Config) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("smartloan360x"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logx.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logx.Info().Msg("nats reconnected")
		}),
	}
	if cfg.Token != "" {
		opts = append(opts, nats.Token(cfg.Token))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSPublisher{conn: nc}, nil
}

func (p *NATSPublisher) Publish(_ context.Context, subject, sessionID string, data any) error {
	payload, err := Marshal(subject, sessionID, data)
	if err != nil {
		return err
	}
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() {
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}

// Marshal builds the JSON envelope for subject.
func Marshal(subject, sessionID string, data any) ([]byte, error) {
	b, err := json.Marshal(Envelope{
		ID:         uuid.NewString(),
		Subject:    subject,
		SessionID:  sessionID,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal %s event: %w", subject, err)
	}
	return b, nil
}

// Noop drops every event.
type Noop struct{}

func (Noop) Publish(context.Context, string, string, any) error { return nil }
func (Noop) Close()                                            {}

// Recorder keeps published envelopes in memory. Used by the chat REPL and tests.
type Recorder struct {
	mu     sync.Mutex
	events []Envelope
}

func (r *Recorder) Publish(_ context.Context, subject, sessionID string, data any) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, Envelope{Subject: subject, SessionID: sessionID, OccurredAt: time.Now().UTC(), Data: data})
	return nil
}

func (r *Recorder) Close() {}

func (r *Recorder) Events() []Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Envelope(nil), r.events...)
}

// Subjects returns the subjects in publish order.
func (r *Recorder) Subjects() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Subject)
	}
	return out
}

var (
	_ Publisher = (*NATSPublisher)(nil)
	_ Publisher = Noop{}
	_ Publisher = (*Recorder)(nil)
)
