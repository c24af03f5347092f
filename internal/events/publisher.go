package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sony/gobreaker/v2"

	"github.com/appealai/ticket-intake/internal/common"
	"github.com/appealai/ticket-intake/internal/fields"
)

// Completion is published on the completion subject after every settled run.
type Completion struct {
	RunID      string        `json:"run_id"`
	Filename   string        `json:"filename"`
	Status     string        `json:"status"`
	NoContent  bool          `json:"no_content,omitempty"`
	TextLength int           `json:"text_length"`
	Fields     fields.Fields `json:"fields"`
	Warnings   []string      `json:"warnings,omitempty"`
	Error      string        `json:"error,omitempty"`
	SettledAt  time.Time     `json:"settled_at"`
}

// Publisher pushes completion events to NATS. A nil Publisher is a no-op,
// callers may skip event wiring entirely when no broker is configured.
type Publisher struct {
	conn    *nats.Conn
	subject string
	breaker *gobreaker.CircuitBreaker[any]
	logger  *slog.Logger
}

func NewPublisher(cfg common.Events, logger *slog.Logger) (*Publisher, error) {
	conn, err := nats.Connect(cfg.NATSURL,
		nats.Name("ticket-intake"),
		nats.Timeout(5*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.RetryOnFailedConnect(true),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			logger.Warn("nats disconnected", "error", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, common.NewAppError("EVENTS_CONNECT", fmt.Sprintf("connect to nats at %s", cfg.NATSURL), err)
	}

	breaker := gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:        "nats-publish",
		MaxRequests: 3,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("breaker state change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Publisher{
		conn:    conn,
		subject: cfg.Subject,
		breaker: breaker,
		logger:  logger,
	}, nil
}

// PublishCompletion validates the field payload against the published schema
// and sends the event. Failures are logged, not propagated, delivery is
// best-effort and must not fail the run.
func (p *Publisher) PublishCompletion(ev Completion) {
	if p == nil {
		return
	}

	payload, err := json.Marshal(ev)
	if err != nil {
		p.logger.Error("marshal completion event", "run_id", ev.RunID, "error", err)
		return
	}
	fieldsJSON, err := json.Marshal(ev.Fields)
	if err == nil {
		if verr := fields.ValidateJSON(fieldsJSON); verr != nil {
			p.logger.Error("completion fields failed schema validation", "run_id", ev.RunID, "error", verr)
			return
		}
	}

	_, err = p.breaker.Execute(func() (any, error) {
		return nil, p.conn.Publish(p.subject, payload)
	})
	if err != nil {
		p.logger.Error("publish completion event", "run_id", ev.RunID, "subject", p.subject, "error", err)
		return
	}
	p.logger.Debug("completion event published", "run_id", ev.RunID, "subject", p.subject)
}

func (p *Publisher) Close() {
	if p == nil || p.conn == nil {
		return
	}
	if err := p.conn.Drain(); err != nil {
		p.logger.Warn("drain nats connection", "error", err)
		p.conn.Close()
	}
}
