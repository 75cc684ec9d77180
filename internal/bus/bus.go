// Package bus publishes pointing events to NATS.
package bus

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/star/starseeker/internal/config"
	"github.com/star/starseeker/internal/sky"
)

// DefaultSubject is used when the config leaves the subject empty.
const DefaultSubject = "starseeker.pointing"

// PointingEvent is published after every pointing request, successful or not.
type PointingEvent struct {
	Time         time.Time       `json:"time"`
	Source       string          `json:"source"`
	Name         string          `json:"name"`
	Category     string          `json:"category"`
	Outcome      string          `json:"outcome"`
	Equatorial   *sky.Equatorial `json:"equatorial,omitempty"`
	Horizontal   *sky.Horizontal `json:"horizontal,omitempty"`
	Mount        *sky.Horizontal `json:"mount,omitempty"`
	BelowHorizon bool            `json:"below_horizon"`
	Transmitted  bool            `json:"transmitted"`
	SinkStatus   int             `json:"sink_status,omitempty"`
}

// Publisher sends events on one subject. A Publisher without servers is
// disabled and drops events.
type Publisher struct {
	conn    *nats.Conn
	subject string
	log     *slog.Logger
}

// Connect dials the configured servers. With no servers configured it
// returns a disabled publisher.
func Connect(ctx context.Context, cfg config.BusConfig, log *slog.Logger) (*Publisher, error) {
	subject := cfg.Subject
	if subject == "" {
		subject = DefaultSubject
	}
	if len(cfg.Servers) == 0 {
		log.Info("event bus disabled", "component", "bus")
		return &Publisher{subject: subject, log: log}, nil
	}

	timeout := time.Duration(cfg.ConnectTimeout) * time.Millisecond
	if timeout <= 0 {
		timeout = nats.DefaultTimeout
	}
	if dl, ok := ctx.Deadline(); ok && time.Until(dl) < timeout {
		timeout = time.Until(dl)
	}
	options := []nats.Option{
		nats.Name("starseeker"),
		nats.Timeout(timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("NATS disconnected", "component", "bus", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			log.Info("NATS reconnected", "component", "bus", "url", c.ConnectedUrl())
		}),
	}
	if cfg.Username != "" || cfg.Password != "" {
		options = append(options, nats.UserInfo(cfg.Username, cfg.Password))
	}
	if cfg.Token != "" {
		options = append(options, nats.Token(cfg.Token))
	}
	if cfg.TLSInsecure {
		options = append(options, nats.Secure(&tls.Config{InsecureSkipVerify: true}))
	}

	url := strings.Join(cfg.Servers, ",")
	conn, err := nats.Connect(url, options...)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	log.Info("connected to NATS", "component", "bus", "servers", url, "subject", subject)
	return &Publisher{conn: conn, subject: subject, log: log}, nil
}

// Enabled reports whether events are sent anywhere.
func (p *Publisher) Enabled() bool { return p != nil && p.conn != nil }

// Healthy reports whether the connection is up. A disabled publisher is healthy.
func (p *Publisher) Healthy() bool {
	if !p.Enabled() {
		return true
	}
	return p.conn.Status() == nats.CONNECTED
}

// Subject returns the subject events are published on.
func (p *Publisher) Subject() string { return p.subject }

// Publish sends ev with the trace context of ctx in the message headers.
func (p *Publisher) Publish(ctx context.Context, ev PointingEvent) error {
	if !p.Enabled() {
		return nil
	}
	msg, err := NewMessage(ctx, p.subject, ev)
	if err != nil {
		return err
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", p.subject, err)
	}
	return nil
}

// NewMessage encodes ev as JSON and injects the trace context of ctx.
func NewMessage(ctx context.Context, subject string, ev PointingEvent) (*nats.Msg, error) {
	data, err := json.Marshal(ev)
	if err != nil {
		return nil, fmt.Errorf("encode pointing event: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(http.Header(msg.Header)))
	return msg, nil
}

// Close drains and closes the connection.
func (p *Publisher) Close() {
	if !p.Enabled() {
		return
	}
	p.log.Info("closing NATS connection", "component", "bus")
	if err := p.conn.Drain(); err != nil {
		p.conn.Close()
	}
}
