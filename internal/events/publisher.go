package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/skyward-systems/proctorwatch/internal/models"
)

// Publisher emits engine lifecycle events.
type Publisher interface {
	PublishFlags(ctx context.Context, sessionID string, flags []*models.Flag) error
	PublishSnapshot(ctx context.Context, snap *models.SessionSnapshot) error
	Close()
}

// FlagsRaisedEvent is the payload published on SubjectFlagsRaised.
type FlagsRaisedEvent struct {
	SessionID string         `json:"session_id"`
	Flags     []*models.Flag `json:"flags"`
	RaisedAt  time.Time      `json:"raised_at"`
}

// NATSPublisher implements Publisher over a NATS connection.
type NATSPublisher struct {
	conn *nats.Conn
}

// NATSConfig holds publisher connection settings.
type NATSConfig struct {
	URL           string
	Name          string
	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration
}

// DefaultNATSConfig returns a Config with sensible defaults.
func DefaultNATSConfig(url string) NATSConfig {
	if url == "" {
		url = nats.DefaultURL
	}
	return NATSConfig{
		URL:           url,
		Name:          "proctorwatch-engine",
		MaxReconnects: -1, // Infinite reconnects
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
	}
}

// NewNATSPublisher connects to NATS with reconnect handling.
func NewNATSPublisher(cfg NATSConfig) (*NATSPublisher, error) {
	conn, err := nats.Connect(cfg.URL,
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn}, nil
}

func (p *NATSPublisher) publishJSON(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal message: %w", err)
	}
	return p.conn.Publish(subject, payload)
}

// PublishFlags emits the session's newly raised flags.
func (p *NATSPublisher) PublishFlags(ctx context.Context, sessionID string, flags []*models.Flag) error {
	if len(flags) == 0 {
		return nil
	}
	return p.publishJSON(ctx, SubjectFlagsRaised, &FlagsRaisedEvent{
		SessionID: sessionID,
		Flags:     flags,
		RaisedAt:  time.Now().UTC(),
	})
}

// PublishSnapshot emits the session's refreshed snapshot.
func (p *NATSPublisher) PublishSnapshot(ctx context.Context, snap *models.SessionSnapshot) error {
	return p.publishJSON(ctx, SubjectSessionSnapshot, snap)
}

// Close drains and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		p.conn.Close()
	}
}

// NoopPublisher discards all events. Used when the bus is disabled.
type NoopPublisher struct{}

func (NoopPublisher) PublishFlags(context.Context, string, []*models.Flag) error { return nil }

func (NoopPublisher) PublishSnapshot(context.Context, *models.SessionSnapshot) error { return nil }

func (NoopPublisher) Close() {}
