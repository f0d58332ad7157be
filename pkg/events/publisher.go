// Package events delivers domain events to downstream consumers such as the
// notification dispatcher.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event is the wire envelope for every published domain event.
type Event struct {
	ID         string          `json:"id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Data       json.RawMessage `json:"data"`
}

// Publisher emits domain events. Implementations must be safe for concurrent use.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}) error
	Close() error
}

// NewEvent marshals payload into an envelope with a fresh id.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}, nil
}

type natsConn interface {
	PublishMsg(msg *nats.Msg) error
	Drain() error
}

// NATSPublisher publishes events as JSON on "<prefix>.<event type>" subjects.
type NATSPublisher struct {
	conn   natsConn
	prefix string
	logger *zap.Logger
}

// NewNATSPublisher dials url and returns a publisher bound to subject prefix.
func NewNATSPublisher(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	conn, err := nats.Connect(url,
		nats.Name("academic-registrar"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return newNATSPublisher(conn, prefix, logger), nil
}

func newNATSPublisher(conn natsConn, prefix string, logger *zap.Logger) *NATSPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NATSPublisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject used for eventType.
func (p *NATSPublisher) Subject(eventType string) string {
	if p.prefix == "" {
		return eventType
	}
	return p.prefix + "." + eventType
}

// Publish implements Publisher.
func (p *NATSPublisher) Publish(ctx context.Context, eventType string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := nats.NewMsg(p.Subject(eventType))
	msg.Data = body
	msg.Header.Set("Nats-Msg-Id", event.ID)
	msg.Header.Set("Content-Type", "application/json")

	if err := p.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", msg.Subject, err)
	}
	p.logger.Debug("event published", zap.String("subject", msg.Subject), zap.String("event_id", event.ID))
	return nil
}

// Close drains in-flight messages before closing the connection.
func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// LogPublisher writes events to the structured log. It is used when no broker
// is configured.
type LogPublisher struct {
	logger *zap.Logger
}

// NewLogPublisher returns a publisher backed by logger.
func NewLogPublisher(logger *zap.Logger) *LogPublisher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogPublisher{logger: logger}
}

// Publish implements Publisher.
func (p *LogPublisher) Publish(_ context.Context, eventType string, payload interface{}) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	p.logger.Info("domain event",
		zap.String("event_id", event.ID),
		zap.String("type", event.Type),
		zap.ByteString("data", event.Data),
	)
	return nil
}

// Close implements Publisher.
func (p *LogPublisher) Close() error { return nil }
