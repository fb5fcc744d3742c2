package bus

import (
	"encoding/json"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	zlog "github.com/rs/zerolog/log"
)

const subjectPrefix = "gigbox.evt."

// Config represents bus connection configuration.
type Config struct {
	URL           string
	Name          string // connection name, e.g. "gigbox-server"
	MaxReconnects int
	ReconnectWait time.Duration
}

// Envelope wraps every message published to the bus.
type Envelope struct {
	EventType EventType       `json:"event_type"`
	Payload   json.RawMessage `json:"payload"`
	Timestamp time.Time       `json:"timestamp"`
	NodeID    string          `json:"node_id"`
	MessageID string          `json:"message_id"`
}

// Decode unmarshals the envelope payload into out.
func (e *Envelope) Decode(out any) error {
	if err := json.Unmarshal(e.Payload, out); err != nil {
		return errors.Wrapf(err, "failed to decode %s payload", e.EventType)
	}
	return nil
}

// Bus is a NATS-backed publish/subscribe event bus. Delivery is
// at-most-once; subscribers must tolerate missed events.
type Bus struct {
	nc     *nats.Conn
	nodeID string
}

// Connect establishes the NATS connection.
func Connect(cfg Config) (*Bus, error) {
	nodeID := uuid.New().String()

	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			zlog.Warn().Msgf("bus disconnected: %v", err)
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			zlog.Info().Msgf("bus reconnected: url=%s", nc.ConnectedUrl())
		}),
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to event bus")
	}

	zlog.Info().Msgf("connected to event bus: url=%s node_id=%s", cfg.URL, nodeID)
	return &Bus{nc: nc, nodeID: nodeID}, nil
}

// NodeID returns this connection's node id, used by subscribers to
// recognize their own messages.
func (b *Bus) NodeID() string {
	return b.nodeID
}

// Publish sends payload to all subscribers of eventType.
func (b *Bus) Publish(eventType EventType, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrapf(err, "failed to marshal %s payload", eventType)
	}

	data, err := json.Marshal(Envelope{
		EventType: eventType,
		Payload:   raw,
		Timestamp: time.Now(),
		NodeID:    b.nodeID,
		MessageID: uuid.New().String(),
	})
	if err != nil {
		return errors.Wrap(err, "failed to marshal envelope")
	}

	if err := b.nc.Publish(Subject(eventType), data); err != nil {
		return errors.Wrapf(err, "failed to publish %s", eventType)
	}
	return nil
}

// Subscribe registers handler for eventType. The handler runs on the NATS
// delivery goroutine; it must not block for long. Subscriptions live until
// Close drains the connection.
func (b *Bus) Subscribe(eventType EventType, handler func(*Envelope)) error {
	_, err := b.nc.Subscribe(Subject(eventType), func(msg *nats.Msg) {
		var env Envelope
		if err := json.Unmarshal(msg.Data, &env); err != nil {
			zlog.Warn().Msgf("dropping malformed bus message: subject=%s error=%v", msg.Subject, err)
			return
		}
		handler(&env)
	})
	if err != nil {
		return errors.Wrapf(err, "failed to subscribe to %s", eventType)
	}
	return nil
}

// Close drains and closes the connection.
func (b *Bus) Close() {
	if b.nc == nil {
		return
	}
	if err := b.nc.Drain(); err != nil {
		b.nc.Close()
	}
}

// Subject returns the NATS subject for an event type.
func Subject(eventType EventType) string {
	return subjectPrefix + string(eventType)
}
