package events

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	natsgo "github.com/nats-io/nats.go"
	"github.com/rs/zerolog"
)

// NATSPublisher publishes JSON encoded events on per-table subjects, for
// example holdem.table.<id>.action.
type NATSPublisher struct {
	conn   *natsgo.Conn
	logger zerolog.Logger
}

// NewNATSPublisher connects to the server at url.
func NewNATSPublisher(url string, logger zerolog.Logger) (*NATSPublisher, error) {
	conn, err := natsgo.Connect(url, natsgo.Name("holdemtable"))
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}
	return &NATSPublisher{
		conn:   conn,
		logger: logger.With().Str("component", "nats").Logger(),
	}, nil
}

func (n *NATSPublisher) Publish(_ context.Context, e Event) error {
	data, err := jsoniter.Marshal(e)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", e.Type, err)
	}
	subject := e.Subject()
	n.logger.Debug().
		Str("subject", subject).
		Int64("version", e.Version).
		Msg("Publishing event")
	if err := n.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (n *NATSPublisher) Close() error {
	if err := n.conn.Flush(); err != nil {
		n.logger.Warn().Err(err).Msg("Failed to flush pending events")
	}
	n.conn.Close()
	return nil
}
