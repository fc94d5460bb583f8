package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/nats-io/nats.go"

	"notifyhub/internal/config"
	"notifyhub/pkg/notify"
)

// NATSSink publishes each batch, JSON-encoded as one payload, onto a NATS
// subject so other in-house
// consumers can fan the same batch out further, independent of this
// library's own processor registry.
type NATSSink struct {
	SinkName string
	subject  string
	conn     *nats.Conn
}

// NewNATSSink connects to cfg.URL and returns a NATSSink publishing to
// cfg.Subject.
func NewNATSSink(name string, cfg config.NATSSinkConfig) (*NATSSink, error) {
	conn, err := nats.Connect(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("nats sink %s: connect: %w", name, err)
	}
	return &NATSSink{SinkName: name, subject: cfg.Subject, conn: conn}, nil
}

func (s *NATSSink) Name() string { return s.SinkName }

func (s *NATSSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return fmt.Errorf("nats sink %s: encode: %w", s.SinkName, err)
	}
	if err := s.conn.Publish(s.subject, payload); err != nil {
		return fmt.Errorf("nats sink %s: publish: %w", s.SinkName, err)
	}
	return nil
}

// Close drains and closes the underlying connection.
func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
