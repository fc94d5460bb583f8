package sinks

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/IBM/sarama"

	"notifyhub/internal/config"
	"notifyhub/pkg/notify"
)

// kafkaRecord is the wire shape published per message, grounded on the
// teacher repo's kafka sink (internal/sinks/kafka_sink.go in the original
// tree) but scoped to the batching message shape instead of a log record.
type kafkaRecord struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
	Level   string `json:"level"`
}

// KafkaSink publishes each message in a batch as its own record on a fixed
// topic, using a synchronous producer so ProcessBatch only returns once the
// broker has acked every message.
type KafkaSink struct {
	SinkName string
	topic    string
	producer sarama.SyncProducer
}

// NewKafkaSink builds a KafkaSink from its configuration, acking on local
// broker commit (WaitForLocal) the same way the teacher's producer config
// does.
func NewKafkaSink(name string, cfg config.KafkaSinkConfig) (*KafkaSink, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("kafka sink %s: no brokers configured", name)
	}
	if cfg.Topic == "" {
		return nil, fmt.Errorf("kafka sink %s: no topic configured", name)
	}

	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.RequiredAcks = sarama.WaitForLocal

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("kafka sink %s: new producer: %w", name, err)
	}

	return &KafkaSink{SinkName: name, topic: cfg.Topic, producer: producer}, nil
}

func (s *KafkaSink) Name() string { return s.SinkName }

func (s *KafkaSink) ProcessBatch(ctx context.Context, batch []notify.Message) error {
	msgs := make([]*sarama.ProducerMessage, 0, len(batch))
	for _, m := range batch {
		raw, err := json.Marshal(kafkaRecord{Channel: m.ChannelID, Text: m.Text, Level: string(m.Level)})
		if err != nil {
			return fmt.Errorf("kafka sink %s: encode: %w", s.SinkName, err)
		}
		msgs = append(msgs, &sarama.ProducerMessage{
			Topic: s.topic,
			Key:   sarama.StringEncoder(m.ChannelID),
			Value: sarama.ByteEncoder(raw),
		})
	}
	if err := s.producer.SendMessages(msgs); err != nil {
		return fmt.Errorf("kafka sink %s: send: %w", s.SinkName, err)
	}
	return nil
}

// Close releases the underlying producer.
func (s *KafkaSink) Close() error {
	return s.producer.Close()
}
