package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/segmentio/kafka-go"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// KafkaSink publishes events to a Kafka topic keyed by stream id.
type KafkaSink struct {
	*asyncSink
	writer kafkaMessageWriter
}

// kafkaMessageWriter abstracts kafka.Writer for testability.
type kafkaMessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// NewKafkaSink creates a Kafka sink.
// bootstrap can be a comma-separated list of host:port.
func NewKafkaSink(bootstrap, topic string, buffer int, log *logging.Logger) *KafkaSink {
	var brokers []string
	for _, a := range strings.Split(bootstrap, ",") {
		if a = strings.TrimSpace(a); a != "" {
			brokers = append(brokers, a)
		}
	}
	return NewKafkaSinkWith(&kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
	}, buffer, log)
}

// NewKafkaSinkWith builds a sink around any message writer.
func NewKafkaSinkWith(w kafkaMessageWriter, buffer int, log *logging.Logger) *KafkaSink {
	k := &KafkaSink{writer: w}
	k.asyncSink = newAsyncSink("kafka", buffer, log, k.publish)
	return k
}

func (k *KafkaSink) publish(ctx context.Context, e Event) error {
	b, err := Encode(e)
	if err != nil {
		return err
	}
	if err := k.writer.WriteMessages(ctx, kafka.Message{
		Key:     []byte(e.StreamID()),
		Value:   b,
		Headers: []kafka.Header{{Key: "type", Value: []byte(e.Type())}},
		Time:    e.Timestamp(),
	}); err != nil {
		return fmt.Errorf("kafka write: %w", err)
	}
	return nil
}

// Close drains queued events and closes the writer
func (k *KafkaSink) Close() error {
	k.asyncSink.close()
	return k.writer.Close()
}
