package events

import (
	"context"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/vsinha/plantsim/pkg/infrastructure/logging"
)

// AMQPSink publishes events to a fanout exchange, routing key = event type.
type AMQPSink struct {
	*asyncSink
	publisher amqpPublisher
	exchange  string
	conn      *amqp.Connection
	ch        *amqp.Channel
}

// amqpPublisher abstracts amqp.Channel for testability.
type amqpPublisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// DialAMQPSink connects, declares the durable fanout exchange and starts the sink
func DialAMQPSink(url, exchange string, buffer int, log *logging.Logger) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "fanout", true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", exchange, err)
	}
	s := NewAMQPSinkWith(ch, exchange, buffer, log)
	s.conn, s.ch = conn, ch
	return s, nil
}

// NewAMQPSinkWith builds a sink around any publisher.
func NewAMQPSinkWith(p amqpPublisher, exchange string, buffer int, log *logging.Logger) *AMQPSink {
	s := &AMQPSink{publisher: p, exchange: exchange}
	s.asyncSink = newAsyncSink("amqp", buffer, log, s.publish)
	return s
}

func (s *AMQPSink) publish(ctx context.Context, e Event) error {
	body, err := Encode(e)
	if err != nil {
		return err
	}
	return s.publisher.PublishWithContext(ctx, s.exchange, e.Type(), false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		Timestamp:    e.Timestamp(),
		ContentType:  "application/json",
		MessageId:    e.ID(),
		Type:         e.Type(),
		Body:         body,
	})
}

// Close drains queued events and releases the connection
func (s *AMQPSink) Close() error {
	s.asyncSink.close()
	if s.ch != nil {
		_ = s.ch.Close()
	}
	if s.conn != nil {
		return s.conn.Close()
	}
	return nil
}
