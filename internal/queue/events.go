package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/streadway/amqp"
	"go.uber.org/zap"

	"github.com/teamreach/outreach-backend/internal/model"
)

// EventSink receives verified, normalized workspace events from the
// webhook. The sink decides whether processing happens in-request or on
// a separate consumer.
type EventSink interface {
	Publish(ctx context.Context, ev model.Event) error
}

// InlineSink hands events straight to the handler. Used when no broker
// is configured; redelivery safety still holds because the send ledger
// dedups, the transport just loses buffering.
type InlineSink struct {
	Handler func(ctx context.Context, ev model.Event) error
}

func (s *InlineSink) Publish(ctx context.Context, ev model.Event) error {
	return s.Handler(ctx, ev)
}

// AMQPSink publishes events to a durable queue drained by cmd/worker.
type AMQPSink struct {
	conn      *amqp.Connection
	channel   *amqp.Channel
	queueName string
}

func NewAMQPSink(url, queueName string) (*AMQPSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("declare queue: %w", err)
	}

	return &AMQPSink{conn: conn, channel: ch, queueName: queueName}, nil
}

func (s *AMQPSink) Publish(ctx context.Context, ev model.Event) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.channel.Publish("", s.queueName, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Body:         body,
	})
}

func (s *AMQPSink) Close() error {
	s.channel.Close()
	return s.conn.Close()
}

// ConsumeEvents drains the event queue, handing each event to the
// handler. Handler errors are logged and the delivery acked anyway:
// the core never retries automatically, and a missed workflow send is
// recoverable through a backfill because no ledger entry was written.
func ConsumeEvents(url, queueName string, handler func(ctx context.Context, ev model.Event) error, logger *zap.Logger) error {
	conn, err := amqp.Dial(url)
	if err != nil {
		return fmt.Errorf("dial amqp: %w", err)
	}
	defer conn.Close()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("open channel: %w", err)
	}
	defer ch.Close()

	q, err := ch.QueueDeclare(queueName, true, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("declare queue: %w", err)
	}

	deliveries, err := ch.Consume(q.Name, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("register consumer: %w", err)
	}

	logger.Info("event consumer running", zap.String("queue", q.Name))

	for d := range deliveries {
		var ev model.Event
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			logger.Warn("dropping malformed event", zap.Error(err))
			d.Ack(false)
			continue
		}

		if err := handler(context.Background(), ev); err != nil {
			logger.Error("event handling failed",
				zap.String("kind", ev.Kind),
				zap.String("team_id", ev.TeamID),
				zap.Error(err))
		}
		d.Ack(false)
	}

	return nil
}
