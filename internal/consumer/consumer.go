// Package consumer binds the order commit pipeline to the orders queue
// subscription and owns the broker connection lifecycle.
package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/metrics"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/pipeline"
)

// Dial connects to the broker with a bounded retry loop. RabbitMQ takes a
// while to come up in docker-compose, so a few attempts are expected; if
// the broker is still unreachable after the last one the error surfaces
// instead of retrying forever.
func Dial(url string, attempts int, delay time.Duration, log *slog.Logger) (*amqp.Connection, error) {
	if attempts <= 0 {
		attempts = 1
	}
	var conn *amqp.Connection
	var err error
	for i := 0; i < attempts; i++ {
		conn, err = amqp.Dial(url)
		if err == nil {
			return conn, nil
		}
		log.Warn("failed to connect to RabbitMQ, retrying",
			slog.Int("attempt", i+1),
			slog.Int("max_attempts", attempts),
			slog.Duration("delay", delay),
		)
		time.Sleep(delay)
	}
	return nil, fmt.Errorf("failed to connect to RabbitMQ after %d attempts: %w", attempts, err)
}

// Consumer subscribes to the orders queue and dispatches each delivery
// into the pipeline, one goroutine per delivery.
type Consumer struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	queue    string
	pipeline *pipeline.Pipeline
	log      *slog.Logger
}

// New opens a channel on conn and declares the inbound queue.
func New(conn *amqp.Connection, queueName string, pl *pipeline.Pipeline, log *slog.Logger) (*Consumer, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("failed to open a channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // args
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	if log == nil {
		log = slog.Default()
	}
	return &Consumer{
		conn:     conn,
		channel:  ch,
		queue:    queueName,
		pipeline: pl,
		log:      log,
	}, nil
}

// Run consumes deliveries until the context is canceled or the connection
// is lost. A lost connection returns an error so the process reports
// unhealthy instead of silently no longer consuming.
func (c *Consumer) Run(ctx context.Context) error {
	msgs, err := c.channel.Consume(
		c.queue, // queue
		"",      // consumer
		false,   // auto-ack: the pipeline acks at the acknowledged checkpoint
		false,   // exclusive
		false,   // no-local
		false,   // no-wait
		nil,     // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer on %s: %w", c.queue, err)
	}

	closed := c.conn.NotifyClose(make(chan *amqp.Error, 1))
	c.log.Info("waiting for order events", slog.String("queue", c.queue))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case amqpErr := <-closed:
			if amqpErr == nil {
				return errors.New("broker connection closed")
			}
			return fmt.Errorf("broker connection lost: %w", amqpErr)
		case d, ok := <-msgs:
			if !ok {
				return errors.New("delivery channel closed")
			}
			go c.dispatch(ctx, d)
		}
	}
}

// dispatch runs one delivery through the pipeline and routes the outcome.
// Retryable failures and injected aborts leave the delivery
// unacknowledged; redelivery is the queue's job, not ours. Non-retryable
// failures are nacked without requeue so the broker can dead-letter them.
func (c *Consumer) dispatch(ctx context.Context, d amqp.Delivery) {
	metrics.EventsConsumed.Inc()

	err := c.pipeline.Handle(ctx, pipeline.Delivery{
		Body: d.Body,
		Ack:  func() error { return d.Ack(false) },
	})
	switch {
	case err == nil:

	case errors.Is(err, pipeline.ErrAborted):
		c.log.Warn("pipeline run aborted by fault injection, leaving delivery unacknowledged",
			slog.String("error", err.Error()),
		)

	case !apperr.Retryable(err):
		c.log.Error("dropping non-retryable order event",
			slog.String("kind", apperr.Kind(err)),
			slog.String("error", err.Error()),
			slog.String("payload", string(d.Body)),
		)
		metrics.ProcessingFailures.WithLabelValues(apperr.Kind(err)).Inc()
		if nackErr := d.Nack(false, false); nackErr != nil {
			c.log.Error("failed to nack delivery", slog.String("error", nackErr.Error()))
		}

	default:
		c.log.Error("order event failed, leaving delivery unacknowledged for redelivery",
			slog.String("kind", apperr.Kind(err)),
			slog.String("error", err.Error()),
		)
		metrics.ProcessingFailures.WithLabelValues(apperr.Kind(err)).Inc()
	}
}

// Close releases the channel. The connection is owned by the caller.
func (c *Consumer) Close() {
	c.channel.Close()
}
