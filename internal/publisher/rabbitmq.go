// Package publisher places fulfillment events on the products queue.
package publisher

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/apperr"
	"github.com/aitabderrahimhamou/MGL842-Order-Microservice/internal/model"
)

// RabbitMQPublisher serializes fulfillment events onto a durable queue.
type RabbitMQPublisher struct {
	channel *amqp.Channel
	queue   string
}

// NewRabbitMQPublisher opens a channel on conn and declares the queue.
func NewRabbitMQPublisher(conn *amqp.Connection, queueName string) (*RabbitMQPublisher, error) {
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
		nil,       // arguments
	)
	if err != nil {
		return nil, fmt.Errorf("failed to declare queue %s: %w", queueName, err)
	}

	return &RabbitMQPublisher{
		channel: ch,
		queue:   queueName,
	}, nil
}

// Publish serializes the event and enqueues it with persistent delivery.
func (p *RabbitMQPublisher) Publish(ctx context.Context, ev model.FulfillmentEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("%w: encode event: %v", apperr.ErrPublishFailed, err)
	}

	err = p.channel.PublishWithContext(ctx,
		"",      // exchange
		p.queue, // routing key
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			MessageId:    uuid.New().String(),
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
		})
	if err != nil {
		return fmt.Errorf("%w: %v", apperr.ErrPublishFailed, err)
	}

	return nil
}

// Close releases the channel.
func (p *RabbitMQPublisher) Close() {
	p.channel.Close()
}
