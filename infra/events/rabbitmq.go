package events

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Channel is the part of amqp.Channel the publisher uses
type Channel interface {
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// RabbitMQPublisher sends events to a durable queue
type RabbitMQPublisher struct {
	conn  *amqp.Connection
	chn   Channel
	queue string
}

// NewRabbitMQPublisher dials url and declares queue
func NewRabbitMQPublisher(url, queue string) (*RabbitMQPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dialing rabbitmq: %w", err)
	}
	chn, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("opening rabbitmq channel: %w", err)
	}

	p, err := NewRabbitMQPublisherWithChannel(chn, queue)
	if err != nil {
		conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

// NewRabbitMQPublisherWithChannel declares queue on an open channel
func NewRabbitMQPublisherWithChannel(chn Channel, queue string) (*RabbitMQPublisher, error) {
	_, err := chn.QueueDeclare(
		queue,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("declaring queue %s: %w", queue, err)
	}
	return &RabbitMQPublisher{chn: chn, queue: queue}, nil
}

// Publish sends value as a persistent JSON message. key becomes the message id.
func (p *RabbitMQPublisher) Publish(ctx context.Context, key string, value any) error {
	body, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshaling event: %w", err)
	}
	err = p.chn.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    key,
			Body:         body,
		},
	)
	if err != nil {
		return fmt.Errorf("publishing to %s: %w", p.queue, err)
	}
	return nil
}

func (p *RabbitMQPublisher) Close() error {
	if err := p.chn.Close(); err != nil {
		return err
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
