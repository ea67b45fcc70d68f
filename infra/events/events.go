// Package events publishes payment outcome events to a message broker.
package events

import (
	"context"
	"fmt"
	"strings"

	"github.com/mstgnz/vrpay/infra/config"
	"github.com/mstgnz/vrpay/infra/logger"
)

// Publisher ships JSON events keyed by merchant transaction id
type Publisher interface {
	Publish(ctx context.Context, key string, value any) error
	Close() error
}

const (
	BrokerNone     = "none"
	BrokerKafka    = "kafka"
	BrokerRabbitMQ = "rabbitmq"
)

// New returns the publisher selected by EVENT_BROKER
func New(cfg *config.AppConfig) (Publisher, error) {
	switch strings.ToLower(cfg.EventBroker) {
	case "", BrokerNone:
		return Noop{}, nil
	case BrokerKafka:
		brokers := splitList(cfg.KafkaBrokers)
		if len(brokers) == 0 {
			return nil, fmt.Errorf("KAFKA_BROKERS is required for the kafka broker")
		}
		logger.Info("Publishing outcome events to Kafka", logger.LogContext{Fields: map[string]any{
			"brokers": brokers,
			"topic":   cfg.KafkaTopic,
		}})
		return NewKafkaPublisher(brokers, cfg.KafkaTopic), nil
	case BrokerRabbitMQ:
		if cfg.RabbitMQURL == "" {
			return nil, fmt.Errorf("RABBITMQ_URL is required for the rabbitmq broker")
		}
		p, err := NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.RabbitMQQueue)
		if err != nil {
			return nil, err
		}
		logger.Info("Publishing outcome events to RabbitMQ", logger.LogContext{Fields: map[string]any{
			"queue": cfg.RabbitMQQueue,
		}})
		return p, nil
	default:
		return nil, fmt.Errorf("unknown event broker %q", cfg.EventBroker)
	}
}

// Noop drops every event
type Noop struct{}

func (Noop) Publish(context.Context, string, any) error { return nil }
func (Noop) Close() error                               { return nil }

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
