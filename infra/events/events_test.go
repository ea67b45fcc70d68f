package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstgnz/vrpay/infra/config"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

type fakeChannel struct {
	declared  string
	published []amqp.Publishing
	keys      []string
	declErr   error
	closed    bool
}

func (f *fakeChannel) QueueDeclare(name string, durable, _, _, _ bool, _ amqp.Table) (amqp.Queue, error) {
	if f.declErr != nil {
		return amqp.Queue{}, f.declErr
	}
	if !durable {
		return amqp.Queue{}, errors.New("queue must be durable")
	}
	f.declared = name
	return amqp.Queue{Name: name}, nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

type event struct {
	MerchantTransactionID string `json:"merchantTransactionId"`
	Outcome               string `json:"outcome"`
}

func TestKafkaPublisher_Publish(t *testing.T) {
	fw := &fakeWriter{}
	p := NewKafkaPublisherWithWriter(fw)

	err := p.Publish(context.Background(), "order-00012345", event{"order-00012345", "successful"})
	require.NoError(t, err)
	require.Len(t, fw.msgs, 1)

	msg := fw.msgs[0]
	assert.Equal(t, "order-00012345", string(msg.Key))
	assert.JSONEq(t, `{"merchantTransactionId":"order-00012345","outcome":"successful"}`, string(msg.Value))
	assert.Equal(t, "content-type", msg.Headers[0].Key)

	require.NoError(t, p.Close())
	assert.True(t, fw.closed)
}

func TestKafkaPublisher_Errors(t *testing.T) {
	fw := &fakeWriter{err: errors.New("leader not available")}
	p := NewKafkaPublisherWithWriter(fw)

	err := p.Publish(context.Background(), "k", event{})
	assert.ErrorContains(t, err, "leader not available")

	err = p.Publish(context.Background(), "k", func() {})
	assert.ErrorContains(t, err, "marshaling event")
}

func TestRabbitMQPublisher(t *testing.T) {
	ch := &fakeChannel{}
	p, err := NewRabbitMQPublisherWithChannel(ch, "vrpay.outcomes")
	require.NoError(t, err)
	assert.Equal(t, "vrpay.outcomes", ch.declared)

	require.NoError(t, p.Publish(context.Background(), "order-00012345", event{"order-00012345", "pending"}))
	require.Len(t, ch.published, 1)
	assert.Equal(t, "vrpay.outcomes", ch.keys[0])

	msg := ch.published[0]
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, amqp.Persistent, msg.DeliveryMode)
	assert.Equal(t, "order-00012345", msg.MessageId)

	var got event
	require.NoError(t, json.Unmarshal(msg.Body, &got))
	assert.Equal(t, "pending", got.Outcome)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestRabbitMQPublisher_DeclareError(t *testing.T) {
	_, err := NewRabbitMQPublisherWithChannel(&fakeChannel{declErr: errors.New("access refused")}, "q")
	assert.ErrorContains(t, err, "access refused")
}

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.AppConfig
		want    any
		wantErr string
	}{
		{name: "default", cfg: config.AppConfig{}, want: Noop{}},
		{name: "none", cfg: config.AppConfig{EventBroker: "none"}, want: Noop{}},
		{name: "kafka", cfg: config.AppConfig{EventBroker: "Kafka", KafkaBrokers: "localhost:9092, localhost:9093", KafkaTopic: "vrpay.outcomes"}, want: &KafkaPublisher{}},
		{name: "kafka without brokers", cfg: config.AppConfig{EventBroker: "kafka", KafkaBrokers: " , "}, wantErr: "KAFKA_BROKERS"},
		{name: "rabbitmq without url", cfg: config.AppConfig{EventBroker: "rabbitmq"}, wantErr: "RABBITMQ_URL"},
		{name: "unknown", cfg: config.AppConfig{EventBroker: "nats"}, wantErr: "unknown event broker"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := New(&tt.cfg)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.IsType(t, tt.want, p)
			p.Close()
		})
	}
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a:1", "b:2"}, splitList(" a:1 ,, b:2 "))
	assert.Nil(t, splitList(""))
}
