package messaging

import (
	"context"
	"fmt"
	"net"
	"time"

	"figures/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-nats/v2/pkg/jetstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/nats-io/nats.go"
	natsJs "github.com/nats-io/nats.go/jetstream"
)

// Populate runs can take minutes, the broker must not redeliver in the meantime.
const jetStreamAckWait = 10 * time.Minute

type JetStreamPublisher struct {
	TopicName string
	conn      *nats.Conn
	publisher *jetstream.Publisher
}

func NewJetStreamPublisher(config *models.JetStreamEventsConfig, topicName string) (*JetStreamPublisher, error) {
	nc, err := nats.Connect(net.JoinHostPort(config.Host, config.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	publisher, err := jetstream.NewPublisher(jetstream.PublisherConfig{
		Conn: nc,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream publisher: %w", err)
	}

	return &JetStreamPublisher{TopicName: topicName, conn: nc, publisher: publisher}, nil
}

func (p *JetStreamPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *JetStreamPublisher) Close() error {
	err := p.publisher.Close()
	p.conn.Close()
	return err
}

type JetStreamSubscriber struct {
	TopicName  string
	conn       *nats.Conn
	subscriber *jetstream.Subscriber
}

// NewJetStreamSubscriber creates a work queue stream for the topic with one
// durable consumer, so each task is handled by a single worker.
func NewJetStreamSubscriber(ctx context.Context, config *models.JetStreamEventsConfig, topicName string) (*JetStreamSubscriber, error) {
	nc, err := nats.Connect(net.JoinHostPort(config.Host, config.Port))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}

	js, err := natsJs.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream context: %w", err)
	}

	stream, err := js.CreateOrUpdateStream(ctx, natsJs.StreamConfig{
		Name:      topicName,
		Subjects:  []string{topicName},
		Retention: natsJs.WorkQueuePolicy,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create stream %s: %w", topicName, err)
	}

	consumerName := fmt.Sprintf("watermill__%s", topicName)
	_, err = stream.CreateOrUpdateConsumer(ctx, natsJs.ConsumerConfig{
		Name:      consumerName,
		Durable:   consumerName,
		AckPolicy: natsJs.AckExplicitPolicy,
		AckWait:   jetStreamAckWait,
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create consumer %s: %w", consumerName, err)
	}

	var namer jetstream.ConsumerConfigurator
	subscriber, err := jetstream.NewSubscriber(jetstream.SubscriberConfig{
		Conn:                nc,
		AckWaitTimeout:      jetStreamAckWait,
		ResourceInitializer: jetstream.ExistingConsumer(namer, ""),
		Logger:              watermill.NopLogger{},
	})
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("failed to create JetStream subscriber: %w", err)
	}

	return &JetStreamSubscriber{TopicName: topicName, conn: nc, subscriber: subscriber}, nil
}

func (s *JetStreamSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, s.TopicName)
}

func (s *JetStreamSubscriber) Close() error {
	err := s.subscriber.Close()
	s.conn.Close()
	return err
}
