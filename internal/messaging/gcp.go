package messaging

import (
	"context"
	"fmt"

	"figures/internal/models"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-googlecloud/pkg/googlecloud"
	"github.com/ThreeDotsLabs/watermill/message"
)

type GCPPublisher struct {
	TopicName string
	publisher *googlecloud.Publisher
}

func NewGCPPublisher(config *models.PubSubConfiguration, topicName string) (*GCPPublisher, error) {
	publisher, err := googlecloud.NewPublisher(googlecloud.PublisherConfig{
		ProjectID: config.ProjectID,
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub publisher: %w", err)
	}

	return &GCPPublisher{TopicName: topicName, publisher: publisher}, nil
}

func (p *GCPPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.TopicName, messages...)
}

func (p *GCPPublisher) Close() error {
	return p.publisher.Close()
}

type GCPSubscriber struct {
	TopicName  string
	subscriber *googlecloud.Subscriber
}

// NewGCPSubscriber attaches to an existing subscription named topic + suffix.
func NewGCPSubscriber(config *models.PubSubConfiguration, topicName string) (*GCPSubscriber, error) {
	subscriber, err := googlecloud.NewSubscriber(
		googlecloud.SubscriberConfig{
			ProjectID: config.ProjectID,
			GenerateSubscriptionName: func(topic string) string {
				return topic + config.SubscriptionSuffix
			},
			DoNotCreateSubscriptionIfMissing: true,
		},
		watermill.NopLogger{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Pub/Sub subscriber: %w", err)
	}

	return &GCPSubscriber{TopicName: topicName, subscriber: subscriber}, nil
}

func (s *GCPSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, s.TopicName)
}

func (s *GCPSubscriber) Close() error {
	return s.subscriber.Close()
}
