package messaging

import (
	"context"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-aws/sqs"
	"github.com/ThreeDotsLabs/watermill/message"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
)

// AWSPublisher sends populate tasks to an existing SQS queue.
type AWSPublisher struct {
	QueueName string
	publisher *sqs.Publisher
}

func NewAWSPublisher(ctx context.Context, queueName string) (*AWSPublisher, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	publisher, err := sqs.NewPublisher(sqs.PublisherConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
		Marshaler:                   sqs.DefaultMarshalerUnmarshaler{},
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("unable to create SQS publisher: %w", err)
	}

	return &AWSPublisher{QueueName: queueName, publisher: publisher}, nil
}

func (p *AWSPublisher) Publish(messages ...*message.Message) error {
	return p.publisher.Publish(p.QueueName, messages...)
}

func (p *AWSPublisher) Close() error {
	return p.publisher.Close()
}

type AWSSubscriber struct {
	QueueName  string
	subscriber *sqs.Subscriber
}

func NewAWSSubscriber(ctx context.Context, queueName string) (*AWSSubscriber, error) {
	awsCfg, err := awsConfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load AWS SDK config: %w", err)
	}

	subscriber, err := sqs.NewSubscriber(sqs.SubscriberConfig{
		AWSConfig:                   awsCfg,
		DoNotCreateQueueIfNotExists: true,
	}, watermill.NopLogger{})
	if err != nil {
		return nil, fmt.Errorf("unable to create SQS subscriber: %w", err)
	}

	return &AWSSubscriber{QueueName: queueName, subscriber: subscriber}, nil
}

func (s *AWSSubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.subscriber.Subscribe(ctx, s.QueueName)
}

func (s *AWSSubscriber) Close() error {
	return s.subscriber.Close()
}
