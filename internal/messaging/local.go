package messaging

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type MemoryPublisher struct {
	topicName string
	channel   *gochannel.GoChannel
}

type MemorySubscriber struct {
	topicName string
	channel   *gochannel.GoChannel
}

// NewMemoryChannel is shared by the publisher and subscriber of a topic.
func NewMemoryChannel() *gochannel.GoChannel {
	return gochannel.NewGoChannel(gochannel.Config{
		Persistent: true,
	}, watermill.NopLogger{})
}

func NewMemoryPublisher(channel *gochannel.GoChannel, topicName string) *MemoryPublisher {
	return &MemoryPublisher{topicName: topicName, channel: channel}
}

func NewMemorySubscriber(channel *gochannel.GoChannel, topicName string) *MemorySubscriber {
	return &MemorySubscriber{topicName: topicName, channel: channel}
}

func (p *MemoryPublisher) Publish(messages ...*message.Message) error {
	return p.channel.Publish(p.topicName, messages...)
}

func (p *MemoryPublisher) Close() error {
	return p.channel.Close()
}

func (s *MemorySubscriber) Subscribe(ctx context.Context) (<-chan *message.Message, error) {
	return s.channel.Subscribe(ctx, s.topicName)
}

func (s *MemorySubscriber) Close() error {
	return s.channel.Close()
}
