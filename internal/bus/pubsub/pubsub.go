// Package pubsub implements the event bus on Google Cloud Pub/Sub.
package pubsub

import (
	"context"
	"fmt"

	gcppubsub "cloud.google.com/go/pubsub"

	"github.com/neuralnyx/domaincrawler/internal/bus"
)

// Publisher wraps a Pub/Sub topic.
type Publisher struct {
	topic *gcppubsub.Topic
}

// NewPublisher verifies the topic exists and returns a Publisher.
// Authentication uses Application Default Credentials.
func NewPublisher(ctx context.Context, client *gcppubsub.Client, topicID string) (*Publisher, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	topic := client.Topic(topicID)
	exists, err := topic.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check topic %q: %w", topicID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub topic %q does not exist", topicID)
	}
	return &Publisher{topic: topic}, nil
}

// Publish sends the message and blocks until the server acknowledges it, so
// the caller can propagate publish failures to the batch processor.
func (p *Publisher) Publish(ctx context.Context, data []byte, attributes map[string]string) (string, error) {
	result := p.topic.Publish(ctx, &gcppubsub.Message{
		Data:       data,
		Attributes: attributes,
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Stop flushes outstanding publishes.
func (p *Publisher) Stop() {
	p.topic.Stop()
}

// Subscriber wraps a Pub/Sub subscription.
type Subscriber struct {
	sub *gcppubsub.Subscription
}

// NewSubscriber verifies the subscription exists and returns a Subscriber.
func NewSubscriber(ctx context.Context, client *gcppubsub.Client, subscriptionID string) (*Subscriber, error) {
	if client == nil {
		return nil, fmt.Errorf("pubsub client is required")
	}
	sub := client.Subscription(subscriptionID)
	exists, err := sub.Exists(ctx)
	if err != nil {
		return nil, fmt.Errorf("check subscription %q: %w", subscriptionID, err)
	}
	if !exists {
		return nil, fmt.Errorf("pubsub subscription %q does not exist", subscriptionID)
	}
	return &Subscriber{sub: sub}, nil
}

// Receive delivers messages to the handler. A handler error nacks the
// message so Pub/Sub redelivers it; success acks.
func (s *Subscriber) Receive(ctx context.Context, handler bus.Handler) error {
	err := s.sub.Receive(ctx, func(ctx context.Context, msg *gcppubsub.Message) {
		delivered := bus.Message{
			ID:         msg.ID,
			Data:       msg.Data,
			Attributes: msg.Attributes,
		}
		if err := handler(ctx, delivered); err != nil {
			msg.Nack()
			return
		}
		msg.Ack()
	})
	if err != nil {
		return fmt.Errorf("receive: %w", err)
	}
	return nil
}
