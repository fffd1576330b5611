package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const rideFeedPrefix = "ride-feed:"

// FeedBroker carries "this ride changed" signals to the users following it.
// Payloads are ride ids; subscribers reload the record themselves.
type FeedBroker struct {
	client *redis.Client
}

// NewFeedBroker creates a new FeedBroker.
func NewFeedBroker(client *redis.Client) *FeedBroker {
	return &FeedBroker{client: client}
}

// Publish signals that rideID changed to every listed user.
func (b *FeedBroker) Publish(ctx context.Context, rideID string, userIDs ...string) error {
	pipe := b.client.Pipeline()
	for _, id := range userIDs {
		if id == "" {
			continue
		}
		pipe.Publish(ctx, rideFeedPrefix+id, rideID)
	}
	_, err := pipe.Exec(ctx)
	return err
}

// Subscribe returns the ride ids published for userID. The channel is closed
// when ctx ends.
func (b *FeedBroker) Subscribe(ctx context.Context, userID string) (<-chan string, error) {
	sub := b.client.Subscribe(ctx, rideFeedPrefix+userID)
	// Wait for the subscription to be confirmed so no publish is missed.
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, err
	}

	out := make(chan string, 1)
	go func() {
		defer close(out)
		defer sub.Close()

		msgs := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				select {
				case out <- msg.Payload:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}
