package redisad

import (
	"context"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

// Events is the change feed: writers publish a collection name, every
// subscriber refetches that collection.
type Events struct {
	c       *redis.Client
	channel string
}

func NewEvents(c *redis.Client, channel string) *Events {
	return &Events{c: c, channel: channel}
}

func (e *Events) Publish(ctx context.Context, collection string) error {
	return e.c.Publish(ctx, e.channel, collection).Err()
}

// Subscribe blocks, calling fn for each message, until ctx is done.
// ready is closed once the subscription is confirmed by the server.
func (e *Events) Subscribe(ctx context.Context, ready chan<- struct{}, fn func(ctx context.Context, collection string)) error {
	sub := e.c.Subscribe(ctx, e.channel)
	defer sub.Close()

	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	if ready != nil {
		close(ready)
	}
	log.Info().Str("channel", e.channel).Msg("change feed subscribed")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			log.Debug().Str("collection", msg.Payload).Msg("change received")
			fn(ctx, msg.Payload)
		}
	}
}
