package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/Himanshusheo/TuneForge-Music-App/internal/core/domain"
)

const DefaultChannel = "tuneforge.events"

// Publisher sends events as JSON on a pub/sub channel. Subscribers that are
// not connected miss them.
type Publisher struct {
	rdb     *redis.Client
	channel string
}

func NewPublisher(rdb *redis.Client, channel string) *Publisher {
	if channel == "" {
		channel = DefaultChannel
	}
	return &Publisher{rdb: rdb, channel: channel}
}

func (p *Publisher) Publish(ctx context.Context, ev domain.Event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("redis: failed to encode event: %w", err)
	}
	if err := p.rdb.Publish(ctx, p.channel, string(b)).Err(); err != nil {
		return unavailable("publish event", err)
	}
	return nil
}
