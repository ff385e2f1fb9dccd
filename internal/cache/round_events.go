package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/result-portal/internal/config"
)

// RoundEventBus announces finalized and changed rounds to every instance over
// Redis PubSub.
type RoundEventBus struct {
	rdb *redis.Client
	log zerolog.Logger
}

// NewRoundEventBus creates a new RoundEventBus.
func NewRoundEventBus(rdb *redis.Client, log zerolog.Logger) *RoundEventBus {
	return &RoundEventBus{
		rdb: rdb,
		log: log.With().Str("component", "round_event_bus").Logger(),
	}
}

// PublishFinalized announces that roundID was finalized.
func (b *RoundEventBus) PublishFinalized(ctx context.Context, roundID string) error {
	return b.publish(ctx, config.CacheKey.RoundFinalizedChannel(), roundID)
}

// PublishChanged announces that a record of roundID was written.
func (b *RoundEventBus) PublishChanged(ctx context.Context, roundID string) error {
	return b.publish(ctx, config.CacheKey.RoundChangedChannel(), roundID)
}

func (b *RoundEventBus) publish(ctx context.Context, channel, roundID string) error {
	if err := b.rdb.Publish(ctx, channel, roundID).Err(); err != nil {
		return fmt.Errorf("publish %s: %w", channel, err)
	}
	return nil
}

// Listen invalidates target for every finalized or changed round until ctx is
// cancelled. Instances with a process-local cache run this so that writes on
// other instances reach them.
func (b *RoundEventBus) Listen(ctx context.Context, target PopulationCache) {
	sub := b.rdb.Subscribe(ctx,
		config.CacheKey.RoundFinalizedChannel(),
		config.CacheKey.RoundChangedChannel(),
	)
	defer sub.Close()

	b.log.Info().Msg("Listening for round events")

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if err := target.Invalidate(ctx, msg.Payload); err != nil {
				b.log.Warn().Err(err).Str("round_id", msg.Payload).Msg("Invalidate population failed")
				continue
			}
			b.log.Debug().
				Str("channel", msg.Channel).
				Str("round_id", msg.Payload).
				Msg("Population invalidated")
		}
	}
}
