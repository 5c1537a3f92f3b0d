package notify

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const relayChannelPrefix = "listing_events:"

// RelayChannel is the Redis channel carrying the events of a listing.
func RelayChannel(listingID uint64) string {
	return relayChannelPrefix + strconv.FormatUint(listingID, 10)
}

// RedisRelay spreads events across API instances.  Broadcast publishes to
// Redis; Run pattern-subscribes to every listing channel and feeds the
// local hub, so each instance serves its own websocket watchers.
type RedisRelay struct {
	rdb *redis.Client
	hub *Hub
	log *zap.Logger
}

// NewRedisRelay wires rdb to hub.
func NewRedisRelay(rdb *redis.Client, hub *Hub, log *zap.Logger) *RedisRelay {
	if log == nil {
		log = zap.NewNop()
	}
	return &RedisRelay{rdb: rdb, hub: hub, log: log}
}

// Broadcast publishes ev on the listing's channel.
func (r *RedisRelay) Broadcast(ctx context.Context, ev Event) error {
	body, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	return r.rdb.Publish(ctx, RelayChannel(ev.ListingID), body).Err()
}

// Run relays messages from Redis into the hub until ctx is cancelled.
func (r *RedisRelay) Run(ctx context.Context) error {
	ps := r.rdb.PSubscribe(ctx, relayChannelPrefix+"*")
	defer ps.Close()
	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("psubscribe: %w", err)
	}
	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			r.handle(msg.Channel, msg.Payload)
		}
	}
}

func (r *RedisRelay) handle(channel, payload string) {
	id, err := strconv.ParseUint(strings.TrimPrefix(channel, relayChannelPrefix), 10, 64)
	if err != nil {
		r.log.Warn("relay: bad channel", zap.String("channel", channel))
		return
	}
	ev, err := DecodeEvent([]byte(payload))
	if err != nil {
		r.log.Warn("relay: bad payload", zap.String("channel", channel), zap.Error(err))
		return
	}
	r.hub.Publish(id, ev)
}
