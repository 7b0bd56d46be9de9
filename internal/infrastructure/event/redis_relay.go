package event

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/printdesk/backend/internal/domain/shared"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	// DefaultRelayChannel carries job events between instances
	DefaultRelayChannel = "printdesk:events"
	relayPublishTimeout = 2 * time.Second
)

type relayedKey struct{}

// channelPublisher is the part of a redis client the relay publishes through
type channelPublisher interface {
	Publish(ctx context.Context, channel string, message any) *redis.IntCmd
}

// RedisRelay mirrors local bus events onto a Redis channel and replays
// events from other instances onto the local bus.
type RedisRelay struct {
	client    *redis.Client
	publisher channelPublisher
	local     shared.EventPublisher
	codec     *Codec
	channel   string
	origin    string
	logger    *zap.Logger
}

// RedisRelayOption configures a RedisRelay
type RedisRelayOption func(*RedisRelay)

// WithRelayChannel sets the Pub/Sub channel name
func WithRelayChannel(channel string) RedisRelayOption {
	return func(r *RedisRelay) {
		if channel != "" {
			r.channel = channel
		}
	}
}

// WithRelayLogger sets the logger
func WithRelayLogger(logger *zap.Logger) RedisRelayOption {
	return func(r *RedisRelay) {
		r.logger = logger
	}
}

// NewRedisRelay creates a relay. The caller owns client.
func NewRedisRelay(client *redis.Client, local shared.EventPublisher, opts ...RedisRelayOption) *RedisRelay {
	r := &RedisRelay{
		client:  client,
		local:   local,
		codec:   NewCodec(),
		channel: DefaultRelayChannel,
		origin:  uuid.NewString(),
		logger:  zap.NewNop(),
	}
	if client != nil {
		r.publisher = client
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Origin identifies this instance on the channel
func (r *RedisRelay) Origin() string {
	return r.origin
}

// Handle implements shared.EventHandler by publishing local events to Redis.
// Events that arrived from Redis are not sent back.
func (r *RedisRelay) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if relayed, _ := ctx.Value(relayedKey{}).(bool); relayed {
		return nil
	}
	data, err := r.codec.Encode(r.origin, evt)
	if err != nil {
		return err
	}

	pubCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), relayPublishTimeout)
	defer cancel()
	if err := r.publisher.Publish(pubCtx, r.channel, data).Err(); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", r.channel, err)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (r *RedisRelay) EventTypes() []string {
	return r.codec.EventTypes()
}

// Run subscribes to the channel and replays remote events until ctx ends
func (r *RedisRelay) Run(ctx context.Context) error {
	pubsub := r.client.Subscribe(ctx, r.channel)
	defer pubsub.Close()

	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", r.channel, err)
	}
	r.logger.Info("Event relay subscribed",
		zap.String("channel", r.channel),
		zap.String("origin", r.origin))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Event relay stopped")
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil
			}
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				r.logger.Warn("Event relay channel closed")
				return nil
			}
			r.receive(ctx, msg.Payload)
		}
	}
}

func (r *RedisRelay) receive(ctx context.Context, payload string) {
	env, evt, err := r.codec.Decode([]byte(payload))
	if err != nil {
		r.logger.Warn("Dropping malformed relay message", zap.Error(err))
		return
	}
	if env.Origin == r.origin {
		return
	}
	r.logger.Debug("Relaying remote event",
		zap.String("event_type", env.Type),
		zap.String("origin", env.Origin))
	_ = r.local.Publish(context.WithValue(ctx, relayedKey{}, true), evt)
}

var _ shared.EventHandler = (*RedisRelay)(nil)
