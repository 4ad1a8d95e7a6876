package redisbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/manager"
)

// Handler processes an incoming event.
type Handler func(ctx context.Context, event *Event) error

// Bus wraps a Redis client for pub/sub communication.
type Bus struct {
	client        redis.UniversalClient
	channelPrefix string
	logger        *slog.Logger
}

// NewBus creates a new Redis pub/sub bus.
func NewBus(addr, password string, db int, channelPrefix string, logger *slog.Logger) *Bus {
	return NewBusWithClient(redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	}), channelPrefix, logger)
}

// NewBusWithClient creates a bus over an existing client.
func NewBusWithClient(client redis.UniversalClient, channelPrefix string, logger *slog.Logger) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{
		client:        client,
		channelPrefix: channelPrefix,
		logger:        logger,
	}
}

// HealthCheck verifies Redis connectivity.
func (b *Bus) HealthCheck(ctx context.Context) error {
	return b.client.Ping(ctx).Err()
}

// Close shuts down the Redis client.
func (b *Bus) Close() error {
	return b.client.Close()
}

// Publish sends an event to the appropriate Redis channel.
func (b *Bus) Publish(ctx context.Context, event *Event) error {
	channel := b.channelFor(event.EventType)
	data, err := event.Marshal()
	if err != nil {
		return fmt.Errorf("marshalling event: %w", err)
	}

	if err := b.client.Publish(ctx, channel, data).Err(); err != nil {
		return fmt.Errorf("publishing to %s: %w", channel, err)
	}

	b.logger.Debug("Published event",
		"event_type", event.EventType,
		"channel", channel,
		"correlation_id", event.CorrelationID,
	)
	return nil
}

// RecordExecution publishes ev. It implements service.ExecutionSink.
func (b *Bus) RecordExecution(ctx context.Context, ev events.ExecuteStrategy) error {
	return b.Publish(ctx, ExecutedEvent(ev))
}

// SaveGroup publishes the creation of g. It implements service.GroupSink.
func (b *Bus) SaveGroup(ctx context.Context, g manager.StrategyGroup) error {
	return b.Publish(ctx, GroupCreatedEvent(g))
}

// Subscribe listens for events of the given types and calls handler for
// each. Blocks until ctx is cancelled. Returns nil on clean shutdown.
func (b *Bus) Subscribe(ctx context.Context, handler Handler, eventTypes ...string) error {
	channels := make([]string, len(eventTypes))
	for i, et := range eventTypes {
		channels[i] = b.channelFor(et)
	}
	pubsub := b.client.Subscribe(ctx, channels...)
	defer pubsub.Close()

	b.logger.Info("Subscribed to Redis channels", "channels", channels)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Unsubscribed from Redis channels", "channels", channels)
			return nil

		case msg, ok := <-ch:
			if !ok {
				b.logger.Warn("Redis subscription channel closed", "channels", channels)
				return nil
			}

			event, err := UnmarshalEvent([]byte(msg.Payload))
			if err != nil {
				b.logger.Error("Failed to unmarshal event",
					"channel", msg.Channel,
					"error", err,
					"payload_preview", truncate(msg.Payload, 200),
				)
				continue
			}

			b.logger.Debug("Received event",
				"event_type", event.EventType,
				"correlation_id", event.CorrelationID,
				"source", event.Source,
			)

			if err := handler(ctx, event); err != nil {
				b.logger.Error("Handler failed",
					"event_type", event.EventType,
					"correlation_id", event.CorrelationID,
					"error", err,
				)
			}
		}
	}
}

// channelFor maps an event type to a Redis channel name.
func (b *Bus) channelFor(eventType string) string {
	return b.channelPrefix + ":" + eventType
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
