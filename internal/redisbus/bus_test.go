package redisbus

import (
	"context"
	"math/big"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/manager"
	"github.com/algomatic/strategy-manager/pkg/strategies/fee"
)

func TestExecutedEvent(t *testing.T) {
	e := ExecutedEvent(events.ExecuteStrategy{GroupName: "First Strategy", Amount: big.NewInt(99982), Vault: "0xvault"})

	assert.Equal(t, EventStrategyExecuted, e.EventType)
	assert.Equal(t, Source, e.Source)
	_, err := uuid.Parse(e.CorrelationID)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"group_name": "First Strategy", "amount": "99982", "vault": "0xvault"}, e.Payload)
}

func TestGroupCreatedEvent(t *testing.T) {
	e := GroupCreatedEvent(manager.StrategyGroup{
		Name:            "First Strategy",
		HarvestStrategy: fee.NewHarvestAll("0xharvest"),
		Collector:       fee.NewCollector("0xcollector", "0xvault"),
		Vault:           "0xvault",
		Exists:          true,
	})

	assert.Equal(t, EventStrategyGroupCreated, e.EventType)
	assert.Equal(t, "0xharvest", e.Payload["harvest_strategy"])
	assert.Equal(t, "0xcollector", e.Payload["collector"])
	assert.Equal(t, []any{}, e.Payload["farm_strategies"])
}

func TestEventWireFormat(t *testing.T) {
	e := ExecutedEvent(events.ExecuteStrategy{GroupName: "g", Amount: big.NewInt(5), Vault: "0xvault"})
	data, err := e.Marshal()
	require.NoError(t, err)

	got, err := UnmarshalEvent(data)
	require.NoError(t, err)
	assert.Equal(t, e.CorrelationID, got.CorrelationID)
	assert.True(t, e.Timestamp.Equal(got.Timestamp))
	assert.Equal(t, "5", got.Payload["amount"])

	_, err = UnmarshalEvent([]byte(`{"event_type":"x","timestamp":"yesterday"}`))
	require.Error(t, err)
	_, err = UnmarshalEvent([]byte(`{"timestamp":"2026-01-02T03:04:05Z"}`))
	require.Error(t, err)
	_, err = UnmarshalEvent([]byte(`not json`))
	require.Error(t, err)
}

func TestChannelFor(t *testing.T) {
	b := NewBusWithClient(redis.NewClient(&redis.Options{Addr: "127.0.0.1:1"}), "sm", nil)
	defer b.Close()
	assert.Equal(t, "sm:strategy_executed", b.channelFor(EventStrategyExecuted))
}

func TestPublishUnreachable(t *testing.T) {
	b := NewBusWithClient(redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	}), "sm", nil)
	defer b.Close()

	err := b.RecordExecution(context.Background(), events.ExecuteStrategy{GroupName: "g", Amount: big.NewInt(1)})
	require.Error(t, err)
	assert.True(t, strings.HasPrefix(err.Error(), "publishing to sm:strategy_executed"))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "abc", truncate("abc", 5))
	assert.Equal(t, "ab...", truncate("abcdef", 2))
}

// TestPublishSubscribe runs against a live Redis named by SM_TEST_REDIS_ADDR.
func TestPublishSubscribe(t *testing.T) {
	addr := os.Getenv("SM_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("SM_TEST_REDIS_ADDR not set")
	}
	b := NewBus(addr, "", 0, "sm-test-"+uuid.NewString(), nil)
	defer b.Close()
	require.NoError(t, b.HealthCheck(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	received := make(chan *Event, 1)
	done := make(chan error, 1)
	go func() {
		done <- b.Subscribe(ctx, func(ctx context.Context, e *Event) error {
			select {
			case received <- e:
			case <-ctx.Done():
			}
			return nil
		}, EventStrategyExecuted)
	}()

	// Subscription is asynchronous; publish until the subscriber sees one.
	var got *Event
	for got == nil {
		require.NoError(t, b.RecordExecution(ctx, events.ExecuteStrategy{GroupName: "g", Amount: big.NewInt(7), Vault: "0xvault"}))
		select {
		case got = <-received:
		case <-time.After(100 * time.Millisecond):
		case <-ctx.Done():
			t.Fatal("no event received")
		}
	}
	assert.Equal(t, "7", got.Payload["amount"])

	cancel()
	require.NoError(t, <-done)
}
