package redisbus

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/algomatic/strategy-manager/pkg/events"
	"github.com/algomatic/strategy-manager/pkg/manager"
)

// Event type constants.
const (
	EventStrategyExecuted     = "strategy_executed"
	EventStrategyGroupCreated = "strategy_group_created"
)

// Source identifies this service on the bus.
const Source = "strategy-manager"

// Event represents a message flowing through the Redis bus.
type Event struct {
	EventType     string         `json:"event_type"`
	Payload       map[string]any `json:"payload"`
	Source        string         `json:"source"`
	Timestamp     time.Time      `json:"timestamp"`
	CorrelationID string         `json:"correlation_id"`
}

// NewEvent creates an event stamped now with a fresh correlation ID.
func NewEvent(eventType string, payload map[string]any) *Event {
	return &Event{
		EventType:     eventType,
		Payload:       payload,
		Source:        Source,
		Timestamp:     time.Now().UTC(),
		CorrelationID: uuid.NewString(),
	}
}

// ExecutedEvent builds the bus event for a group execution. The amount is
// carried as decimal text.
func ExecutedEvent(ev events.ExecuteStrategy) *Event {
	amount := "0"
	if ev.Amount != nil {
		amount = ev.Amount.String()
	}
	return NewEvent(EventStrategyExecuted, map[string]any{
		"group_name": ev.GroupName,
		"amount":     amount,
		"vault":      ev.Vault.String(),
	})
}

// GroupCreatedEvent builds the bus event for a new strategy group.
func GroupCreatedEvent(g manager.StrategyGroup) *Event {
	farms := make([]any, 0, len(g.FarmStrategies))
	for _, addr := range g.FarmStrategyAddresses() {
		farms = append(farms, addr.String())
	}
	payload := map[string]any{
		"group_name":      g.Name,
		"farm_strategies": farms,
		"vault":           g.Vault.String(),
	}
	if g.HarvestStrategy != nil {
		payload["harvest_strategy"] = g.HarvestStrategy.Address().String()
	}
	if g.Collector != nil {
		payload["collector"] = g.Collector.Address().String()
	}
	return NewEvent(EventStrategyGroupCreated, payload)
}

// Marshal serializes an event to JSON.
func (e *Event) Marshal() ([]byte, error) {
	wire := map[string]any{
		"event_type":     e.EventType,
		"payload":        e.Payload,
		"source":         e.Source,
		"timestamp":      e.Timestamp.Format(time.RFC3339Nano),
		"correlation_id": e.CorrelationID,
	}
	return json.Marshal(wire)
}

// UnmarshalEvent deserializes an event from JSON bytes.
func UnmarshalEvent(data []byte) (*Event, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshalling event JSON: %w", err)
	}

	eventType, _ := raw["event_type"].(string)
	if eventType == "" {
		return nil, fmt.Errorf("event has no event_type")
	}
	source, _ := raw["source"].(string)
	correlationID, _ := raw["correlation_id"].(string)

	tsStr, _ := raw["timestamp"].(string)
	ts, err := parseTimestamp(tsStr)
	if err != nil {
		return nil, fmt.Errorf("parsing event timestamp: %w", err)
	}

	payload, _ := raw["payload"].(map[string]any)

	return &Event{
		EventType:     eventType,
		Payload:       payload,
		Source:        source,
		Timestamp:     ts,
		CorrelationID: correlationID,
	}, nil
}

// parseTimestamp tries multiple timestamp formats.
func parseTimestamp(s string) (time.Time, error) {
	formats := []string{
		time.RFC3339Nano,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
	}
	for _, f := range formats {
		t, err := time.Parse(f, s)
		if err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp format: %s", s)
}
