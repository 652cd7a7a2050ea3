package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/event"
	"github.com/ovenworks/conveyor/id"
)

// PublishEvent persists a new trigger event and appends it to its
// instance's index.
func (s *Store) PublishEvent(ctx context.Context, evt *event.Event) error {
	eID := evt.ID.String()
	key := eventKey(eID)

	acked := "0"
	if evt.Acked {
		acked = "1"
	}

	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key,
		"id", eID,
		"name", evt.Name,
		"instance_id", evt.InstanceID.String(),
		"payload", string(evt.Payload),
		"acked", acked,
		"created_at", evt.CreatedAt.Format(time.RFC3339Nano),
	)
	pipe.RPush(ctx, eventIndexKey(evt.InstanceID.String()), eID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conveyor/redis: publish event: %w", err)
	}
	return nil
}

// ListEvents returns all events addressed to an instance, oldest first.
func (s *Store) ListEvents(ctx context.Context, instanceID id.InstanceID) ([]*event.Event, error) {
	ids, err := s.client.LRange(ctx, eventIndexKey(instanceID.String()), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: list events lrange: %w", err)
	}

	var events []*event.Event
	for _, eID := range ids {
		vals, getErr := s.client.HGetAll(ctx, eventKey(eID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		evt, convErr := mapToEvent(vals)
		if convErr != nil {
			continue
		}
		events = append(events, evt)
	}
	return events, nil
}

// AckEvent acknowledges an event, marking it as consumed.
func (s *Store) AckEvent(ctx context.Context, eventID id.EventID) error {
	key := eventKey(eventID.String())

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conveyor/redis: ack event exists: %w", err)
	}
	if exists == 0 {
		return conveyor.ErrEventNotFound
	}

	if err := s.client.HSet(ctx, key, "acked", "1").Err(); err != nil {
		return fmt.Errorf("conveyor/redis: ack event: %w", err)
	}
	return nil
}

func mapToEvent(m map[string]string) (*event.Event, error) {
	eID, err := id.ParseEventID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: parse event id: %w", err)
	}
	iID, err := id.ParseInstanceID(m["instance_id"])
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: parse event instance id: %w", err)
	}

	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"]) //nolint:errcheck // best-effort parse from trusted Redis data

	return &event.Event{
		ID:         eID,
		Name:       m["name"],
		InstanceID: iID,
		Payload:    []byte(m["payload"]),
		Acked:      m["acked"] == "1",
		CreatedAt:  createdAt,
	}, nil
}
