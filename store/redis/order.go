package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/order"
)

// GetOrder retrieves the record for an order.
func (s *Store) GetOrder(ctx context.Context, orderID string) (order.Record, error) {
	raw, err := s.client.Get(ctx, orderKey(orderID)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, conveyor.ErrOrderNotFound
		}
		return nil, fmt.Errorf("conveyor/redis: get order: %w", err)
	}

	var rec order.Record
	if err := json.Unmarshal([]byte(raw), &rec); err != nil {
		return nil, fmt.Errorf("conveyor/redis: decode order %q: %w", orderID, err)
	}
	return rec, nil
}

// PutOrder writes the record for an order, replacing any previous one.
// Records carry arbitrary stage-supplied fields, so they are stored as a
// single JSON string rather than a Hash.
func (s *Store) PutOrder(ctx context.Context, orderID string, rec order.Record) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("conveyor/redis: encode order %q: %w", orderID, err)
	}
	if err := s.client.Set(ctx, orderKey(orderID), raw, 0).Err(); err != nil {
		return fmt.Errorf("conveyor/redis: put order: %w", err)
	}
	return nil
}

// DeleteOrder removes the record for an order. Deleting an absent key is
// not an error.
func (s *Store) DeleteOrder(ctx context.Context, orderID string) error {
	if err := s.client.Del(ctx, orderKey(orderID)).Err(); err != nil {
		return fmt.Errorf("conveyor/redis: delete order: %w", err)
	}
	return nil
}
