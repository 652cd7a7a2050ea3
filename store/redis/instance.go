package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/ovenworks/conveyor"
	"github.com/ovenworks/conveyor/id"
	"github.com/ovenworks/conveyor/stage"
	"github.com/ovenworks/conveyor/workflow"
)

// CreateInstance persists a new workflow instance.
func (s *Store) CreateInstance(ctx context.Context, in *workflow.Instance) error {
	iID := in.ID.String()
	key := instanceKey(iID)

	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conveyor/redis: create instance exists: %w", err)
	}
	if exists > 0 {
		return conveyor.ErrDuplicateInstance
	}

	m, err := instanceToMap(in)
	if err != nil {
		return err
	}
	pipe := s.client.TxPipeline()
	pipe.HSet(ctx, key, m)
	pipe.SAdd(ctx, instanceIDsKey, iID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conveyor/redis: create instance: %w", err)
	}
	return nil
}

// GetInstance retrieves a workflow instance by ID.
func (s *Store) GetInstance(ctx context.Context, instanceID id.InstanceID) (*workflow.Instance, error) {
	key := instanceKey(instanceID.String())
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: get instance: %w", err)
	}
	if len(vals) == 0 {
		return nil, conveyor.ErrInstanceNotFound
	}
	return mapToInstance(vals)
}

// UpdateInstance persists changes to an existing workflow instance.
func (s *Store) UpdateInstance(ctx context.Context, in *workflow.Instance) error {
	key := instanceKey(in.ID.String())
	exists, err := s.client.Exists(ctx, key).Result()
	if err != nil {
		return fmt.Errorf("conveyor/redis: update instance exists: %w", err)
	}
	if exists == 0 {
		return conveyor.ErrInstanceNotFound
	}

	m, err := instanceToMap(in)
	if err != nil {
		return err
	}
	// Cleared fields must not survive from the previous write.
	pipe := s.client.TxPipeline()
	pipe.Del(ctx, key)
	pipe.HSet(ctx, key, m)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("conveyor/redis: update instance: %w", err)
	}
	return nil
}

// ListInstances returns workflow instances matching the given options,
// oldest first.
func (s *Store) ListInstances(ctx context.Context, opts workflow.ListOpts) ([]*workflow.Instance, error) {
	ids, err := s.client.SMembers(ctx, instanceIDsKey).Result()
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: list instances smembers: %w", err)
	}

	var instances []*workflow.Instance
	for _, iID := range ids {
		vals, getErr := s.client.HGetAll(ctx, instanceKey(iID)).Result()
		if getErr != nil || len(vals) == 0 {
			continue
		}
		in, convErr := mapToInstance(vals)
		if convErr != nil {
			continue
		}
		if opts.State != "" && in.State != opts.State {
			continue
		}
		instances = append(instances, in)
	}

	sort.Slice(instances, func(i, j int) bool {
		if instances[i].CreatedAt.Equal(instances[j].CreatedAt) {
			return instances[i].ID < instances[j].ID
		}
		return instances[i].CreatedAt.Before(instances[j].CreatedAt)
	})
	return instances, nil
}

// ── helpers ──

func instanceToMap(in *workflow.Instance) (map[string]interface{}, error) {
	input, err := json.Marshal(in.Input)
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: encode instance input: %w", err)
	}
	history, err := json.Marshal(in.History)
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: encode instance history: %w", err)
	}
	output, err := json.Marshal(in.Output)
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: encode instance output: %w", err)
	}

	m := map[string]interface{}{
		"id":          in.ID.String(),
		"order_id":    in.OrderID,
		"state":       string(in.State),
		"waiting_for": in.WaitingFor,
		"epoch":       strconv.FormatInt(in.Epoch, 10),
		"input":       string(input),
		"history":     string(history),
		"output":      string(output),
		"error":       in.Error,
		"created_at":  in.CreatedAt.Format(time.RFC3339Nano),
		"updated_at":  in.UpdatedAt.Format(time.RFC3339Nano),
	}
	if in.Paused {
		m["paused"] = "1"
	}
	if in.CompletedAt != nil {
		m["completed_at"] = in.CompletedAt.Format(time.RFC3339Nano)
	}
	return m, nil
}

func mapToInstance(m map[string]string) (*workflow.Instance, error) {
	iID, err := id.ParseInstanceID(m["id"])
	if err != nil {
		return nil, fmt.Errorf("conveyor/redis: parse instance id: %w", err)
	}

	epoch, _ := strconv.ParseInt(m["epoch"], 10, 64)
	createdAt, _ := time.Parse(time.RFC3339Nano, m["created_at"])
	updatedAt, _ := time.Parse(time.RFC3339Nano, m["updated_at"])

	in := &workflow.Instance{
		ID:         iID,
		OrderID:    m["order_id"],
		State:      workflow.State(m["state"]),
		Paused:     m["paused"] == "1",
		WaitingFor: m["waiting_for"],
		Epoch:      epoch,
		Error:      m["error"],
		CreatedAt:  createdAt,
		UpdatedAt:  updatedAt,
	}

	if v := m["input"]; v != "" && v != "null" {
		var p stage.Payload
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("conveyor/redis: decode instance input: %w", err)
		}
		in.Input = p
	}
	if v := m["history"]; v != "" && v != "null" {
		var h []workflow.StageResult
		if err := json.Unmarshal([]byte(v), &h); err != nil {
			return nil, fmt.Errorf("conveyor/redis: decode instance history: %w", err)
		}
		in.History = h
	}
	if v := m["output"]; v != "" && v != "null" {
		var p stage.Payload
		if err := json.Unmarshal([]byte(v), &p); err != nil {
			return nil, fmt.Errorf("conveyor/redis: decode instance output: %w", err)
		}
		in.Output = p
	}
	if v := m["completed_at"]; v != "" {
		t, _ := time.Parse(time.RFC3339Nano, v)
		in.CompletedAt = &t
	}
	return in, nil
}
