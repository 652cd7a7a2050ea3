package reconcile

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kgo"

	"github.com/ovenworks/conveyor/order"
)

// KafkaSource consumes order-status events from a Kafka topic. Stage
// services publish their status updates there; the reconciler folds them
// into the order store in consumption order, which the merge semantics
// make safe to interleave with redeliveries.
type KafkaSource struct {
	client  *kgo.Client
	logger  *slog.Logger
	pending []*kgo.Record
}

// NewKafkaSource connects a consumer-group client to the status topic.
func NewKafkaSource(brokers []string, topic, group string, logger *slog.Logger) (*KafkaSource, error) {
	if logger == nil {
		logger = slog.Default()
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.BlockRebalanceOnPoll(),
	)
	if err != nil {
		return nil, fmt.Errorf("reconcile: kafka client: %w", err)
	}
	return &KafkaSource{client: client, logger: logger}, nil
}

// Next implements Source. Malformed records are logged and skipped;
// the broker has already accepted them, so there is nowhere to bounce
// them back to.
func (s *KafkaSource) Next(ctx context.Context) (order.Record, error) {
	for {
		for len(s.pending) > 0 {
			rec := s.pending[0]
			s.pending = s.pending[1:]

			var evt order.Record
			if err := json.Unmarshal(rec.Value, &evt); err != nil {
				s.logger.Warn("skipping malformed status event",
					slog.String("topic", rec.Topic),
					slog.Int64("offset", rec.Offset),
					slog.String("error", err.Error()),
				)
				continue
			}
			return evt, nil
		}

		fetches := s.client.PollFetches(ctx)
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if errs := fetches.Errors(); len(errs) > 0 {
			return nil, fmt.Errorf("reconcile: kafka fetch %s: %w", errs[0].Topic, errs[0].Err)
		}
		fetches.EachRecord(func(rec *kgo.Record) {
			s.pending = append(s.pending, rec)
		})
		s.client.AllowRebalance()
	}
}

// Close releases the Kafka client.
func (s *KafkaSource) Close() {
	s.client.Close()
}
