package reconcile

import (
	"context"
	"io"

	"github.com/ovenworks/conveyor/order"
)

// Source yields order-status events from some transport. Next blocks
// until an event is available, the context is cancelled, or the source
// is exhausted, in which case it returns io.EOF.
type Source interface {
	Next(ctx context.Context) (order.Record, error)
}

// ChannelSource is an in-process Source backed by a channel, used in
// tests and single-process deployments where stage services publish
// status events directly.
type ChannelSource struct {
	ch chan order.Record
}

// NewChannelSource creates a channel source with the given buffer size.
func NewChannelSource(buffer int) *ChannelSource {
	return &ChannelSource{ch: make(chan order.Record, buffer)}
}

// Send publishes one status event. It blocks when the buffer is full.
func (s *ChannelSource) Send(evt order.Record) {
	s.ch <- evt
}

// Close marks the source exhausted. Send must not be called afterwards.
func (s *ChannelSource) Close() {
	close(s.ch)
}

// Next implements Source.
func (s *ChannelSource) Next(ctx context.Context) (order.Record, error) {
	select {
	case evt, ok := <-s.ch:
		if !ok {
			return nil, io.EOF
		}
		return evt, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
