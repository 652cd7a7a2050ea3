package workflow

import (
	"context"
	"time"
)

// Emitter receives orchestration lifecycle notifications. Implementations
// must be safe for concurrent use; the orchestrator calls them from many
// order instances at once.
type Emitter interface {
	EmitOrderStarted(ctx context.Context, in *Instance)
	EmitStageCompleted(ctx context.Context, in *Instance, stageName string, elapsed time.Duration)
	EmitStageFailed(ctx context.Context, in *Instance, stageName string, err error)
	EmitValidationReceived(ctx context.Context, in *Instance, approved bool)
	EmitOrderCompleted(ctx context.Context, in *Instance, elapsed time.Duration)
	EmitOrderFailed(ctx context.Context, in *Instance, err error)
}

// NopEmitter is an Emitter that ignores every notification.
type NopEmitter struct{}

func (NopEmitter) EmitOrderStarted(context.Context, *Instance)                          {}
func (NopEmitter) EmitStageCompleted(context.Context, *Instance, string, time.Duration) {}
func (NopEmitter) EmitStageFailed(context.Context, *Instance, string, error)            {}
func (NopEmitter) EmitValidationReceived(context.Context, *Instance, bool)              {}
func (NopEmitter) EmitOrderCompleted(context.Context, *Instance, time.Duration)         {}
func (NopEmitter) EmitOrderFailed(context.Context, *Instance, error)                    {}
