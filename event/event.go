// Package event models externally raised trigger events (validation
// decisions) and their persistence. Every event delivered through the
// gateway is recorded here before it reaches the orchestrator, which gives
// an audit trail and makes duplicate deliveries observable: a re-delivered
// event finds its predecessor already acknowledged.
package event

import (
	"time"

	"github.com/ovenworks/conveyor/id"
)

// Event is a named trigger event addressed to a single workflow instance.
type Event struct {
	ID         id.EventID    `json:"id"`
	Name       string        `json:"name"`
	InstanceID id.InstanceID `json:"instance_id"`
	Payload    []byte        `json:"payload,omitempty"`
	Acked      bool          `json:"acked"`
	CreatedAt  time.Time     `json:"created_at"`
}
