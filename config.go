package conveyor

import (
	"time"

	"github.com/ovenworks/conveyor/stage"
)

// Config holds the deployment topology for a conveyor system. Every value
// is passed explicitly to the component that needs it; there are no
// process-wide defaults consulted at runtime.
type Config struct {
	// StageEndpoints maps stage names to the URL each stage's activity
	// endpoint is reachable at.
	StageEndpoints map[string]string

	// InvokeTimeout bounds a single activity call to a stage service.
	InvokeTimeout time.Duration

	// Brokers is the list of Kafka seed brokers for the status event feed.
	Brokers []string

	// StatusTopic is the topic stage services publish status events on.
	StatusTopic string

	// ConsumerGroup is the reconciler's Kafka consumer group.
	ConsumerGroup string
}

// DefaultConfig returns a Config with sensible defaults for local
// development: the conventional stage ports and a local broker.
func DefaultConfig() Config {
	return Config{
		StageEndpoints: map[string]string{
			"order":   "http://localhost:8002/order",
			"cook":    "http://localhost:8003/cook",
			"deliver": "http://localhost:8004/deliver",
		},
		InvokeTimeout: 30 * time.Second,
		Brokers:       []string{"localhost:9092"},
		StatusTopic:   "orders",
		ConsumerGroup: "conveyor-reconciler",
	}
}

// Stages builds an HTTP-backed stage registry from the configured
// endpoints. Additional options apply to every stage.
func (c Config) Stages(opts ...stage.Option) *stage.Registry {
	reg := stage.NewRegistry()
	for name, url := range c.StageEndpoints {
		reg.Register(stage.NewHTTPStage(name, url, opts...))
	}
	return reg
}
