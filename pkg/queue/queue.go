// Package queue is a Redis list backed job queue with delayed retries
// and a dead letter list. The advisory pipeline runs it in
// producer-consumer mode; the log collector uses a publish-only
// instance under its own key prefix.
package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Job consumes one message type pulled off the queue.
type Job interface {
	// Name identifies the job in logs.
	Name() string
	// Type is the message type the job handles.
	Type() string
	Handle(ctx context.Context, payload interface{}) error
}

// QueueConfig sizes the worker pool and retry policy. QueueSize is a
// soft cap; Enqueue refuses once the backlog reaches it.
type QueueConfig struct {
	Workers    int
	QueueSize  int
	RetryLimit int
	RetryDelay time.Duration
}

// Message is the wire form of one queued job.
type Message struct {
	ID        string      `json:"id"`
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Attempts  int         `json:"attempts"`
	Timestamp time.Time   `json:"ts"`
}

// ParsePayload coerces a job payload into T. A payload arrives either
// as the value passed to Enqueue (same process) or as generic decoded
// JSON after the Redis round trip.
func ParsePayload[T any](payload interface{}) (*T, error) {
	switch p := payload.(type) {
	case *T:
		return p, nil
	case T:
		return &p, nil
	case json.RawMessage:
		var out T
		if err := json.Unmarshal(p, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	case map[string]interface{}, []interface{}:
		raw, err := json.Marshal(p)
		if err != nil {
			return nil, fmt.Errorf("encode payload: %w", err)
		}
		var out T
		if err := json.Unmarshal(raw, &out); err != nil {
			return nil, fmt.Errorf("decode payload: %w", err)
		}
		return &out, nil
	default:
		return nil, fmt.Errorf("unsupported payload type %T", payload)
	}
}
