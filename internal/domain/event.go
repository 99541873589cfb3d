package domain

import (
	"context"
	"time"
)

// RawEvent is an observation message as read from the source topic.
type RawEvent struct {
	Key       []byte
	Value     []byte
	Headers   map[string]string
	Topic     string
	Partition int
	Offset    int64
	Timestamp time.Time
	// Commit acknowledges the message. Nil when the source has no offsets.
	Commit func(ctx context.Context) error
}

// OutputEvent is a serialized message ready for the sink topic.
type OutputEvent struct {
	Key     []byte
	Value   []byte
	Headers map[string]string
}

// ScoredObservation is the streamed form of an Assessment. ObservationID
// echoes the source message key.
type ScoredObservation struct {
	ObservationID string `json:"observation_id,omitempty"`
	Assessment
	ScoredAt time.Time `json:"scored_at"`
}
