package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
)

// EnvelopeVersion is written on every event so consumers can detect schema changes.
const EnvelopeVersion = 1

// MetadataOrigin names the instance that published an event.
const MetadataOrigin = "origin"

// Event is the envelope cart domain events are published in. The aggregate
// ID is the shopper session and doubles as the partition key.
type Event struct {
	EventID       string            `json:"event_id"`
	EventType     string            `json:"event_type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType string            `json:"aggregate_type"`
	Version       int               `json:"version"`
	Timestamp     time.Time         `json:"timestamp"`
	Source        string            `json:"source"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Data          json.RawMessage   `json:"data"`
	Metadata      map[string]string `json:"metadata,omitempty"`
}

// Option adjusts an event while it is built.
type Option func(*Event)

// WithCorrelationID stamps the request correlation ID. An empty ID is ignored.
func WithCorrelationID(id string) Option {
	return func(e *Event) {
		if id != "" {
			e.CorrelationID = id
		}
	}
}

// WithMetadata sets a metadata entry. Empty values are ignored.
func WithMetadata(key, value string) Option {
	return func(e *Event) {
		if value == "" {
			return
		}
		if e.Metadata == nil {
			e.Metadata = make(map[string]string)
		}
		e.Metadata[key] = value
	}
}

// WithOrigin records the publishing instance.
func WithOrigin(instanceID string) Option {
	return WithMetadata(MetadataOrigin, instanceID)
}

// NewEvent builds an event with a fresh ID and a UTC timestamp.
func NewEvent(eventType, aggregateID, aggregateType, source string, data any, opts ...Option) (*Event, error) {
	payload, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	e := &Event{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		AggregateID:   aggregateID,
		AggregateType: aggregateType,
		Version:       EnvelopeVersion,
		Timestamp:     time.Now().UTC(),
		Source:        source,
		Data:          payload,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Origin returns the publishing instance, or "" when none was recorded.
func (e *Event) Origin() string {
	return e.Metadata[MetadataOrigin]
}

// Marshal serializes the event to JSON bytes.
func (e *Event) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// headers lets consumers route on type and origin without decoding the body.
func (e *Event) headers() []kafka.Header {
	h := []kafka.Header{
		{Key: "event_type", Value: []byte(e.EventType)},
		{Key: "source", Value: []byte(e.Source)},
	}
	if e.CorrelationID != "" {
		h = append(h, kafka.Header{Key: "correlation_id", Value: []byte(e.CorrelationID)})
	}
	if origin := e.Origin(); origin != "" {
		h = append(h, kafka.Header{Key: MetadataOrigin, Value: []byte(origin)})
	}
	return h
}
