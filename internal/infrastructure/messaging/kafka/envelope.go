package kafka

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"github.com/turtacn/dtiscope/pkg/errors"
)

const (
	// DefaultTopic carries every dtiscope event; consumers filter on event_type.
	DefaultTopic  = "dtiscope.events"
	schemaVersion = "v1"
	sourceName    = "dtiscope"

	headerEventType     = "event_type"
	headerSource        = "source_service"
	headerSchemaVersion = "schema_version"
	headerRequestID     = "request_id"
)

// EventEnvelope standardizes event messages.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	Source        string          `json:"source"`
	Timestamp     time.Time       `json:"timestamp"`
	SchemaVersion string          `json:"schema_version"`
	RequestID     string          `json:"request_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// NewEventEnvelope wraps payload with a fresh event ID and UTC timestamp.
func NewEventEnvelope(eventType string, payload interface{}) (*EventEnvelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal payload")
	}
	return &EventEnvelope{
		EventID:       uuid.New().String(),
		EventType:     eventType,
		Source:        sourceName,
		Timestamp:     time.Now().UTC(),
		SchemaVersion: schemaVersion,
		Payload:       data,
	}, nil
}

// DecodePayload unmarshals the payload into target.  An absent payload leaves
// target untouched.
func (e *EventEnvelope) DecodePayload(target interface{}) error {
	if len(e.Payload) == 0 || string(e.Payload) == "null" {
		return nil
	}
	if err := json.Unmarshal(e.Payload, target); err != nil {
		return errors.Wrap(err, errors.ErrCodeSerialization, "failed to decode payload").WithDetail(e.EventType)
	}
	return nil
}

// ToMessage encodes the envelope as a kafka message keyed by key.
func (e *EventEnvelope) ToMessage(topic, key string) (kafka.Message, error) {
	val, err := json.Marshal(e)
	if err != nil {
		return kafka.Message{}, errors.Wrap(err, errors.ErrCodeSerialization, "failed to marshal envelope")
	}
	headers := []kafka.Header{
		{Key: headerEventType, Value: []byte(e.EventType)},
		{Key: headerSource, Value: []byte(e.Source)},
		{Key: headerSchemaVersion, Value: []byte(e.SchemaVersion)},
	}
	if e.RequestID != "" {
		headers = append(headers, kafka.Header{Key: headerRequestID, Value: []byte(e.RequestID)})
	}
	msg := kafka.Message{
		Topic:   topic,
		Value:   val,
		Headers: headers,
		Time:    e.Timestamp,
	}
	if key != "" {
		msg.Key = []byte(key)
	}
	return msg, nil
}

// MessageToEventEnvelope decodes a consumed message.
func MessageToEventEnvelope(msg kafka.Message) (*EventEnvelope, error) {
	if len(msg.Value) == 0 {
		return nil, errors.New(errors.ErrCodeValidation, "empty message value")
	}
	var env EventEnvelope
	if err := json.Unmarshal(msg.Value, &env); err != nil {
		return nil, errors.Wrap(err, errors.ErrCodeSerialization, "failed to unmarshal envelope")
	}
	return &env, nil
}

//Personal.AI order the ending
