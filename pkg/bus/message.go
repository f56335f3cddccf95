package bus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ProtocolVersion is stamped on every header produced by this package
const ProtocolVersion = "1.0"

// MessageType classifies a message on the bus
type MessageType string

const (
	MessageTypeEvent    MessageType = "EVENT"
	MessageTypeRequest  MessageType = "REQUEST"
	MessageTypeResponse MessageType = "RESPONSE"
)

// Priority is the delivery priority hint carried in the header
type Priority string

const (
	PriorityLow    Priority = "LOW"
	PriorityMedium Priority = "MEDIUM"
	PriorityHigh   Priority = "HIGH"
)

var (
	// ErrClosed is returned when publishing or subscribing on a closed bus
	ErrClosed = errors.New("bus closed")
	// ErrNoTopic is returned when a topic name is empty
	ErrNoTopic = errors.New("topic is required")
	// ErrNilHandler is returned when subscribing a nil handler
	ErrNilHandler = errors.New("handler is required")
)

// Header is the envelope metadata of a message. CorrelationID is an opaque
// token kept as raw JSON so it is echoed back exactly as the peer sent it.
type Header struct {
	MessageID     string          `json:"message_id"`
	CorrelationID json.RawMessage `json:"correlation_id"`
	Timestamp     Timestamp       `json:"timestamp"`
	SenderNode    string      `json:"sender_node"`
	TargetNode    string      `json:"target_node"`
	Topic         string      `json:"topic"`
	MessageType   MessageType `json:"message_type"`
	Priority      Priority    `json:"priority"`
	Version       string      `json:"version"`
}

// Message is a header plus a topic-specific payload
type Message struct {
	Header  Header                 `json:"header"`
	Payload map[string]interface{} `json:"payload"`
}

// RequestID returns the correlation ID to echo back in a reply, or nil.
// String IDs are returned as strings, anything else as its raw JSON.
func (m Message) RequestID() interface{} {
	id := bytes.TrimSpace(m.Header.CorrelationID)
	if len(id) == 0 || bytes.Equal(id, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(id, &s); err == nil {
		return s
	}
	return json.RawMessage(append([]byte(nil), id...))
}

// Timestamp is a header time. It decodes RFC 3339 with or without a zone
// (zone-less values are UTC), a space instead of the T separator, and epoch
// seconds given as a JSON number.
type Timestamp struct {
	time.Time
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05",
}

// UnmarshalJSON implements json.Unmarshaler
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "" || raw == "null" {
		t.Time = time.Time{}
		return nil
	}

	if raw[0] != '"' {
		secs, err := strconv.ParseFloat(raw, 64)
		if err != nil || math.IsInf(secs, 0) || math.IsNaN(secs) {
			return fmt.Errorf("invalid timestamp %s", raw)
		}
		whole, frac := math.Modf(secs)
		t.Time = time.Unix(int64(whole), int64(math.Round(frac*1e9))).UTC()
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time = parsed
			return nil
		}
	}
	return fmt.Errorf("invalid timestamp %q", s)
}

// HeaderError lists envelope header fields that could not be decoded. The
// message returned alongside it is still routable.
type HeaderError struct {
	Fields []string
}

func (e *HeaderError) Error() string {
	return "undecodable header fields: " + strings.Join(e.Fields, ", ")
}

// DecodeMessage decodes a JSON envelope. Header fields are decoded one at a
// time so a single bad field does not lose the rest of the header; in that
// case the message is returned together with a *HeaderError.
func DecodeMessage(data []byte) (Message, error) {
	var raw struct {
		Header  map[string]json.RawMessage `json:"header"`
		Payload map[string]interface{}     `json:"payload"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return Message{}, fmt.Errorf("invalid envelope: %w", err)
	}

	msg := Message{Payload: raw.Payload}
	var bad []string
	for name, value := range raw.Header {
		field, err := json.Marshal(map[string]json.RawMessage{name: value})
		if err == nil {
			err = json.Unmarshal(field, &msg.Header)
		}
		if err != nil {
			bad = append(bad, name)
		}
	}
	if len(bad) > 0 {
		sort.Strings(bad)
		return msg, &HeaderError{Fields: bad}
	}
	return msg, nil
}

// Handler processes one delivered message
type Handler func(ctx context.Context, msg Message)

// Bus is the publish/subscribe transport consumed by the analyzer
type Bus interface {
	// Subscribe registers handler for every message delivered on topic
	Subscribe(topic string, handler Handler) error
	// PublishEvent synthesizes a header and delivers payload on topic
	PublishEvent(ctx context.Context, topic string, payload map[string]interface{}) error
}

// NewEvent builds an EVENT message from this node with a fresh message ID
func NewEvent(sender, topic string, payload map[string]interface{}) Message {
	if payload == nil {
		payload = make(map[string]interface{})
	}
	return Message{
		Header: Header{
			MessageID:   uuid.NewString(),
			Timestamp:   Timestamp{time.Now().UTC()},
			SenderNode:  sender,
			Topic:       topic,
			MessageType: MessageTypeEvent,
			Priority:    PriorityMedium,
			Version:     ProtocolVersion,
		},
		Payload: payload,
	}
}

// NewRequest builds a REQUEST message carrying a correlation ID
func NewRequest(sender, target, topic, correlationID string, payload map[string]interface{}) Message {
	msg := NewEvent(sender, topic, payload)
	msg.Header.TargetNode = target
	msg.Header.MessageType = MessageTypeRequest
	if correlationID != "" {
		msg.Header.CorrelationID, _ = json.Marshal(correlationID)
	}
	return msg
}
