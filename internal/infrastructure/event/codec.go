package event

import (
	"encoding/json"
	"fmt"

	"github.com/printdesk/backend/internal/domain/printing"
	"github.com/printdesk/backend/internal/domain/shared"
)

// Envelope is the wire form of an event relayed between instances
type Envelope struct {
	Origin  string          `json:"origin"`
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Codec turns events into envelopes and back
type Codec struct {
	factories map[string]func() shared.DomainEvent
}

// NewCodec creates a codec that knows the print job events
func NewCodec() *Codec {
	return &Codec{factories: map[string]func() shared.DomainEvent{
		printing.EventTypePrintJobCreated:    func() shared.DomainEvent { return &printing.PrintJobCreatedEvent{} },
		printing.EventTypePrintJobUpdated:    func() shared.DomainEvent { return &printing.PrintJobUpdatedEvent{} },
		printing.EventTypePrinterListUpdated: func() shared.DomainEvent { return &printing.PrinterListUpdatedEvent{} },
	}}
}

// Knows reports whether eventType can be decoded
func (c *Codec) Knows(eventType string) bool {
	_, ok := c.factories[eventType]
	return ok
}

// EventTypes lists the decodable event types
func (c *Codec) EventTypes() []string {
	out := make([]string, 0, len(c.factories))
	for t := range c.factories {
		out = append(out, t)
	}
	return out
}

// Encode wraps evt in an envelope stamped with origin
func (c *Codec) Encode(origin string, evt shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", evt.EventType(), err)
	}
	return json.Marshal(Envelope{Origin: origin, Type: evt.EventType(), Payload: payload})
}

// Decode parses an envelope and its event
func (c *Codec) Decode(data []byte) (Envelope, shared.DomainEvent, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return env, nil, fmt.Errorf("failed to unmarshal envelope: %w", err)
	}
	factory, ok := c.factories[env.Type]
	if !ok {
		return env, nil, fmt.Errorf("unknown event type: %s", env.Type)
	}
	evt := factory()
	if err := json.Unmarshal(env.Payload, evt); err != nil {
		return env, nil, fmt.Errorf("failed to unmarshal %s: %w", env.Type, err)
	}
	return env, evt, nil
}
