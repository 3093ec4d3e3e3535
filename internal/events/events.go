// Package events defines the domain lifecycle event envelope carried on the
// bus, plus its wire encoding and routing attributes.
package events

import (
	"encoding/json"
	"fmt"
	"time"
)

// EventType classifies a domain lifecycle event.
type EventType string

// Published lifecycle event types. Registry row modifications are
// intentionally never published (see the watcher's classification policy).
const (
	DomainCreated EventType = "DOMAIN_CREATED"
	DomainDeleted EventType = "DOMAIN_DELETED"
)

// Routing attribute keys attached to every published message so subscribers
// can filter without decoding the payload.
const (
	AttrEventType = "eventType"
	AttrDomain    = "domain"
	AttrUserID    = "userId"
)

// DomainLifecycleEvent is created once per registry mutation and never
// mutated afterwards. Duplicates may be delivered; consumers must tolerate
// redelivery.
type DomainLifecycleEvent struct {
	EventID      string         `json:"eventId,omitempty"`
	EventType    EventType      `json:"eventType"`
	Domain       string         `json:"domain"`
	UserID       string         `json:"userId"`
	Timestamp    time.Time      `json:"timestamp"`
	Data         map[string]any `json:"data"`
	PreviousData map[string]any `json:"previousData,omitempty"`
}

// Attributes returns the routing attributes for subscriber-side filtering.
func (e DomainLifecycleEvent) Attributes() map[string]string {
	return map[string]string{
		AttrEventType: string(e.EventType),
		AttrDomain:    e.Domain,
		AttrUserID:    e.UserID,
	}
}

// Marshal encodes the event envelope as JSON.
func (e DomainLifecycleEvent) Marshal() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal event: %w", err)
	}
	return data, nil
}

// Unmarshal decodes an event envelope from JSON.
func Unmarshal(data []byte) (DomainLifecycleEvent, error) {
	var e DomainLifecycleEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return DomainLifecycleEvent{}, fmt.Errorf("unmarshal event: %w", err)
	}
	if e.EventType == "" {
		return DomainLifecycleEvent{}, fmt.Errorf("event missing eventType")
	}
	return e, nil
}
