package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"finbook/internal/core"
)

// MutationEvent is the compact record published for every accepted mutation.
// Consumers fetch the full entity from the store; the event only says what
// changed.
type MutationEvent struct {
	Kind      core.EntityKind `json:"kind"`
	Op        string          `json:"op"`
	EntityID  uuid.UUID       `json:"entity_id"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewMutationEvent creates an event stamped with the current time.
func NewMutationEvent(kind core.EntityKind, op string, id uuid.UUID) *MutationEvent {
	return &MutationEvent{
		Kind:      kind,
		Op:        op,
		EntityID:  id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the event to JSON bytes.
func (m *MutationEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// MutationEventFromJSON decodes an event from JSON bytes.
func MutationEventFromJSON(data []byte) (*MutationEvent, error) {
	var msg MutationEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
