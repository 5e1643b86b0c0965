package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType names a change to a dream.
type EventType string

const (
	EventCreated EventType = "created"
	EventUpdated EventType = "updated"
	EventDeleted EventType = "deleted"
)

func (t EventType) valid() bool {
	switch t {
	case EventCreated, EventUpdated, EventDeleted:
		return true
	}
	return false
}

// DreamEventMessage announces a change to one dream. It carries only the id; consumers
// read the current state from the database. Deleted events carry the last known name
// and date so the export can describe the tombstone.
type DreamEventMessage struct {
	MessageID string    `json:"message_id"`
	Type      EventType `json:"type"`
	DreamID   int64     `json:"dream_id"`
	Name      string    `json:"name,omitempty"`
	DreamDate string    `json:"dream_date,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

func NewDreamEventMessage(t EventType, dreamID int64) *DreamEventMessage {
	return &DreamEventMessage{
		MessageID: uuid.NewString(),
		Type:      t,
		DreamID:   dreamID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *DreamEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// DreamEventMessageFromJSON decodes and checks a message body.
func DreamEventMessageFromJSON(data []byte) (*DreamEventMessage, error) {
	var msg DreamEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Type.valid() {
		return nil, fmt.Errorf("unknown event type %q", msg.Type)
	}
	if msg.DreamID <= 0 {
		return nil, fmt.Errorf("invalid dream id %d", msg.DreamID)
	}
	if _, err := uuid.Parse(msg.MessageID); err != nil {
		return nil, fmt.Errorf("invalid message id %q: %w", msg.MessageID, err)
	}
	return &msg, nil
}
