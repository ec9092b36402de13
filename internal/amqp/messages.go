package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// StateSavedMessage announces that an owner's calculator was saved. The
// worker reloads the record itself, so the message carries no state.
type StateSavedMessage struct {
	Owner     string    `json:"owner"`
	Timestamp time.Time `json:"timestamp"`
}

// NewStateSavedMessage stamps a message for owner with the current time.
func NewStateSavedMessage(owner string) *StateSavedMessage {
	return &StateSavedMessage{
		Owner:     owner,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *StateSavedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// StateSavedMessageFromJSON decodes a message; an empty owner is an error.
func StateSavedMessageFromJSON(data []byte) (*StateSavedMessage, error) {
	var msg StateSavedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.Owner == "" {
		return nil, errors.New("state saved message without owner")
	}
	return &msg, nil
}
