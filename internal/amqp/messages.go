package amqp

import (
	"encoding/json"
	"time"

	"finform/internal/core"
)

// EntryAddedMessage announces an entry accepted by the finance service.
type EntryAddedMessage struct {
	Message   string     `json:"message"`
	Entry     core.Entry `json:"entry"`
	SessionID string     `json:"session_id,omitempty"`
	Timestamp time.Time  `json:"timestamp"`
}

// NewEntryAddedMessage stamps the message with the current time.
func NewEntryAddedMessage(message string, entry core.Entry, sessionID string) *EntryAddedMessage {
	return &EntryAddedMessage{
		Message:   message,
		Entry:     entry,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *EntryAddedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EntryAddedMessageFromJSON decodes a message body.
func EntryAddedMessageFromJSON(data []byte) (*EntryAddedMessage, error) {
	var msg EntryAddedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
