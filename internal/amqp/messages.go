package amqp

import (
	"encoding/json"
	"time"
)

// Message types published for the notification relay.
const (
	TypeReminderScheduled = "reminder.scheduled"
	TypeReminderCancelled = "reminder.cancelled"
)

// ReminderMessage asks the relay to notify about a bill, or to forget an
// earlier request with the same handle.
type ReminderMessage struct {
	Type      string    `json:"type"`
	Handle    string    `json:"handle"`
	BillName  string    `json:"bill_name,omitempty"`
	DueDate   string    `json:"due_date,omitempty"`
	NotifyAt  time.Time `json:"notify_at,omitzero"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ReminderMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ReminderMessageFromJSON decodes a message published by Scheduler.
func ReminderMessageFromJSON(data []byte) (*ReminderMessage, error) {
	var msg ReminderMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
