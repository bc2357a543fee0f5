package amqp

import (
	"encoding/json"
	"time"
)

// RecordExportMessage asks the worker to append one expense record to the
// ledger. It carries only the record ID; the worker fetches the full row
// from the database so the queue never holds stale copies.
type RecordExportMessage struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

// NewRecordExportMessage creates an export message for a record ID
func NewRecordExportMessage(id string) *RecordExportMessage {
	return &RecordExportMessage{
		ID:        id,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *RecordExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// RecordExportMessageFromJSON creates a message from JSON bytes
func RecordExportMessageFromJSON(data []byte) (*RecordExportMessage, error) {
	var msg RecordExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, errEmptyRecordID
	}
	return &msg, nil
}
