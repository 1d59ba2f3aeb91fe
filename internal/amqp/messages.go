package amqp

import (
	"encoding/json"
	"time"
)

// Sync operations carried in TransactionSyncMessage.Op.
const (
	OpUpsert = "upsert"
	OpDelete = "delete"
)

// TransactionSyncMessage asks the sync worker to mirror one transaction to
// the spreadsheet. It carries only the ID and the operation; the worker
// fetches the current row from the database, so a stale message never
// overwrites fresher data.
type TransactionSyncMessage struct {
	ID        int64     `json:"id"`
	Op        string    `json:"op"`
	Timestamp time.Time `json:"timestamp"`
}

func NewTransactionSyncMessage(id int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Op:        OpUpsert,
		Timestamp: time.Now(),
	}
}

func NewTransactionDeleteMessage(id int64) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Op:        OpDelete,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionSyncMessageFromJSON creates a message from JSON bytes
func TransactionSyncMessageFromJSON(data []byte) (*TransactionSyncMessage, error) {
	var msg TransactionSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
