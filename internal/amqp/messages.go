package amqp

import (
	"encoding/json"
	"time"

	"financas/internal/core"
)

// TransactionSyncMessage asks the worker to mirror one stored transaction to
// the ledger. It carries only the row ID and source; the worker fetches the
// full record from the database.
type TransactionSyncMessage struct {
	ID        int64       `json:"id"`
	Source    core.Source `json:"source"`
	Timestamp time.Time   `json:"timestamp"`
}

func NewTransactionSyncMessage(id int64, src core.Source) *TransactionSyncMessage {
	return &TransactionSyncMessage{
		ID:        id,
		Source:    src,
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
