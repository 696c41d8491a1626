package amqp

import (
	"encoding/json"
	"time"
)

// OutboxMessage announces a queued transaction write. It carries only the
// outbox id; the worker reads the full record from the database.
type OutboxMessage struct {
	ID            int64     `json:"id"`
	TransactionID string    `json:"transaction_id"`
	Username      string    `json:"username"`
	Timestamp     time.Time `json:"timestamp"`
}

func NewOutboxMessage(id int64, transactionID, username string) *OutboxMessage {
	return &OutboxMessage{
		ID:            id,
		TransactionID: transactionID,
		Username:      username,
		Timestamp:     time.Now(),
	}
}

func (m *OutboxMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func OutboxMessageFromJSON(data []byte) (*OutboxMessage, error) {
	var msg OutboxMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
