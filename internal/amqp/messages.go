package amqp

import (
	"encoding/json"
	"time"
)

// BudgetSyncMessage asks the worker to mirror one budget line to the
// backup sheet. Only kind and id travel on the wire; the worker reads
// the current row from the database, so a stale message never exports
// stale values.
type BudgetSyncMessage struct {
	Kind      string    `json:"kind"` // "income" or "expense"
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetSyncMessage(kind string, id int64) *BudgetSyncMessage {
	return &BudgetSyncMessage{
		Kind:      kind,
		ID:        id,
		Timestamp: time.Now(),
	}
}

func (m *BudgetSyncMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetSyncMessageFromJSON(data []byte) (*BudgetSyncMessage, error) {
	var msg BudgetSyncMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
