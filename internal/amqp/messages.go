package amqp

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// BudgetUpdatedEvent is the routing key and message type of a saved budget.
const BudgetUpdatedEvent = "budget.updated"

// BudgetUpdatedMessage tells consumers that a user's ledger changed.
// It carries no amounts; consumers read the current ledger themselves.
type BudgetUpdatedMessage struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	UserID    int64     `json:"user_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetUpdatedMessage(userID int64) *BudgetUpdatedMessage {
	return &BudgetUpdatedMessage{
		ID:        uuid.NewString(),
		Type:      BudgetUpdatedEvent,
		UserID:    userID,
		Timestamp: time.Now().UTC(),
	}
}

func (m *BudgetUpdatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetUpdatedMessageFromJSON(data []byte) (*BudgetUpdatedMessage, error) {
	var msg BudgetUpdatedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
