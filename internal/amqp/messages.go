package amqp

import (
	"encoding/json"
	"time"
)

// BudgetReconcileMessage is a lightweight hint that the budgets of one
// (user, category) pair may need a recompute. It carries no amounts; the
// worker re-derives everything from the database.
type BudgetReconcileMessage struct {
	UserID     int64     `json:"user_id"`
	CategoryID int64     `json:"category_id"`
	Timestamp  time.Time `json:"timestamp"`
}

// NewBudgetReconcileMessage creates a reconcile hint for one pair.
func NewBudgetReconcileMessage(userID, categoryID int64) *BudgetReconcileMessage {
	return &BudgetReconcileMessage{
		UserID:     userID,
		CategoryID: categoryID,
		Timestamp:  time.Now(),
	}
}

// ToJSON converts the message to JSON bytes.
func (m *BudgetReconcileMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// BudgetReconcileMessageFromJSON creates a message from JSON bytes.
func BudgetReconcileMessageFromJSON(data []byte) (*BudgetReconcileMessage, error) {
	var msg BudgetReconcileMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
