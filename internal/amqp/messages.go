package amqp

import (
	"encoding/json"
	"time"
)

// Routing keys on the housetab direct exchange. Publishers always use the
// key matching the message type; queues bind the keys they want to receive.
const (
	KeyExpenseRecorded = "expense.recorded"
	KeyExpenseRemoved  = "expense.removed"
	KeyBudgetChanged   = "budget.changed"
	KeyBudgetAlert     = "budget.alert"
)

// ExpenseRecordedMessage signals that an expense was appended to the books.
// It carries only the id and household, consumers fetch the full record
// from the store.
type ExpenseRecordedMessage struct {
	ID        string    `json:"id"`
	Household string    `json:"household"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseRecordedMessage(id, household string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		ID:        id,
		Household: household,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// FromJSON creates a message from JSON bytes
func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// ExpenseRemovedMessage signals that an expense was removed from the books.
type ExpenseRemovedMessage struct {
	ID        string    `json:"id"`
	Household string    `json:"household"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseRemovedMessage(id, household string) *ExpenseRemovedMessage {
	return &ExpenseRemovedMessage{
		ID:        id,
		Household: household,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseRemovedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func ExpenseRemovedMessageFromJSON(data []byte) (*ExpenseRemovedMessage, error) {
	var msg ExpenseRemovedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetChangedMessage signals that a budget line was created or updated.
type BudgetChangedMessage struct {
	Household string    `json:"household"`
	Person    string    `json:"person"`
	Category  string    `json:"category"`
	Timestamp time.Time `json:"timestamp"`
}

func NewBudgetChangedMessage(household, person, category string) *BudgetChangedMessage {
	return &BudgetChangedMessage{
		Household: household,
		Person:    person,
		Category:  category,
		Timestamp: time.Now(),
	}
}

func (m *BudgetChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetChangedMessageFromJSON(data []byte) (*BudgetChangedMessage, error) {
	var msg BudgetChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

// BudgetAlertMessage is emitted by the alert worker when a person's spending
// in the current period crosses into the warning or over band for a
// category. Amounts travel as decimal strings so no precision is lost on
// the wire.
type BudgetAlertMessage struct {
	Household   string    `json:"household"`
	Person      string    `json:"person"`
	Category    string    `json:"category"`
	Status      string    `json:"status"`
	Spent       string    `json:"spent"`
	Limit       string    `json:"limit"`
	Percentage  string    `json:"percentage"`
	PeriodStart string    `json:"period_start"`
	PeriodEnd   string    `json:"period_end"`
	Timestamp   time.Time `json:"timestamp"`
}

func (m *BudgetAlertMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

func BudgetAlertMessageFromJSON(data []byte) (*BudgetAlertMessage, error) {
	var msg BudgetAlertMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
