package amqp

import (
	"encoding/json"
	"time"
)

const (
	TypeExpenseRecorded = "expense.recorded"
	TypeShareSettled    = "share.settled"
)

// envelope carries the message type so one queue can serve both events.
type envelope struct {
	Type string `json:"type"`
}

// ExpenseRecordedMessage signals that a split expense was written. The
// worker fetches the full row from storage, so the message stays small.
type ExpenseRecordedMessage struct {
	Type      string    `json:"type"`
	ExpenseID string    `json:"expense_id"`
	GroupID   string    `json:"group_id"`
	Timestamp time.Time `json:"timestamp"`
}

// ShareSettledMessage signals that a share was settled.
type ShareSettledMessage struct {
	Type      string    `json:"type"`
	ShareID   string    `json:"share_id"`
	ExpenseID string    `json:"expense_id"`
	Timestamp time.Time `json:"timestamp"`
}

func NewExpenseRecordedMessage(expenseID, groupID string) *ExpenseRecordedMessage {
	return &ExpenseRecordedMessage{
		Type:      TypeExpenseRecorded,
		ExpenseID: expenseID,
		GroupID:   groupID,
		Timestamp: time.Now(),
	}
}

func NewShareSettledMessage(shareID, expenseID string) *ShareSettledMessage {
	return &ShareSettledMessage{
		Type:      TypeShareSettled,
		ShareID:   shareID,
		ExpenseID: expenseID,
		Timestamp: time.Now(),
	}
}

func (m *ExpenseRecordedMessage) ToJSON() ([]byte, error) { return json.Marshal(m) }
func (m *ShareSettledMessage) ToJSON() ([]byte, error)    { return json.Marshal(m) }

func messageType(data []byte) string {
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return ""
	}
	return env.Type
}

func ExpenseRecordedMessageFromJSON(data []byte) (*ExpenseRecordedMessage, error) {
	var msg ExpenseRecordedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}

func ShareSettledMessageFromJSON(data []byte) (*ShareSettledMessage, error) {
	var msg ShareSettledMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
