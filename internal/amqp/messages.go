package amqp

import (
	"encoding/json"
	"time"
)

// Message types, carried in the AMQP "type" property.
const (
	TypeImportCompleted    = "household.import.completed"
	TypeTransactionCreated = "household.transaction.created"
)

// ImportCompletedMessage announces a finished snapshot import.
type ImportCompletedMessage struct {
	ImportID            string    `json:"importId"`
	Source              string    `json:"source"`
	Families            int       `json:"families"`
	Transactions        int       `json:"transactions"`
	SkippedRows         int       `json:"skippedRows"`
	SkippedTransactions int       `json:"skippedTransactions"`
	SkippedFamilies     int       `json:"skippedFamilies"`
	Timestamp           time.Time `json:"timestamp"`
}

// TransactionCreatedMessage announces a transaction stored through the API.
type TransactionCreatedMessage struct {
	ID        string    `json:"id"`
	FamilyID  string    `json:"familyId"`
	MemberID  string    `json:"memberId"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	Timestamp time.Time `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes
func (m *ImportCompletedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ToJSON converts the message to JSON bytes
func (m *TransactionCreatedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}
