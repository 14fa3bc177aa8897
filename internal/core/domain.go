package core

import (
	"strings"
	"time"
)

// Category is the fixed expense classification of a transaction.
type Category string

const (
	Groceries      Category = "Groceries"
	Utilities      Category = "Utilities"
	Rent           Category = "Rent"
	Transportation Category = "Transportation"
	Healthcare     Category = "Healthcare"
	Education      Category = "Education"
	Entertainment  Category = "Entertainment"
	Other          Category = "Other"
)

// SuspiciousAmountThreshold is the largest amount a single transaction may carry.
const SuspiciousAmountThreshold = 100000

// MinTransactionAmount is the smallest accepted transaction amount.
const MinTransactionAmount = 0.01

type (
	// FamilyProfile is a household's financial snapshot.
	FamilyProfile struct {
		FamilyID           string    `json:"familyId" validate:"required"`
		Income             float64   `json:"income" validate:"gte=0"`
		Savings            float64   `json:"savings" validate:"gte=0"`
		MonthlyExpenses    float64   `json:"monthlyExpenses" validate:"gte=0"`
		LoanPayments       float64   `json:"loanPayments" validate:"gte=0"`
		CreditCardSpending float64   `json:"creditCardSpending" validate:"gte=0"`
		Dependents         int       `json:"dependents" validate:"gte=0"`
		FinancialGoalsMet  float64   `json:"financialGoalsMet" validate:"gte=0,lte=100"`
		CreatedAt          time.Time `json:"createdAt,omitempty"`
		UpdatedAt          time.Time `json:"updatedAt,omitempty"`
	}

	// Transaction is a single dated expense attributed to a family member.
	Transaction struct {
		ID              string    `json:"id,omitempty"`
		FamilyID        string    `json:"familyId" validate:"required"`
		MemberID        string    `json:"memberId" validate:"required"`
		TransactionDate time.Time `json:"transactionDate" validate:"required"`
		Category        Category  `json:"category" validate:"required,category"`
		Amount          float64   `json:"amount" validate:"gte=0.01"`
		CreatedAt       time.Time `json:"createdAt,omitempty"`
	}
)

// Categories lists every accepted category in display order.
func Categories() []Category {
	return []Category{Groceries, Utilities, Rent, Transportation, Healthcare, Education, Entertainment, Other}
}

// IsValid reports whether c belongs to the fixed enumeration.
func (c Category) IsValid() bool {
	switch c {
	case Groceries, Utilities, Rent, Transportation, Healthcare, Education, Entertainment, Other:
		return true
	default:
		return false
	}
}

// Normalize trims identifier fields the way the storage schema does.
func (f FamilyProfile) Normalize() FamilyProfile {
	f.FamilyID = strings.TrimSpace(f.FamilyID)
	return f
}

// Normalize trims identifier and category fields.
func (t Transaction) Normalize() Transaction {
	t.FamilyID = strings.TrimSpace(t.FamilyID)
	t.MemberID = strings.TrimSpace(t.MemberID)
	t.Category = Category(strings.TrimSpace(string(t.Category)))
	return t
}
