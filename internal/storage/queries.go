package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// FamilyProfile is the family_profiles row.
type FamilyProfile struct {
	FamilyID           string
	Income             float64
	Savings            float64
	MonthlyExpenses    float64
	LoanPayments       float64
	CreditCardSpending float64
	Dependents         int64
	FinancialGoalsMet  float64
	CreatedAt          string
	UpdatedAt          string
}

// Transaction is the transactions row.
type Transaction struct {
	ID              string
	FamilyID        string
	MemberID        string
	TransactionDate string
	Category        string
	Amount          float64
	CreatedAt       string
}

const familyColumns = `family_id, income, savings, monthly_expenses, loan_payments,
       credit_card_spending, dependents, financial_goals_met, created_at, updated_at`

const transactionColumns = `id, family_id, member_id, transaction_date, category, amount, created_at`

const insertFamily = `INSERT INTO family_profiles (` + familyColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertFamily(ctx context.Context, f FamilyProfile) error {
	_, err := q.db.ExecContext(ctx, insertFamily,
		f.FamilyID, f.Income, f.Savings, f.MonthlyExpenses, f.LoanPayments,
		f.CreditCardSpending, f.Dependents, f.FinancialGoalsMet, f.CreatedAt, f.UpdatedAt)
	return err
}

const getFamily = `SELECT ` + familyColumns + ` FROM family_profiles WHERE family_id = ?`

func (q *Queries) GetFamily(ctx context.Context, familyID string) (FamilyProfile, error) {
	row := q.db.QueryRowContext(ctx, getFamily, familyID)
	var f FamilyProfile
	err := row.Scan(&f.FamilyID, &f.Income, &f.Savings, &f.MonthlyExpenses, &f.LoanPayments,
		&f.CreditCardSpending, &f.Dependents, &f.FinancialGoalsMet, &f.CreatedAt, &f.UpdatedAt)
	return f, err
}

const listFamilies = `SELECT ` + familyColumns + ` FROM family_profiles ORDER BY family_id`

func (q *Queries) ListFamilies(ctx context.Context) ([]FamilyProfile, error) {
	rows, err := q.db.QueryContext(ctx, listFamilies)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []FamilyProfile
	for rows.Next() {
		var f FamilyProfile
		if err := rows.Scan(&f.FamilyID, &f.Income, &f.Savings, &f.MonthlyExpenses, &f.LoanPayments,
			&f.CreditCardSpending, &f.Dependents, &f.FinancialGoalsMet, &f.CreatedAt, &f.UpdatedAt); err != nil {
			return nil, err
		}
		items = append(items, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllFamilies = `DELETE FROM family_profiles`

func (q *Queries) DeleteAllFamilies(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllFamilies)
	return err
}

const insertTransaction = `INSERT INTO transactions (` + transactionColumns + `)
VALUES (?, ?, ?, ?, ?, ?, ?)`

func (q *Queries) InsertTransaction(ctx context.Context, t Transaction) error {
	_, err := q.db.ExecContext(ctx, insertTransaction,
		t.ID, t.FamilyID, t.MemberID, t.TransactionDate, t.Category, t.Amount, t.CreatedAt)
	return err
}

const listTransactionsByFamily = `SELECT ` + transactionColumns + ` FROM transactions
WHERE family_id = ?
ORDER BY transaction_date, rowid`

const listAllTransactions = `SELECT ` + transactionColumns + ` FROM transactions
ORDER BY family_id, transaction_date, rowid`

func (q *Queries) ListTransactionsByFamily(ctx context.Context, familyID string) ([]Transaction, error) {
	return q.listTransactions(ctx, listTransactionsByFamily, familyID)
}

func (q *Queries) ListAllTransactions(ctx context.Context) ([]Transaction, error) {
	return q.listTransactions(ctx, listAllTransactions)
}

func (q *Queries) listTransactions(ctx context.Context, query string, args ...interface{}) ([]Transaction, error) {
	rows, err := q.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Transaction
	for rows.Next() {
		var t Transaction
		if err := rows.Scan(&t.ID, &t.FamilyID, &t.MemberID, &t.TransactionDate, &t.Category, &t.Amount, &t.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const deleteAllTransactions = `DELETE FROM transactions`

func (q *Queries) DeleteAllTransactions(ctx context.Context) error {
	_, err := q.db.ExecContext(ctx, deleteAllTransactions)
	return err
}
