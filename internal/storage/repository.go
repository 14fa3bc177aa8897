package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"household/internal/core"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

const timeLayout = time.RFC3339Nano

// Fault injection stages inside ReplaceAll.
const (
	stageDeleteFamilies     = "delete_families"
	stageInsertFamily       = "insert_family"
	stageDeleteTransactions = "delete_transactions"
	stageInsertTransaction  = "insert_transaction"
)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time

	// faultHook is nil outside tests, which install it through setFaultHook
	// to fail a ReplaceAll stage.
	faultHook func(stage string) error
}

// Ensure interface conformance
var _ Repository = (*SQLiteRepository)(nil)

// NewSQLiteRepository opens (creating if needed) the database at dbPath and
// applies pending migrations.
func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	// Run migrations
	if err := RunMigrations(dbPath); err != nil {
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_pragma=busy_timeout(5000)&_txlock=immediate")
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single writer connection: a snapshot replacement holds it for its whole
	// transaction, so in-process readers see the old or the new state.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// CreateFamily implements FamilyWriter
func (r *SQLiteRepository) CreateFamily(ctx context.Context, f core.FamilyProfile) (core.FamilyProfile, error) {
	f = f.Normalize()
	now := r.now().UTC()
	f.CreatedAt, f.UpdatedAt = now, now

	if err := r.queries.InsertFamily(ctx, familyToRow(f)); err != nil {
		if isUniqueViolation(err) {
			return core.FamilyProfile{}, &core.ConflictError{Resource: "family", ID: f.FamilyID}
		}
		return core.FamilyProfile{}, fmt.Errorf("create family: %w", err)
	}

	slog.InfoContext(ctx, "Family saved to SQLite", "family_id", f.FamilyID)
	return f, nil
}

// GetFamily implements FamilyReader
func (r *SQLiteRepository) GetFamily(ctx context.Context, familyID string) (core.FamilyProfile, error) {
	row, err := r.queries.GetFamily(ctx, strings.TrimSpace(familyID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.FamilyProfile{}, &core.NotFoundError{Resource: "family", ID: familyID}
		}
		return core.FamilyProfile{}, fmt.Errorf("get family %s: %w", familyID, err)
	}
	return familyFromRow(row)
}

// ListFamilies implements FamilyReader
func (r *SQLiteRepository) ListFamilies(ctx context.Context) ([]core.FamilyProfile, error) {
	rows, err := r.queries.ListFamilies(ctx)
	if err != nil {
		return nil, fmt.Errorf("list families: %w", err)
	}
	out := make([]core.FamilyProfile, 0, len(rows))
	for _, row := range rows {
		f, err := familyFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, f)
	}
	return out, nil
}

// AddTransaction implements TransactionWriter
func (r *SQLiteRepository) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	t = t.Normalize()
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	t.CreatedAt = r.now().UTC()

	if err := r.queries.InsertTransaction(ctx, transactionToRow(t)); err != nil {
		if isUniqueViolation(err) {
			return core.Transaction{}, &core.ConflictError{Resource: "transaction", ID: t.ID}
		}
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"family_id", t.FamilyID,
		"member_id", t.MemberID,
		"amount", t.Amount)
	return t, nil
}

// ListTransactions implements TransactionLister
func (r *SQLiteRepository) ListTransactions(ctx context.Context, familyID string) ([]core.Transaction, error) {
	var (
		rows []Transaction
		err  error
	)
	if familyID = strings.TrimSpace(familyID); familyID == "" {
		rows, err = r.queries.ListAllTransactions(ctx)
	} else {
		rows, err = r.queries.ListTransactionsByFamily(ctx, familyID)
	}
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}

	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := transactionFromRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

// ReplaceAll implements SnapshotReplacer. Both collections are emptied and
// reloaded inside one database transaction. Each transaction insert runs in
// its own savepoint so a constraint violation drops only that record; any
// other failure rolls the whole replacement back.
func (r *SQLiteRepository) ReplaceAll(ctx context.Context, s Snapshot) (res ReplaceResult, err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return ReplaceResult{}, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
			}
		}
	}()

	q := r.queries.WithTx(tx)
	now := r.now().UTC()

	if err := r.fault(stageDeleteFamilies); err != nil {
		return ReplaceResult{}, err
	}
	if err := q.DeleteAllFamilies(ctx); err != nil {
		return ReplaceResult{}, fmt.Errorf("delete families: %w", err)
	}
	for _, f := range s.Families {
		f = f.Normalize()
		f.CreatedAt, f.UpdatedAt = now, now
		if err := r.fault(stageInsertFamily); err != nil {
			return ReplaceResult{}, err
		}
		if err := q.InsertFamily(ctx, familyToRow(f)); err != nil {
			return ReplaceResult{}, fmt.Errorf("insert family %s: %w", f.FamilyID, err)
		}
		res.Families++
	}

	if err := r.fault(stageDeleteTransactions); err != nil {
		return ReplaceResult{}, err
	}
	if err := q.DeleteAllTransactions(ctx); err != nil {
		return ReplaceResult{}, fmt.Errorf("delete transactions: %w", err)
	}
	for _, t := range s.Transactions {
		t = t.Normalize()
		if t.ID == "" {
			t.ID = uuid.NewString()
		}
		t.CreatedAt = now

		inserted, err := r.insertTransactionTolerant(ctx, tx, q, t)
		if err != nil {
			return ReplaceResult{}, err
		}
		if inserted {
			res.Transactions++
		} else {
			res.RejectedTransactions++
		}
	}

	if err := tx.Commit(); err != nil {
		return ReplaceResult{}, fmt.Errorf("commit: %w", err)
	}

	slog.InfoContext(ctx, "Snapshot replaced in SQLite",
		"families", res.Families,
		"transactions", res.Transactions,
		"rejected", res.RejectedTransactions)
	return res, nil
}

// insertTransactionTolerant reports false without error when the record
// violates a constraint.
func (r *SQLiteRepository) insertTransactionTolerant(ctx context.Context, tx *sql.Tx, q *Queries, t core.Transaction) (bool, error) {
	if _, err := tx.ExecContext(ctx, "SAVEPOINT insert_transaction"); err != nil {
		return false, fmt.Errorf("savepoint: %w", err)
	}

	err := r.fault(stageInsertTransaction)
	if err == nil {
		err = q.InsertTransaction(ctx, transactionToRow(t))
	}
	if err != nil {
		if !isConstraintViolation(err) {
			return false, fmt.Errorf("insert transaction %s: %w", t.ID, err)
		}
		slog.WarnContext(ctx, "Transaction rejected by storage",
			"id", t.ID,
			"family_id", t.FamilyID,
			"error", err)
		if _, rbErr := tx.ExecContext(ctx, "ROLLBACK TO insert_transaction"); rbErr != nil {
			return false, fmt.Errorf("rollback to savepoint: %w", rbErr)
		}
	}

	if _, relErr := tx.ExecContext(ctx, "RELEASE insert_transaction"); relErr != nil {
		return false, fmt.Errorf("release savepoint: %w", relErr)
	}
	return err == nil, nil
}

func (r *SQLiteRepository) fault(stage string) error {
	if r.faultHook == nil {
		return nil
	}
	if err := r.faultHook(stage); err != nil {
		return fmt.Errorf("%s: %w", stage, err)
	}
	return nil
}

func isConstraintViolation(err error) bool {
	var serr *sqlite.Error
	return errors.As(err, &serr) && serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

func isUniqueViolation(err error) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	switch serr.Code() {
	case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
		return true
	}
	return serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(serr.Error(), "UNIQUE constraint failed")
}

func familyToRow(f core.FamilyProfile) FamilyProfile {
	return FamilyProfile{
		FamilyID:           f.FamilyID,
		Income:             f.Income,
		Savings:            f.Savings,
		MonthlyExpenses:    f.MonthlyExpenses,
		LoanPayments:       f.LoanPayments,
		CreditCardSpending: f.CreditCardSpending,
		Dependents:         int64(f.Dependents),
		FinancialGoalsMet:  f.FinancialGoalsMet,
		CreatedAt:          f.CreatedAt.Format(timeLayout),
		UpdatedAt:          f.UpdatedAt.Format(timeLayout),
	}
}

func familyFromRow(row FamilyProfile) (core.FamilyProfile, error) {
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return core.FamilyProfile{}, fmt.Errorf("parse created_at for family %s: %w", row.FamilyID, err)
	}
	updated, err := time.Parse(timeLayout, row.UpdatedAt)
	if err != nil {
		return core.FamilyProfile{}, fmt.Errorf("parse updated_at for family %s: %w", row.FamilyID, err)
	}
	return core.FamilyProfile{
		FamilyID:           row.FamilyID,
		Income:             row.Income,
		Savings:            row.Savings,
		MonthlyExpenses:    row.MonthlyExpenses,
		LoanPayments:       row.LoanPayments,
		CreditCardSpending: row.CreditCardSpending,
		Dependents:         int(row.Dependents),
		FinancialGoalsMet:  row.FinancialGoalsMet,
		CreatedAt:          created,
		UpdatedAt:          updated,
	}, nil
}

func transactionToRow(t core.Transaction) Transaction {
	return Transaction{
		ID:              t.ID,
		FamilyID:        t.FamilyID,
		MemberID:        t.MemberID,
		TransactionDate: t.TransactionDate.UTC().Format(timeLayout),
		Category:        string(t.Category),
		Amount:          t.Amount,
		CreatedAt:       t.CreatedAt.Format(timeLayout),
	}
}

func transactionFromRow(row Transaction) (core.Transaction, error) {
	date, err := time.Parse(timeLayout, row.TransactionDate)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse transaction_date for %s: %w", row.ID, err)
	}
	created, err := time.Parse(timeLayout, row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse created_at for %s: %w", row.ID, err)
	}
	return core.Transaction{
		ID:              row.ID,
		FamilyID:        row.FamilyID,
		MemberID:        row.MemberID,
		TransactionDate: date,
		Category:        core.Category(row.Category),
		Amount:          row.Amount,
		CreatedAt:       created,
	}, nil
}
