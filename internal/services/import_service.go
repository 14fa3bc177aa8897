// Package services provides business logic and orchestration services.
//
// This file implements the bulk spreadsheet importer. An import runs as a
// sequential pipeline: read the first worksheet, build a validated and
// deduplicated snapshot, then replace both collections in one atomic step.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"household/internal/amqp"
	"household/internal/core"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/sheets"
	"household/internal/storage"

	"github.com/google/uuid"
	"golang.org/x/sync/semaphore"
)

// Worksheet columns read by the importer.
const (
	ColFamilyID           = "Family ID"
	ColMemberID           = "Member ID"
	ColTransactionDate    = "Transaction Date"
	ColCategory           = "Category"
	ColAmount             = "Amount"
	ColIncome             = "Income"
	ColSavings            = "Savings"
	ColMonthlyExpenses    = "Monthly Expenses"
	ColLoanPayments       = "Loan Payments"
	ColCreditCardSpending = "Credit Card Spending"
	ColDependents         = "Dependents"
	ColFinancialGoalsMet  = "Financial Goals Met (%)"
)

// RequiredColumns lists every header an import worksheet must carry: the
// transaction columns followed by the profile columns.
func RequiredColumns() []string {
	return []string{
		ColFamilyID, ColMemberID, ColTransactionDate, ColCategory, ColAmount, ColIncome,
		ColSavings, ColMonthlyExpenses, ColLoanPayments, ColCreditCardSpending, ColDependents, ColFinancialGoalsMet,
	}
}

// Record kinds reported in RowIssue.
const (
	RecordRow         = "row"
	RecordTransaction = "transaction"
	RecordFamily      = "family profile"
)

// transactionNamespace seeds the deterministic IDs of imported transactions,
// so importing the same file twice stores the same IDs.
var transactionNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("household/transactions"))

// RowIssue describes a row, transaction or profile skipped during an import.
type RowIssue struct {
	Row      int    `json:"row"`
	FamilyID string `json:"familyId,omitempty"`
	Record   string `json:"record"`
	Reason   string `json:"reason"`
}

// ImportResult summarizes a committed import.
type ImportResult struct {
	ImportID            string        `json:"importId"`
	Source              string        `json:"source"`
	Sheet               string        `json:"sheet"`
	Families            int           `json:"families"`
	Transactions        int           `json:"transactions"`
	SkippedRows         int           `json:"skippedRows"`
	SkippedTransactions int           `json:"skippedTransactions"`
	SkippedFamilies     int           `json:"skippedFamilies"`
	Issues              []RowIssue    `json:"issues,omitempty"`
	Duration            time.Duration `json:"-"`
	DurationMs          int64         `json:"durationMs"`
}

// ImportPublisher announces committed imports.
type ImportPublisher interface {
	PublishImportCompleted(ctx context.Context, msg amqp.ImportCompletedMessage) error
}

// Importer loads spreadsheets into storage. Only one import runs at a time;
// concurrent calls fail fast with core.ErrImportInProgress.
type Importer struct {
	opener    sheets.WorkbookOpener
	store     storage.SnapshotReplacer
	validator *core.Validator
	publisher ImportPublisher
	metrics   *metrics.Metrics
	logger    *log.Logger
	onCommit  []func(context.Context, ImportResult)
	sem       *semaphore.Weighted
	now       func() time.Time
}

// ImporterOption customizes an Importer.
type ImporterOption func(*Importer)

// WithImportPublisher publishes an event after each committed import.
func WithImportPublisher(p ImportPublisher) ImporterOption {
	return func(im *Importer) { im.publisher = p }
}

// WithImportMetrics records import outcomes.
func WithImportMetrics(m *metrics.Metrics) ImporterOption {
	return func(im *Importer) { im.metrics = m }
}

// WithImportLogger sets the logger used for skipped rows and failures.
func WithImportLogger(l *log.Logger) ImporterOption {
	return func(im *Importer) { im.logger = l.WithComponent(log.ComponentImport) }
}

// WithCommitHook runs fn after every committed import, e.g. to drop caches.
func WithCommitHook(fn func(context.Context, ImportResult)) ImporterOption {
	return func(im *Importer) { im.onCommit = append(im.onCommit, fn) }
}

// NewImporter builds an importer reading workbooks through opener.
func NewImporter(opener sheets.WorkbookOpener, store storage.SnapshotReplacer, validator *core.Validator, opts ...ImporterOption) *Importer {
	im := &Importer{
		opener:    opener,
		store:     store,
		validator: validator,
		logger:    log.New(log.DefaultConfig()).WithComponent(log.ComponentImport),
		sem:       semaphore.NewWeighted(1),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(im)
	}
	return im
}

// Import opens the workbook at ref with the configured opener and imports it.
func (im *Importer) Import(ctx context.Context, ref string) (ImportResult, error) {
	if !im.sem.TryAcquire(1) {
		im.metrics.ObserveImport(metrics.OutcomeBusy, 0)
		return ImportResult{}, core.ErrImportInProgress
	}
	defer im.sem.Release(1)

	wb, err := im.opener.Open(ctx, ref)
	if err != nil {
		im.metrics.ObserveImport(metrics.OutcomeRejected, 0)
		im.logger.ErrorContext(ctx, "Failed to open workbook", log.FieldSource, ref, log.FieldError, err)
		return ImportResult{}, err
	}
	defer wb.Close()

	return im.run(ctx, ref, wb)
}

// ImportWorkbook imports an already opened workbook, e.g. an uploaded file.
// source only labels the import in logs, events and the result.
func (im *Importer) ImportWorkbook(ctx context.Context, source string, wb sheets.Workbook) (ImportResult, error) {
	if !im.sem.TryAcquire(1) {
		im.metrics.ObserveImport(metrics.OutcomeBusy, 0)
		return ImportResult{}, core.ErrImportInProgress
	}
	defer im.sem.Release(1)

	return im.run(ctx, source, wb)
}

func (im *Importer) run(ctx context.Context, source string, wb sheets.Workbook) (ImportResult, error) {
	start := im.now()
	importID := uuid.NewString()
	logger := im.logger.With(log.FieldImportID, importID, log.FieldSource, source)

	sheet, err := readSheet(ctx, wb)
	if err != nil {
		im.metrics.ObserveImport(metrics.OutcomeRejected, 0)
		logger.ErrorContext(ctx, "Import rejected", log.FieldError, err)
		return ImportResult{}, err
	}

	plan := im.buildPlan(ctx, logger, sheet)

	res, err := im.commit(ctx, plan)
	if err != nil {
		im.metrics.ObserveImport(metrics.OutcomeFailed, im.now().Sub(start))
		logger.ErrorContext(ctx, "Import failed and was rolled back", log.FieldError, err)
		return ImportResult{}, err
	}

	result := ImportResult{
		ImportID:            importID,
		Source:              source,
		Sheet:               sheet.Name,
		Families:            res.Families,
		Transactions:        res.Transactions,
		SkippedRows:         plan.skippedRows,
		SkippedTransactions: plan.skippedTransactions + res.RejectedTransactions,
		SkippedFamilies:     plan.skippedFamilies,
		Issues:              plan.issues,
	}
	result.Duration = im.now().Sub(start)
	result.DurationMs = result.Duration.Milliseconds()

	im.metrics.ObserveImport(metrics.OutcomeSuccess, result.Duration)
	im.metrics.AddImportRecords("families", result.Families)
	im.metrics.AddImportRecords("transactions", result.Transactions)
	im.metrics.AddImportRecords("skipped_rows", result.SkippedRows)
	im.metrics.AddImportRecords("skipped_transactions", result.SkippedTransactions)
	im.metrics.AddImportRecords("skipped_families", result.SkippedFamilies)

	log.NewStructuredLogger(logger).LogImportCompleted(ctx, importID, source,
		result.Families, result.Transactions,
		result.SkippedRows+result.SkippedTransactions+result.SkippedFamilies,
		result.DurationMs)

	// The snapshot is committed from here on; nothing below can undo it.
	committedCtx := context.WithoutCancel(ctx)
	for _, fn := range im.onCommit {
		fn(committedCtx, result)
	}
	im.publish(committedCtx, logger, result)

	return result, nil
}

// readSheet returns the first worksheet after checking its headers.
func readSheet(ctx context.Context, wb sheets.Workbook) (sheets.Sheet, error) {
	names := wb.SheetNames()
	if len(names) == 0 {
		return sheets.Sheet{}, &core.SchemaMismatchError{Missing: RequiredColumns()}
	}

	sheet, err := wb.Sheet(ctx, names[0])
	if err != nil {
		return sheets.Sheet{}, fmt.Errorf("read worksheet %s: %w", names[0], err)
	}
	if missing := sheet.MissingHeaders(RequiredColumns()); len(missing) > 0 {
		return sheets.Sheet{}, &core.SchemaMismatchError{Missing: missing}
	}
	return sheet, nil
}

type importPlan struct {
	snapshot            storage.Snapshot
	issues              []RowIssue
	skippedRows         int
	skippedTransactions int
	skippedFamilies     int
}

// buildPlan validates every row and deduplicates profiles: the first row of a
// family decides its profile, whether or not that profile is valid.
func (im *Importer) buildPlan(ctx context.Context, logger *log.Logger, sheet sheets.Sheet) importPlan {
	var plan importPlan
	seenFamilies := make(map[string]struct{})

	skip := func(row sheets.Row, familyID, record string, reason error) {
		plan.issues = append(plan.issues, RowIssue{Row: row.Number, FamilyID: familyID, Record: record, Reason: reason.Error()})
		logger.WarnContext(ctx, "Skipping invalid "+record,
			log.FieldSheet, sheet.Name,
			log.FieldRow, row.Number,
			log.FieldFamilyID, familyID,
			log.FieldReason, reason.Error())
	}

	for _, row := range sheet.Rows {
		familyID := row.Get(ColFamilyID)
		memberID := row.Get(ColMemberID)
		if familyID == "" || memberID == "" {
			plan.skippedRows++
			skip(row, familyID, RecordRow, errors.New("missing Family ID or Member ID"))
			continue
		}

		if tx, err := im.buildTransaction(sheet.Name, row); err != nil {
			plan.skippedTransactions++
			skip(row, familyID, RecordTransaction, err)
		} else {
			plan.snapshot.Transactions = append(plan.snapshot.Transactions, tx)
		}

		if _, seen := seenFamilies[familyID]; seen {
			continue
		}
		seenFamilies[familyID] = struct{}{}

		if f, err := im.buildFamily(row); err != nil {
			plan.skippedFamilies++
			skip(row, familyID, RecordFamily, err)
		} else {
			plan.snapshot.Families = append(plan.snapshot.Families, f)
		}
	}
	return plan
}

func (im *Importer) buildTransaction(sheetName string, row sheets.Row) (core.Transaction, error) {
	tx := core.Transaction{
		FamilyID: row.Get(ColFamilyID),
		MemberID: row.Get(ColMemberID),
		Category: core.Category(row.Get(ColCategory)),
	}

	if raw := row.Get(ColTransactionDate); raw != "" {
		d, err := core.ParseDate(raw)
		if err != nil {
			return core.Transaction{}, fieldError(RecordTransaction, "transactionDate", "must be a valid date", err)
		}
		tx.TransactionDate = d
	}
	if raw := row.Get(ColAmount); raw != "" {
		amount, err := core.ParseAmount(raw)
		if err != nil {
			return core.Transaction{}, fieldError(RecordTransaction, "amount", "must be a number", err)
		}
		tx.Amount = amount
	}

	if err := im.validator.ValidateTransaction(tx); err != nil {
		return core.Transaction{}, err
	}

	key := fmt.Sprintf("%s|%d|%s|%s|%s|%s|%v",
		sheetName, row.Number, tx.FamilyID, tx.MemberID,
		tx.TransactionDate.Format(time.RFC3339), tx.Category, tx.Amount)
	tx.ID = uuid.NewSHA1(transactionNamespace, []byte(key)).String()
	return tx, nil
}

func (im *Importer) buildFamily(row sheets.Row) (core.FamilyProfile, error) {
	f := core.FamilyProfile{FamilyID: row.Get(ColFamilyID)}

	figures := []struct {
		col   string
		field string
		dst   *float64
	}{
		{ColIncome, "income", &f.Income},
		{ColSavings, "savings", &f.Savings},
		{ColMonthlyExpenses, "monthlyExpenses", &f.MonthlyExpenses},
		{ColLoanPayments, "loanPayments", &f.LoanPayments},
		{ColCreditCardSpending, "creditCardSpending", &f.CreditCardSpending},
		{ColFinancialGoalsMet, "financialGoalsMet", &f.FinancialGoalsMet},
	}
	for _, fig := range figures {
		v, err := core.ParseAmount(row.Get(fig.col))
		if err != nil {
			return core.FamilyProfile{}, numberError(fig.field, err)
		}
		*fig.dst = v
	}

	dependents, err := core.ParseCount(row.Get(ColDependents))
	if err != nil {
		return core.FamilyProfile{}, numberError("dependents", err)
	}
	f.Dependents = dependents

	if err := im.validator.ValidateFamily(f); err != nil {
		return core.FamilyProfile{}, err
	}
	return f, nil
}

// commit replaces both collections. It is detached from the caller's
// cancellation: once started, it ends in a commit or a rollback.
func (im *Importer) commit(ctx context.Context, plan importPlan) (storage.ReplaceResult, error) {
	res, err := im.store.ReplaceAll(context.WithoutCancel(ctx), plan.snapshot)
	if err != nil {
		return storage.ReplaceResult{}, &core.ImportFailedError{Cause: err}
	}
	return res, nil
}

func (im *Importer) publish(ctx context.Context, logger *log.Logger, r ImportResult) {
	if im.publisher == nil {
		return
	}
	err := im.publisher.PublishImportCompleted(ctx, amqp.ImportCompletedMessage{
		ImportID:        r.ImportID,
		Source:          r.Source,
		Families:        r.Families,
		Transactions:    r.Transactions,
		SkippedRows:     r.SkippedRows,
		SkippedFamilies: r.SkippedFamilies,
		Timestamp:       im.now().UTC(),
	})
	if err != nil {
		// Don't fail the import - the snapshot is already committed
		logger.ErrorContext(ctx, "Failed to publish import completed message", log.FieldError, err)
	}
}

func fieldError(record, field, msg string, err error) *core.ValidationError {
	return &core.ValidationError{Record: record, Field: field, Msg: msg, Err: err}
}

func numberError(field string, err error) *core.ValidationError {
	if errors.Is(err, core.ErrEmptyNumber) {
		return fieldError(RecordFamily, field, "is required", err)
	}
	return fieldError(RecordFamily, field, "must be a number", err)
}
