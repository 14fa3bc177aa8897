// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for decoding and validating JSON request
// bodies. Numbers are accepted either as JSON numbers or numeric strings,
// since spreadsheet-fed clients often send both.

package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"household/internal/analysis"
	"household/internal/core"
)

// defaultMaxBodyBytes bounds JSON request bodies.
const defaultMaxBodyBytes = 1 << 20

// decodeJSON reads a single JSON value from the request body into dst.
// Malformed input yields a *core.InvalidInputError.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, maxBytes int64) error {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBodyBytes
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.NewInvalidInput("request body exceeds %d bytes", tooLarge.Limit)
		}
		return fmt.Errorf("read request body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return core.NewInvalidInput("request body is required")
	}

	if err := json.Unmarshal(body, dst); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &syntaxErr):
			return core.NewInvalidInput("malformed JSON at position %d", syntaxErr.Offset)
		case errors.As(err, &typeErr):
			return core.NewInvalidInput("field %s has the wrong type", typeErr.Field)
		default:
			return core.NewInvalidInput("malformed JSON: %v", err)
		}
	}
	return nil
}

// flexString accepts a JSON string or number and keeps its text.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*f = flexString(strings.TrimSpace(sanitizeInput(stringValue(v))))
	return nil
}

// stringValue converts a decoded JSON scalar to string.
func stringValue(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	default:
		return ""
	}
}

// sanitizeInput removes control characters except tab, newline and carriage return.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// transactionRequest is the body of the add-transaction endpoints.
type transactionRequest struct {
	FamilyID        flexString `json:"familyId"`
	MemberID        flexString `json:"memberId"`
	Category        flexString `json:"category"`
	Amount          flexString `json:"amount"`
	TransactionDate flexString `json:"transactionDate"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	const record = "transaction"
	tx := core.Transaction{
		FamilyID: string(req.FamilyID),
		MemberID: string(req.MemberID),
		Category: core.Category(req.Category),
	}

	amount, err := parseNumber(record, "amount", req.Amount)
	if err != nil {
		return core.Transaction{}, err
	}
	tx.Amount = amount

	if req.TransactionDate == "" {
		return core.Transaction{}, &core.ValidationError{Record: record, Field: "transactionDate", Msg: "is required"}
	}
	date, err := core.ParseDate(string(req.TransactionDate))
	if err != nil {
		return core.Transaction{}, &core.ValidationError{Record: record, Field: "transactionDate", Msg: "must be a valid date", Err: err}
	}
	tx.TransactionDate = date
	return tx, nil
}

// familyRequest is the body of POST /api/families.
type familyRequest struct {
	FamilyID           flexString `json:"familyId"`
	Income             flexString `json:"income"`
	Savings            flexString `json:"savings"`
	MonthlyExpenses    flexString `json:"monthlyExpenses"`
	LoanPayments       flexString `json:"loanPayments"`
	CreditCardSpending flexString `json:"creditCardSpending"`
	Dependents         flexString `json:"dependents"`
	FinancialGoalsMet  flexString `json:"financialGoalsMet"`
}

func (req familyRequest) toFamily() (core.FamilyProfile, error) {
	const record = "family profile"
	f := core.FamilyProfile{FamilyID: string(req.FamilyID)}

	figures := []struct {
		field string
		raw   flexString
		dst   *float64
	}{
		{"income", req.Income, &f.Income},
		{"savings", req.Savings, &f.Savings},
		{"monthlyExpenses", req.MonthlyExpenses, &f.MonthlyExpenses},
		{"loanPayments", req.LoanPayments, &f.LoanPayments},
		{"creditCardSpending", req.CreditCardSpending, &f.CreditCardSpending},
		{"financialGoalsMet", req.FinancialGoalsMet, &f.FinancialGoalsMet},
	}
	for _, fig := range figures {
		v, err := parseNumber(record, fig.field, fig.raw)
		if err != nil {
			return core.FamilyProfile{}, err
		}
		*fig.dst = v
	}

	if req.Dependents == "" {
		return core.FamilyProfile{}, &core.ValidationError{Record: record, Field: "dependents", Msg: "is required"}
	}
	dependents, err := core.ParseCount(string(req.Dependents))
	if err != nil {
		return core.FamilyProfile{}, &core.ValidationError{Record: record, Field: "dependents", Msg: "must be a number", Err: err}
	}
	f.Dependents = dependents
	return f, nil
}

func parseNumber(record, field string, raw flexString) (float64, error) {
	if raw == "" {
		return 0, &core.ValidationError{Record: record, Field: field, Msg: "is required"}
	}
	v, err := core.ParseAmount(string(raw))
	if err != nil {
		return 0, &core.ValidationError{Record: record, Field: field, Msg: "must be a number", Err: err}
	}
	return v, nil
}

// contributionRequest is the body of the member-contribution analysis.
type contributionRequest struct {
	Transactions []struct {
		MemberID flexString `json:"memberId"`
		Amount   flexString `json:"amount"`
	} `json:"transactions"`
}

func (req contributionRequest) toEntries() ([]analysis.ContributionEntry, error) {
	if len(req.Transactions) == 0 {
		return nil, core.NewInvalidInput("Invalid or missing transactions data.")
	}
	entries := make([]analysis.ContributionEntry, len(req.Transactions))
	for i, item := range req.Transactions {
		if item.Amount == "" {
			return nil, core.NewInvalidInput("transactions[%d]: amount is required", i)
		}
		amount, err := core.ParseAmount(string(item.Amount))
		if err != nil {
			return nil, core.NewInvalidInput("transactions[%d]: amount must be a number", i)
		}
		entries[i] = analysis.ContributionEntry{MemberID: string(item.MemberID), Amount: amount}
	}
	return entries, nil
}
