package http

import (
	"net/http"

	"household/internal/core"
)

const (
	msgTransactionSaved = "Transaction saved successfully!"
	msgTransactionAdded = "Transaction added successfully!"
	msgFamilyCreated    = "Family created successfully"
)

type transactionCreated struct {
	Message     string           `json:"message"`
	Transaction core.Transaction `json:"transaction"`
}

type familyCreated struct {
	Message string             `json:"message"`
	Family  core.FamilyProfile `json:"family"`
}

// handleAddTransaction serves both transaction endpoints; they differ only
// in their success message.
func (s *Server) handleAddTransaction(message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		var req transactionRequest
		if err := decodeJSON(w, r, &req, 0); err != nil {
			handleServiceError(ctx, w, err, "add_transaction")
			return
		}
		tx, err := req.toTransaction()
		if err != nil {
			handleServiceError(ctx, w, err, "add_transaction")
			return
		}

		saved, err := s.deps.Transactions.AddTransaction(ctx, tx)
		if err != nil {
			handleServiceError(ctx, w, err, "add_transaction")
			return
		}
		NewJSONResponse().Status(http.StatusCreated).
			Body(transactionCreated{Message: message, Transaction: saved}).Write(w)
	}
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	txs, err := s.deps.Transactions.ListTransactions(ctx, r.PathValue("familyId"))
	if err != nil {
		handleServiceError(ctx, w, err, "list_transactions")
		return
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleCreateFamily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req familyRequest
	if err := decodeJSON(w, r, &req, 0); err != nil {
		handleServiceError(ctx, w, err, "create_family")
		return
	}
	f, err := req.toFamily()
	if err != nil {
		handleServiceError(ctx, w, err, "create_family")
		return
	}

	created, err := s.deps.Families.CreateFamily(ctx, f)
	if err != nil {
		handleServiceError(ctx, w, err, "create_family")
		return
	}
	NewJSONResponse().Status(http.StatusCreated).
		Body(familyCreated{Message: msgFamilyCreated, Family: created}).Write(w)
}

func (s *Server) handleGetFamily(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	f, err := s.deps.Families.GetFamily(ctx, r.PathValue("familyId"))
	if err != nil {
		handleServiceError(ctx, w, err, "get_family")
		return
	}
	NewJSONResponse().Body(f).Write(w)
}

func (s *Server) handleListFamilies(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	families, err := s.deps.Families.ListFamilies(ctx)
	if err != nil {
		handleServiceError(ctx, w, err, "list_families")
		return
	}
	if families == nil {
		families = []core.FamilyProfile{}
	}
	NewJSONResponse().Body(families).Write(w)
}
