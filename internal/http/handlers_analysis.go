package http

import (
	"net/http"

	"household/internal/analysis"
)

func (s *Server) handleMemberContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req contributionRequest
	if err := decodeJSON(w, r, &req, 0); err != nil {
		handleServiceError(ctx, w, err, "member_contribution")
		return
	}
	entries, err := req.toEntries()
	if err != nil {
		handleServiceError(ctx, w, err, "member_contribution")
		return
	}

	result, err := s.deps.Analysis.MemberContribution(ctx, entries)
	if err != nil {
		handleServiceError(ctx, w, err, "member_contribution")
		return
	}
	NewJSONResponse().Body(result).Write(w)
}

func (s *Server) handleSavingsOptimization(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var in analysis.SavingsInput
	if err := decodeJSON(w, r, &in, 0); err != nil {
		handleServiceError(ctx, w, err, "savings_optimization")
		return
	}

	result, err := s.deps.Analysis.SavingsOptimization(ctx, in)
	if err != nil {
		handleServiceError(ctx, w, err, "savings_optimization")
		return
	}
	NewJSONResponse().Body(result).Write(w)
}

// handleFamilyContribution runs the contribution analysis over stored transactions.
func (s *Server) handleFamilyContribution(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	result, err := s.deps.Analysis.FamilyContribution(ctx, r.PathValue("familyId"))
	if err != nil {
		handleServiceError(ctx, w, err, "family_contribution")
		return
	}
	NewJSONResponse().Body(result).Write(w)
}
