package services

import (
	"context"
	"errors"

	"household/internal/analysis"
	"household/internal/core"
	"household/internal/log"
	"household/internal/metrics"
	"household/internal/storage"
)

const (
	analysisContribution = "member_contribution"
	analysisSavings      = "savings_optimization"
)

// AnalysisService runs the analyzers and records their outcomes.
type AnalysisService struct {
	transactions storage.TransactionLister
	metrics      *metrics.Metrics
	logger       *log.Logger
}

func NewAnalysisService(transactions storage.TransactionLister, m *metrics.Metrics, logger *log.Logger) *AnalysisService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &AnalysisService{
		transactions: transactions,
		metrics:      m,
		logger:       logger.WithComponent(log.ComponentAnalysis),
	}
}

// MemberContribution computes the spend share of each member in entries.
func (s *AnalysisService) MemberContribution(ctx context.Context, entries []analysis.ContributionEntry) (core.MemberContribution, error) {
	res, err := analysis.MemberContribution(entries)
	s.record(ctx, analysisContribution, err)
	return res, err
}

// FamilyContribution runs the contribution analysis over the stored
// transactions of one family.
func (s *AnalysisService) FamilyContribution(ctx context.Context, familyID string) (core.MemberContribution, error) {
	txs, err := s.transactions.ListTransactions(ctx, familyID)
	if err != nil {
		s.record(ctx, analysisContribution, err)
		return core.MemberContribution{}, err
	}
	if len(txs) == 0 {
		err := core.NewInvalidInput("no transactions found for family %s", familyID)
		s.record(ctx, analysisContribution, err)
		return core.MemberContribution{}, err
	}

	entries := make([]analysis.ContributionEntry, len(txs))
	for i, t := range txs {
		entries[i] = analysis.ContributionEntry{MemberID: t.MemberID, Amount: t.Amount}
	}
	return s.MemberContribution(ctx, entries)
}

// SavingsOptimization runs the savings heuristic.
func (s *AnalysisService) SavingsOptimization(ctx context.Context, in analysis.SavingsInput) (core.SavingsOptimization, error) {
	res, err := analysis.OptimizeSavings(in)
	s.record(ctx, analysisSavings, err)
	return res, err
}

func (s *AnalysisService) record(ctx context.Context, name string, err error) {
	var invalid *core.InvalidInputError
	switch {
	case err == nil:
		s.metrics.ObserveAnalysis(name, metrics.OutcomeSuccess)
	case errors.As(err, &invalid):
		s.metrics.ObserveAnalysis(name, metrics.OutcomeRejected)
		s.logger.DebugContext(ctx, "Analysis input rejected",
			log.FieldOperation, name, log.FieldReason, invalid.Message)
	default:
		s.metrics.ObserveAnalysis(name, metrics.OutcomeFailed)
		s.logger.ErrorContext(ctx, "Analysis failed",
			log.FieldOperation, name, log.FieldError, err)
	}
}
