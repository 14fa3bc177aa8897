package analysis

import (
	"math"
	"strings"

	"household/internal/core"
)

// SavingsInput carries the figures the optimizer needs. Pointers distinguish a
// missing value from a legitimate zero (dependents is often 0).
type SavingsInput struct {
	FamilyIncome    *float64 `json:"familyIncome"`
	Savings         *float64 `json:"savings"`
	TotalExpenses   *float64 `json:"totalExpenses"`
	Dependents      *int     `json:"dependents"`
	MonthlyExpenses *float64 `json:"monthlyExpenses"`
}

// Income bands of the suggested saving rate. The table is not monotonic:
// incomes up to 50000 get 15% while the band just above gets 10%.
var savingBands = []struct {
	above   float64
	percent int
}{
	{200000, 25},
	{100000, 20},
	{50000, 10},
}

const (
	defaultSavingPercent = 15
	baseIdealRatio       = 0.5
	perDependentRatio    = 0.05
)

// SuggestedSavingPercentage returns the saving rate suggested for an income.
func SuggestedSavingPercentage(income float64) int {
	for _, b := range savingBands {
		if income > b.above {
			return b.percent
		}
	}
	return defaultSavingPercent
}

// OptimizeSavings derives the suggested saving rate, the ideal and current
// expense-to-income ratios and the resulting spending status.
func OptimizeSavings(in SavingsInput) (result core.SavingsOptimization, err error) {
	defer recoverComputation("savings optimization", &err)

	if err := in.validate(); err != nil {
		return core.SavingsOptimization{}, err
	}

	income := *in.FamilyIncome
	ideal := baseIdealRatio + float64(*in.Dependents)*perDependentRatio + *in.MonthlyExpenses/income
	current := *in.TotalExpenses / income

	return core.SavingsOptimization{
		FamilyIncome:                income,
		Savings:                     *in.Savings,
		TotalExpenses:               *in.TotalExpenses,
		Dependents:                  *in.Dependents,
		MonthlyExpenses:             *in.MonthlyExpenses,
		SuggestedSavingPercentage:   SuggestedSavingPercentage(income),
		IdealExpenseToIncomeRatio:   core.FormatPercent(ideal),
		CurrentExpenseToIncomeRatio: core.FormatPercent(current),
		SpendingStatus:              classify(current, ideal),
	}, nil
}

func classify(current, ideal float64) core.SpendingStatus {
	switch {
	case current > ideal:
		return core.Overspending
	case current < ideal:
		return core.Underspending
	default:
		return core.Balanced
	}
}

func (in SavingsInput) validate() error {
	var missing []string
	if in.FamilyIncome == nil {
		missing = append(missing, "familyIncome")
	}
	if in.Savings == nil {
		missing = append(missing, "savings")
	}
	if in.TotalExpenses == nil {
		missing = append(missing, "totalExpenses")
	}
	if in.Dependents == nil {
		missing = append(missing, "dependents")
	}
	if in.MonthlyExpenses == nil {
		missing = append(missing, "monthlyExpenses")
	}
	if len(missing) > 0 {
		return core.NewInvalidInput("missing required fields: %s", strings.Join(missing, ", "))
	}

	figures := []struct {
		name  string
		value float64
	}{
		{"familyIncome", *in.FamilyIncome},
		{"savings", *in.Savings},
		{"totalExpenses", *in.TotalExpenses},
		{"monthlyExpenses", *in.MonthlyExpenses},
	}
	for _, f := range figures {
		if math.IsNaN(f.value) || math.IsInf(f.value, 0) || f.value < 0 {
			return core.NewInvalidInput("%s must be a non-negative number", f.name)
		}
	}
	if *in.Dependents < 0 {
		return core.NewInvalidInput("dependents must be a non-negative integer")
	}
	if *in.FamilyIncome == 0 {
		return core.NewInvalidInput("familyIncome must be greater than zero")
	}
	return nil
}
