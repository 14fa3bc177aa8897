package core

// MemberShare is one member's contribution to the household total.
type MemberShare struct {
	MemberID     string  `json:"memberId"`
	Contribution float64 `json:"contribution"`
	Percentage   string  `json:"percentage"`
}

// HighestSpender names the member with the largest cumulative contribution.
type HighestSpender struct {
	MemberID string  `json:"memberId"`
	Amount   float64 `json:"amount"`
}

// MemberContribution is the spend-share breakdown of a set of transactions.
type MemberContribution struct {
	TotalExpenses     float64        `json:"totalExpenses"`
	MemberPercentages []MemberShare  `json:"memberPercentages"`
	HighestSpender    HighestSpender `json:"highestSpender"`
}

// SpendingStatus classifies the current expense-to-income ratio against the ideal one.
type SpendingStatus string

const (
	Overspending  SpendingStatus = "overspending"
	Underspending SpendingStatus = "underspending"
	Balanced      SpendingStatus = "balanced"
)

// SavingsOptimization is the savings heuristic computed from a family's figures.
type SavingsOptimization struct {
	FamilyIncome                float64        `json:"familyIncome"`
	Savings                     float64        `json:"savings"`
	TotalExpenses               float64        `json:"totalExpenses"`
	Dependents                  int            `json:"dependents"`
	MonthlyExpenses             float64        `json:"monthlyExpenses"`
	SuggestedSavingPercentage   int            `json:"suggestedSavingPercentage"`
	IdealExpenseToIncomeRatio   string         `json:"idealExpenseToIncomeRatio"`
	CurrentExpenseToIncomeRatio string         `json:"currentExpenseToIncomeRatio"`
	SpendingStatus              SpendingStatus `json:"spendingStatus"`
}
