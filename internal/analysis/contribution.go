// Package analysis holds the pure financial calculators served by the API.
//
// Nothing here touches storage or shared state, so every function is safe to
// call concurrently.
package analysis

import (
	"fmt"
	"math"
	"strings"

	"household/internal/core"
)

// ContributionEntry is the part of a transaction the contribution analyzer needs.
type ContributionEntry struct {
	MemberID string  `json:"memberId"`
	Amount   float64 `json:"amount"`
}

// TieBreakPolicy names how equal member totals are resolved when picking the
// highest spender.
type TieBreakPolicy string

// FirstMaximumWins keeps the member seen first among those sharing the maximum.
// Members are visited in the order of their first appearance in the input.
const FirstMaximumWins TieBreakPolicy = "first-maximum-wins"

type memberTotal struct {
	memberID string
	amount   float64
}

// MemberContribution computes each member's share of the total spend and the
// member with the largest cumulative contribution, using FirstMaximumWins.
func MemberContribution(entries []ContributionEntry) (result core.MemberContribution, err error) {
	defer recoverComputation("member contribution", &err)

	if len(entries) == 0 {
		return core.MemberContribution{}, core.NewInvalidInput("transactions must be a non-empty list")
	}

	totals, total, err := groupByMember(entries)
	if err != nil {
		return core.MemberContribution{}, err
	}
	if total == 0 {
		return core.MemberContribution{}, core.NewInvalidInput("total expenses are zero, percentages are undefined")
	}

	result = core.MemberContribution{
		TotalExpenses:     total,
		MemberPercentages: make([]core.MemberShare, 0, len(totals)),
	}
	for i, mt := range totals {
		result.MemberPercentages = append(result.MemberPercentages, core.MemberShare{
			MemberID:     mt.memberID,
			Contribution: mt.amount,
			Percentage:   core.FormatFixed(mt.amount / total * 100),
		})
		// strictly greater, so the earliest member keeps a tie
		if i == 0 || mt.amount > result.HighestSpender.Amount {
			result.HighestSpender = core.HighestSpender{MemberID: mt.memberID, Amount: mt.amount}
		}
	}
	return result, nil
}

// groupByMember sums amounts per member in first-seen order.
func groupByMember(entries []ContributionEntry) ([]memberTotal, float64, error) {
	index := make(map[string]int, len(entries))
	totals := make([]memberTotal, 0, len(entries))
	var total float64

	for i, e := range entries {
		id := strings.TrimSpace(e.MemberID)
		if id == "" {
			return nil, 0, core.NewInvalidInput("transactions[%d]: memberId is required", i)
		}
		if math.IsNaN(e.Amount) || math.IsInf(e.Amount, 0) || e.Amount < 0 {
			return nil, 0, core.NewInvalidInput("transactions[%d]: amount must be a non-negative number", i)
		}

		total += e.Amount
		if pos, ok := index[id]; ok {
			totals[pos].amount += e.Amount
			continue
		}
		index[id] = len(totals)
		totals = append(totals, memberTotal{memberID: id, amount: e.Amount})
	}
	return totals, total, nil
}

// recoverComputation turns a panic in a calculator into an InternalComputationError.
func recoverComputation(op string, err *error) {
	if r := recover(); r != nil {
		*err = &core.InternalComputationError{Operation: op, Err: fmt.Errorf("panic: %v", r)}
	}
}
