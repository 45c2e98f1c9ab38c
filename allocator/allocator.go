// Selection of disbursement candidates under a recipient quota and a
// balance budget. Used for both the initial migration payout and the
// bonus payout.

package allocator

import (
	"errors"
	"math/big"
	"sort"
)

var (
	// ErrNoneSelected is returned when the input was non-empty but no
	// candidate fit under the quota/balance bounds. Callers alert on it
	// instead of silently doing nothing.
	ErrNoneSelected = errors.New("could not select any candidate: insufficient balance or cap on allowed disbursements")

	ErrNegativeQuota   = errors.New("quota must be >= 0")
	ErrBalanceInvalid  = errors.New("balance must be a non-negative integer")
	ErrAmountInvalid   = errors.New("candidate amount must be a non-negative integer")
	ErrUnknownOrdering = errors.New("unknown ordering policy")
)

// Ordering is the admission order policy. Ascending maximizes the number
// of candidates served per unit of balance; descending maximizes the
// value moved per slot. The migration service runs ascending.
type Ordering int

const (
	AscendingAmount Ordering = iota
	DescendingAmount
)

// Candidate pairs an opaque reference (typically a request row) with the
// amount its disbursement would consume.
type Candidate struct {
	Ref    interface{}
	Amount *big.Int
}

// Result reports the accepted prefix and what it consumed.
type Result struct {
	// Accepted is the selected prefix of the sorted candidates.
	Accepted []Candidate
	// Consumed is the cumulative amount of the accepted candidates.
	Consumed *big.Int
	// Unserved is the number of candidates left out.
	Unserved int
	// FirstExcluded is the amount of the first candidate that broke a
	// bound, nil when every candidate was accepted.
	FirstExcluded *big.Int
}

// Select sorts candidates by amount under the given ordering (stable, so
// equal amounts keep their input order) and greedily admits them while
// the accepted count stays below quota and the running sum stays within
// balance. Admission stops at the first violation: after sorting, no
// later candidate can fit where an earlier one did not.
func Select(candidates []Candidate, quota int, balance *big.Int, ordering Ordering) (*Result, error) {
	if quota < 0 {
		return nil, ErrNegativeQuota
	}
	if balance == nil || balance.Sign() < 0 {
		return nil, ErrBalanceInvalid
	}
	for _, c := range candidates {
		if c.Amount == nil || c.Amount.Sign() < 0 {
			return nil, ErrAmountInvalid
		}
	}

	sorted := make([]Candidate, len(candidates))
	copy(sorted, candidates)
	switch ordering {
	case AscendingAmount:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Amount.Cmp(sorted[j].Amount) < 0
		})
	case DescendingAmount:
		sort.SliceStable(sorted, func(i, j int) bool {
			return sorted[i].Amount.Cmp(sorted[j].Amount) > 0
		})
	default:
		return nil, ErrUnknownOrdering
	}

	accum := new(big.Int)
	selected := 0
	var firstExcluded *big.Int
	for selected < len(sorted) {
		if selected >= quota {
			firstExcluded = new(big.Int).Set(sorted[selected].Amount)
			break
		}
		next := new(big.Int).Add(accum, sorted[selected].Amount)
		if balance.Cmp(next) < 0 {
			firstExcluded = new(big.Int).Set(sorted[selected].Amount)
			break
		}
		accum = next
		selected++
	}

	if selected == 0 && len(sorted) > 0 {
		return nil, ErrNoneSelected
	}

	return &Result{
		Accepted:      sorted[:selected],
		Consumed:      accum,
		Unserved:      len(sorted) - selected,
		FirstExcluded: firstExcluded,
	}, nil
}
