// Package alloc implements the proportional allocator: given a stable
// input amount and a basket's target weights, it computes the slice of
// the input assigned to each component.
//
// The allocator is a pure function with no side effects. It is the single
// place where the ratio arithmetic lives; both the live execution chain
// and the simulator call it, so the two paths stay numerically identical.
//
// All amounts use shopspring/decimal — never float64 for money.
package alloc

import (
	"errors"

	"github.com/shopspring/decimal"

	"github.com/nebula-protocol/cluster-mint-engine/internal/asset"
)

var (
	// ErrZeroTotalWeight is returned when the basket's target weights sum
	// to zero. Allocating against an empty weight vector would divide by
	// zero, and that is surfaced, never swallowed.
	ErrZeroTotalWeight = errors.New("alloc: total target weight is zero")

	// ErrNegativeInput is returned when the stable input amount is
	// negative.
	ErrNegativeInput = errors.New("alloc: input amount is negative")
)

// Allocation assigns a slice of the stable input to one basket component.
type Allocation struct {
	Info   asset.Info
	Amount decimal.Decimal
}

// TotalWeight sums the target weights of a cluster's component list.
func TotalWeight(target []asset.Asset) decimal.Decimal {
	total := decimal.Zero
	for _, t := range target {
		total = total.Add(t.Amount)
	}
	return total
}

// Plan computes, per component i,
//
//	ratio[i] = floor(input * weight[i] / totalWeight)
//
// using truncating integer division. The guarantees:
//
//   - every ratio is non-negative,
//   - Σ ratio[i] ≤ input — rounding loses, never gains; the shortfall is
//     the per-component truncation remainders and stays behind as dust
//     in the engine's stable balance.
//
// Plan preserves the order of the target list.
func Plan(target []asset.Asset, input decimal.Decimal) ([]Allocation, error) {
	if input.IsNegative() {
		return nil, ErrNegativeInput
	}
	total := TotalWeight(target)
	if total.IsZero() {
		return nil, ErrZeroTotalWeight
	}

	allocs := make([]Allocation, 0, len(target))
	for _, t := range target {
		ratio, err := asset.FloorMulDiv(input, t.Amount, total)
		if err != nil {
			return nil, err
		}
		allocs = append(allocs, Allocation{Info: t.Info, Amount: ratio})
	}
	return allocs, nil
}
