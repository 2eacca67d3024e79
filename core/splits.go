package core

import "fmt"

const (
	// MaxPrizeSplits caps how many ranked shares a prize table may carry.
	MaxPrizeSplits = 5

	// TotalBasisPoints is the required sum of a non-empty prize table.
	TotalBasisPoints = 10000
)

// PrizeSplits is an ordered list of basis-point shares defining how the
// pot divides among ranked winners. An empty table means winner-takes-all.
type PrizeSplits []uint64

// Validate checks a prize table: every share positive, at most
// MaxPrizeSplits entries, shares summing to TotalBasisPoints. The empty
// table is valid.
func (p PrizeSplits) Validate() error {
	if len(p) == 0 {
		return nil
	}
	if len(p) > MaxPrizeSplits {
		return fmt.Errorf("too many prize splits: %d (max %d)", len(p), MaxPrizeSplits)
	}
	var sum uint64
	for i, share := range p {
		if share == 0 {
			return fmt.Errorf("prize split %d is zero", i+1)
		}
		sum += share
	}
	if sum != TotalBasisPoints {
		return fmt.Errorf("prize splits sum to %d basis points, want %d", sum, TotalBasisPoints)
	}
	return nil
}

// RequiredWinners is the number of winners a report must carry: one for
// winner-takes-all, otherwise one per split place.
func (p PrizeSplits) RequiredWinners() int {
	if len(p) == 0 {
		return 1
	}
	return len(p)
}
