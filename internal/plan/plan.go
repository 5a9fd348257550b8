// Package plan checks fan-out transfer plans before any value moves.
package plan

import (
	"errors"
	"fmt"

	"github.com/OpenAudio/solana-programs/internal/safemath"
)

var (
	ErrLengthMismatch   = errors.New("amounts and recipients differ in length")
	ErrSumMismatch      = errors.New("amounts do not sum to total")
	ErrAmountOverflow   = errors.New("amount overflow")
	ErrEmptyPlan        = errors.New("empty transfer plan")
	ErrFeeExceedsAmount = errors.New("fee exceeds amount")
)

// Policy holds per-operation plan rules.
type Policy struct {
	// AllowEmpty accepts a plan with no recipients as a no-op.
	AllowEmpty bool
}

// Validate accepts the plan iff len(amounts) == recipients and the amounts
// sum exactly to total without overflowing.
func Validate(amounts []uint64, total uint64, recipients int, policy Policy) error {
	if len(amounts) != recipients {
		return fmt.Errorf("%w: %d amounts, %d recipients", ErrLengthMismatch, len(amounts), recipients)
	}
	if len(amounts) == 0 && !policy.AllowEmpty {
		return ErrEmptyPlan
	}
	sum, ok := safemath.Sum64(amounts...)
	if !ok {
		return ErrAmountOverflow
	}
	if sum != total {
		return fmt.Errorf("%w: sum %d, total %d", ErrSumMismatch, sum, total)
	}
	return nil
}

// ValidateFee rejects a relay fee larger than the amount it is taken from.
func ValidateFee(amount, fee uint64) error {
	if fee > amount {
		return fmt.Errorf("%w: fee %d, amount %d", ErrFeeExceedsAmount, fee, amount)
	}
	return nil
}
