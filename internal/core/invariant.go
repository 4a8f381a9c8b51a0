package core

import (
	"fmt"

	"github.com/google/uuid"
)

// InvariantViolation is a programming-error class failure: a state that
// validation should have made unreachable. It is reported distinctly from
// user validation errors and the offending mutation keeps its pre-state.
type InvariantViolation struct {
	Kind   EntityKind
	ID     uuid.UUID
	Reason string
}

func (e *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation on %s %s: %s", e.Kind, e.ID, e.Reason)
}

func violation(kind EntityKind, id uuid.UUID, reason string) error {
	return &InvariantViolation{Kind: kind, ID: id, Reason: reason}
}

// CheckLoan asserts 0 <= remaining <= original and the paid-off/zero link.
func CheckLoan(l Loan) error {
	if l.RemainingBalance.IsNegative() {
		return violation(KindLoan, l.ID, "remaining balance below zero")
	}
	if l.RemainingBalance.GreaterThan(l.OriginalAmount) {
		return violation(KindLoan, l.ID, "remaining balance exceeds original amount")
	}
	if l.RemainingBalance.IsZero() && l.Status != LoanPaidOff {
		return violation(KindLoan, l.ID, "zero balance without paid_off status")
	}
	return nil
}

// CheckBudget asserts the category-pair set is non-empty and duplicate-free.
func CheckBudget(b Budget) error {
	if len(b.Categories) == 0 {
		return violation(KindBudget, b.ID, "empty category set")
	}
	seen := make(map[CategoryPair]struct{}, len(b.Categories))
	for _, p := range b.Categories {
		if _, dup := seen[p]; dup {
			return violation(KindBudget, b.ID, "duplicate category pair")
		}
		seen[p] = struct{}{}
	}
	return nil
}

// CheckGoal asserts the saved amount never goes negative.
func CheckGoal(g Goal) error {
	if g.Current.IsNegative() {
		return violation(KindGoal, g.ID, "current amount below zero")
	}
	return nil
}

// CheckAccount asserts the balance is a representable amount. Sign is not
// constrained: credit accounts run negative.
func CheckAccount(a Account) error {
	// decimal values are always finite; the representability check guards
	// against amounts so large they no longer round-trip two decimals.
	if a.Balance.Exponent() < -9 {
		return violation(KindAccount, a.ID, "balance precision out of range")
	}
	return nil
}
