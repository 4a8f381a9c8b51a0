// Package core holds the domain model and the pure derivation and
// aggregation logic: money and calendar-date primitives, the entity types,
// per-entity validation, display-state derivation and dashboard folds.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Money is an exact decimal amount. The zero value is zero money, which
// keeps aggregation folds total even when an inbound record carried no
// usable amount. Balances may be negative (credit accounts); user-entered
// operation amounts are validated positive at the mutation boundary.
type Money struct {
	decimal.Decimal
}

// NewMoney builds a Money from whole units and cents, e.g. NewMoney(12, 34)
// is 12.34.
func NewMoney(units int64, cents int64) Money {
	return Money{decimal.New(units*100+cents, -2)}
}

// MoneyFromDecimal wraps a raw decimal as Money.
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{d}
}

// ParseMoney converts a decimal string to Money, rounding half-up past the
// second fractional digit. Both dot (12.34) and comma (12,34) separators are
// accepted. A leading minus sign is allowed; callers that need a strictly
// positive amount validate separately.
func ParseMoney(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	return Money{d.Round(2)}, nil
}

// LenientMoney parses like ParseMoney but maps malformed or missing input to
// zero. Aggregation inputs go through this so a bad record contributes
// nothing instead of aborting the fold.
func LenientMoney(s string) Money {
	m, err := ParseMoney(s)
	if err != nil {
		return Money{}
	}
	return m
}

func (m Money) Add(o Money) Money { return Money{m.Decimal.Add(o.Decimal)} }
func (m Money) Sub(o Money) Money { return Money{m.Decimal.Sub(o.Decimal)} }
func (m Money) Neg() Money        { return Money{m.Decimal.Neg()} }

// GreaterThan reports m > o.
func (m Money) GreaterThan(o Money) bool { return m.Decimal.GreaterThan(o.Decimal) }

// LessThan reports m < o.
func (m Money) LessThan(o Money) bool { return m.Decimal.LessThan(o.Decimal) }

// Equal reports value equality regardless of exponent representation.
func (m Money) Equal(o Money) bool { return m.Decimal.Equal(o.Decimal) }

// ClampNonNegative returns m, or zero when m is negative. Display-only; the
// stored value is never clamped.
func (m Money) ClampNonNegative() Money {
	if m.IsNegative() {
		return Money{}
	}
	return m
}

// Validate rejects non-positive amounts. Used for user-entered operation
// amounts (payments, contributions, budget allocations).
func (m Money) Validate() error {
	if !m.IsPositive() {
		return ErrInvalidAmount
	}
	return nil
}

// String renders with two fractional digits, e.g. "12.30".
func (m Money) String() string {
	return m.Decimal.StringFixed(2)
}
