package core

import "github.com/shopspring/decimal"

// Percentage is a derived ratio times 100. Unclamped: values above 100 are
// meaningful (over-spent budget, over-funded goal). Clamp only for display.
type Percentage float64

var hundred = decimal.NewFromInt(100)

// Clamped bounds p to [0, 100] for display.
func (p Percentage) Clamped() Percentage {
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ratio returns part/whole*100, or 0 when whole is not positive. All
// percentage derivations are total; a zero denominator yields the sentinel 0
// instead of raising.
func ratio(part, whole Money) Percentage {
	if !whole.IsPositive() {
		return 0
	}
	p, _ := part.Decimal.Mul(hundred).Div(whole.Decimal).Round(4).Float64()
	return Percentage(p)
}

// LoanProgress is the share of the original amount already repaid.
func LoanProgress(l Loan) Percentage {
	return ratio(l.OriginalAmount.Sub(l.RemainingBalance), l.OriginalAmount)
}

// LoanStatusOf derives a loan's status: paid off once the balance reaches
// zero, overdue when a scheduled payment date is strictly past, active
// otherwise.
func LoanStatusOf(l Loan, today CalendarDate) LoanStatus {
	if l.RemainingBalance.IsZero() {
		return LoanPaidOff
	}
	if !l.NextPaymentDate.IsEmpty() && l.NextPaymentDate.Before(today) {
		return LoanOverdue
	}
	return LoanActive
}

// BudgetPercentage is spend over allocation. Not clamped here; over-100
// values drive the over-budget classification.
func BudgetPercentage(b Budget) Percentage {
	return ratio(b.Spent, b.Amount)
}

// BudgetStatusOf buckets a spend percentage against the shared thresholds.
func BudgetStatusOf(p Percentage) BudgetState {
	switch {
	case float64(p) >= BudgetOverPercent:
		return BudgetOverBudget
	case float64(p) >= BudgetWarningPercent:
		return BudgetWarning
	default:
		return BudgetOnTrack
	}
}

// GoalProgress is the share of the target already saved.
func GoalProgress(g Goal) Percentage {
	return ratio(g.Current, g.Target)
}

// GoalCompleted reports whether the goal is fully funded. Compares the
// amounts directly: the rounded progress percentage can read 100 while a
// fraction of a cent is still missing.
func GoalCompleted(g Goal) bool {
	return !g.Current.LessThan(g.Target)
}

// Urgency is the derived proximity of a date to today.
type Urgency struct {
	DaysUntil int           `json:"days_until"`
	Bucket    UrgencyBucket `json:"bucket"`
}

// DueUrgency classifies a due date relative to today using whole calendar
// days. An unset date is simply scheduled.
func DueUrgency(date, today CalendarDate) Urgency {
	if date.IsEmpty() {
		return Urgency{Bucket: BucketScheduled}
	}
	days := date.DaysUntil(today)
	u := Urgency{DaysUntil: days}
	switch {
	case days < 0:
		u.Bucket = BucketOverdue
	case days == 0:
		u.Bucket = BucketDueToday
	case days <= DueSoonDays:
		u.Bucket = BucketDueSoon
	case days <= DueThisWeekDays:
		u.Bucket = BucketDueThisWeek
	default:
		u.Bucket = BucketScheduled
	}
	return u
}

// BillStatusOf derives a bill's status: paid when marked paid for the
// current cycle, overdue when the due date is past, scheduled otherwise.
func BillStatusOf(b Bill, today CalendarDate) BillStatus {
	if b.Paid {
		return BillPaid
	}
	if !b.NextDue.IsEmpty() && b.NextDue.Before(today) {
		return BillOverdue
	}
	return BillScheduled
}
