package core

// Dashboard aggregation: order-independent folds over same-kind entity
// slices. Callers filter for relevance first (active loans, one frequency);
// the folds themselves never consult status or dates. Zero-value Money
// contributes nothing, so a record whose amount failed to decode is a no-op
// rather than an abort.

// BudgetTotals is the dashboard roll-up across budgets. Remaining may be
// negative when spend exceeds allocation.
type BudgetTotals struct {
	Budgeted  Money `json:"budgeted"`
	Spent     Money `json:"spent"`
	Remaining Money `json:"remaining"`
}

// SumBudgets folds budget allocations and spend.
func SumBudgets(budgets []Budget) BudgetTotals {
	var t BudgetTotals
	for _, b := range budgets {
		t.Budgeted = t.Budgeted.Add(b.Amount)
		t.Spent = t.Spent.Add(b.Spent)
	}
	t.Remaining = t.Budgeted.Sub(t.Spent)
	return t
}

// GoalTotals is the dashboard roll-up across goals. Remaining is clamped to
// zero for display; over-funded goals do not produce a negative shortfall.
type GoalTotals struct {
	Target    Money `json:"target"`
	Saved     Money `json:"saved"`
	Remaining Money `json:"remaining"`
}

// SumGoals folds goal targets and saved amounts.
func SumGoals(goals []Goal) GoalTotals {
	var t GoalTotals
	for _, g := range goals {
		t.Target = t.Target.Add(g.Target)
		t.Saved = t.Saved.Add(g.Current)
	}
	t.Remaining = t.Target.Sub(t.Saved).ClampNonNegative()
	return t
}

// LoanTotals partitions outstanding balances by direction.
type LoanTotals struct {
	ToPay     Money `json:"to_pay"`
	ToReceive Money `json:"to_receive"`
}

// SumLoans folds remaining balances, partitioned by loan type. Pass only the
// loans that should count, typically ActiveLoans(...).
func SumLoans(loans []Loan) LoanTotals {
	var t LoanTotals
	for _, l := range loans {
		switch l.Type {
		case LoanBorrowed:
			t.ToPay = t.ToPay.Add(l.RemainingBalance)
		case LoanLent:
			t.ToReceive = t.ToReceive.Add(l.RemainingBalance)
		}
	}
	return t
}

// ActiveLoans filters out paid-off loans; overdue loans still count as
// outstanding.
func ActiveLoans(loans []Loan, today CalendarDate) []Loan {
	out := make([]Loan, 0, len(loans))
	for _, l := range loans {
		if LoanStatusOf(l, today) != LoanPaidOff {
			out = append(out, l)
		}
	}
	return out
}

// SumBills totals recurring obligations.
func SumBills(bills []Bill) Money {
	var t Money
	for _, b := range bills {
		t = t.Add(b.Amount)
	}
	return t
}

// BillsByFrequency keeps only bills of the given frequency.
func BillsByFrequency(bills []Bill, f Frequency) []Bill {
	out := make([]Bill, 0, len(bills))
	for _, b := range bills {
		if b.Frequency == f {
			out = append(out, b)
		}
	}
	return out
}

// SumAccounts totals signed balances across all accounts; a negative credit
// balance subtracts from net worth.
func SumAccounts(accounts []Account) Money {
	var t Money
	for _, a := range accounts {
		t = t.Add(a.Balance)
	}
	return t
}
