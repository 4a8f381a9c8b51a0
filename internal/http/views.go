package http

import (
	"finbook/internal/core"
)

// Read-time views. Derived state is attached when a list is served and is
// never stored, so it cannot go stale between mutations.

type AccountView struct {
	core.Account
}

type LoanView struct {
	core.Loan
	Progress      core.Percentage `json:"progress"`
	DerivedStatus core.LoanStatus `json:"derived_status"`
	Urgency       core.Urgency    `json:"urgency"`
}

type BudgetView struct {
	core.Budget
	Percentage core.Percentage  `json:"percentage"`
	Remaining  core.Money       `json:"remaining"`
	State      core.BudgetState `json:"state"`
}

type GoalView struct {
	core.Goal
	Progress  core.Percentage `json:"progress"`
	Remaining core.Money      `json:"remaining"`
	Completed bool            `json:"completed"`
	Urgency   core.Urgency    `json:"urgency"`
}

type BillView struct {
	core.Bill
	DerivedStatus core.BillStatus `json:"derived_status"`
	Urgency       core.Urgency    `json:"urgency"`
}

type CategoryView struct {
	core.Category
	Subcategories []core.Subcategory `json:"subcategories,omitempty"`
}

// DashboardView is the aggregation roll-up served at /api/dashboard.
type DashboardView struct {
	NetBalance   core.Money        `json:"net_balance"`
	Budgets      core.BudgetTotals `json:"budgets"`
	Goals        core.GoalTotals   `json:"goals"`
	Loans        core.LoanTotals   `json:"loans"`
	MonthlyBills core.Money        `json:"monthly_bills"`
	BillsTotal   core.Money        `json:"bills_total"`
	AsOf         core.CalendarDate `json:"as_of"`
}

func loanView(l core.Loan, today core.CalendarDate) LoanView {
	return LoanView{
		Loan:          l,
		Progress:      core.LoanProgress(l),
		DerivedStatus: core.LoanStatusOf(l, today),
		Urgency:       core.DueUrgency(l.NextPaymentDate, today),
	}
}

func budgetView(b core.Budget) BudgetView {
	p := core.BudgetPercentage(b)
	return BudgetView{
		Budget:     b,
		Percentage: p,
		Remaining:  b.Amount.Sub(b.Spent),
		State:      core.BudgetStatusOf(p),
	}
}

func goalView(g core.Goal, today core.CalendarDate) GoalView {
	return GoalView{
		Goal:      g,
		Progress:  core.GoalProgress(g),
		Remaining: g.Target.Sub(g.Current).ClampNonNegative(),
		Completed: core.GoalCompleted(g),
		Urgency:   core.DueUrgency(g.TargetDate, today),
	}
}

func billView(b core.Bill, today core.CalendarDate) BillView {
	return BillView{
		Bill:          b,
		DerivedStatus: core.BillStatusOf(b, today),
		Urgency:       core.DueUrgency(b.NextDue, today),
	}
}
