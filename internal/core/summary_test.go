package core

import "testing"

func TestSumBudgets(t *testing.T) {
	budgets := []Budget{
		{Amount: NewMoney(500, 0), Spent: NewMoney(450, 0)},
		{Amount: NewMoney(200, 0), Spent: NewMoney(300, 0)},
		{}, // malformed record decoded to zero amounts: contributes nothing
	}
	got := SumBudgets(budgets)
	if got.Budgeted.String() != "700.00" || got.Spent.String() != "750.00" {
		t.Errorf("totals = %s/%s", got.Budgeted, got.Spent)
	}
	if got.Remaining.String() != "-50.00" {
		t.Errorf("remaining may be negative, got %s", got.Remaining)
	}
}

func TestSumBudgetsOrderIndependent(t *testing.T) {
	a := []Budget{{Amount: NewMoney(1, 10)}, {Amount: NewMoney(2, 20)}, {Amount: NewMoney(3, 30)}}
	b := []Budget{a[2], a[0], a[1]}
	if !SumBudgets(a).Budgeted.Equal(SumBudgets(b).Budgeted) {
		t.Errorf("fold must be order-independent")
	}
}

func TestSumGoalsClampsRemaining(t *testing.T) {
	goals := []Goal{
		{Target: NewMoney(100, 0), Current: NewMoney(250, 0)}, // over-funded
	}
	got := SumGoals(goals)
	if !got.Remaining.IsZero() {
		t.Errorf("remaining must clamp to zero for display, got %s", got.Remaining)
	}
	if got.Saved.String() != "250.00" {
		t.Errorf("saved must stay unclamped, got %s", got.Saved)
	}
}

func TestSumLoansPartitionsByType(t *testing.T) {
	today := NewDate(2025, 1, 1)
	loans := []Loan{
		{Type: LoanBorrowed, OriginalAmount: NewMoney(1000, 0), RemainingBalance: NewMoney(800, 0)},
		{Type: LoanLent, OriginalAmount: NewMoney(500, 0), RemainingBalance: NewMoney(500, 0)},
		{Type: LoanBorrowed, OriginalAmount: NewMoney(300, 0)}, // paid off, filtered out
	}
	got := SumLoans(ActiveLoans(loans, today))
	if got.ToPay.String() != "800.00" {
		t.Errorf("to pay = %s", got.ToPay)
	}
	if got.ToReceive.String() != "500.00" {
		t.Errorf("to receive = %s", got.ToReceive)
	}
}

func TestSumBillsByFrequency(t *testing.T) {
	bills := []Bill{
		{Amount: NewMoney(40, 0), Frequency: Monthly},
		{Amount: NewMoney(10, 0), Frequency: Monthly},
		{Amount: NewMoney(120, 0), Frequency: Yearly},
	}
	if got := SumBills(bills); got.String() != "170.00" {
		t.Errorf("grand total = %s", got)
	}
	monthly := BillsByFrequency(bills, Monthly)
	if got := SumBills(monthly); got.String() != "50.00" {
		t.Errorf("monthly total = %s", got)
	}
}

func TestSumAccountsIsSigned(t *testing.T) {
	accounts := []Account{
		{Kind: AccountBank, Balance: NewMoney(1000, 0)},
		{Kind: AccountCredit, Balance: NewMoney(-250, 0)},
		{Kind: AccountCash}, // zero balance
	}
	if got := SumAccounts(accounts); got.String() != "750.00" {
		t.Errorf("net balance = %s", got)
	}
}
