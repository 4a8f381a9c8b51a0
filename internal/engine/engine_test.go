package engine

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"

	"finbook/internal/backend"
	"finbook/internal/core"
	"finbook/internal/memstore"
)

// The memstore cannot assert this itself without importing backend, which
// the backend factory already imports the other way around.
var _ backend.Store = (*memstore.Store)(nil)

func fixedClock(y, m, d int) func() time.Time {
	return func() time.Time {
		return time.Date(y, time.Month(m), d, 12, 30, 0, 0, time.UTC)
	}
}

// recordingPublisher captures published events; fail makes every publish
// error to prove publishing is non-fatal.
type recordingPublisher struct {
	events []string
	fail   bool
}

func (p *recordingPublisher) PublishMutation(_ context.Context, kind core.EntityKind, op string, id uuid.UUID) error {
	if p.fail {
		return errors.New("broker unavailable")
	}
	p.events = append(p.events, fmt.Sprintf("%s/%s", kind, op))
	return nil
}

func defaultCategory(t *testing.T, typ core.CategoryType) core.Category {
	t.Helper()
	for _, c := range memstore.DefaultCategories() {
		if c.Type == typ {
			return c
		}
	}
	t.Fatalf("no default category of type %s", typ)
	return core.Category{}
}

func newTestEngine(t *testing.T) (*Engine, *memstore.Store, *recordingPublisher) {
	t.Helper()
	store := memstore.NewSeeded()
	pub := &recordingPublisher{}
	e := New(store, pub, nil, WithClock(fixedClock(2025, 6, 15)))
	return e, store, pub
}

func seedAccount(t *testing.T, e *Engine, balance core.Money) core.Account {
	t.Helper()
	a, err := e.CreateAccount(context.Background(), core.Account{
		Name:    "Checking",
		Kind:    core.AccountBank,
		Balance: balance,
	})
	if err != nil {
		t.Fatalf("seed account: %v", err)
	}
	return a
}

func seedLoan(t *testing.T, e *Engine, account core.Account, amount core.Money) core.Loan {
	t.Helper()
	liability := defaultCategory(t, core.CategoryLiability)
	l, err := e.CreateLoan(context.Background(), core.Loan{
		Name:           "Car loan",
		Type:           core.LoanBorrowed,
		OriginalAmount: amount,
		AccountID:      account.ID,
		CategoryID:     liability.ID,
	})
	if err != nil {
		t.Fatalf("seed loan: %v", err)
	}
	return l
}

func TestCreateLoanInitializesBalance(t *testing.T) {
	e, _, pub := newTestEngine(t)
	account := seedAccount(t, e, core.NewMoney(5000, 0))
	loan := seedLoan(t, e, account, core.NewMoney(1000, 0))

	if !loan.RemainingBalance.Equal(loan.OriginalAmount) {
		t.Errorf("remaining = %s, want %s", loan.RemainingBalance, loan.OriginalAmount)
	}
	if loan.Status != core.LoanActive {
		t.Errorf("status = %s, want active", loan.Status)
	}
	if len(pub.events) == 0 || pub.events[len(pub.events)-1] != "loan/create" {
		t.Errorf("expected loan/create event, got %v", pub.events)
	}
}

func TestCreateLoanCategoryTypeMismatch(t *testing.T) {
	e, _, _ := newTestEngine(t)
	account := seedAccount(t, e, core.NewMoney(5000, 0))
	asset := defaultCategory(t, core.CategoryAsset)

	// Borrowed money must sit under a liability category.
	_, err := e.CreateLoan(context.Background(), core.Loan{
		Name:           "Wrong category",
		Type:           core.LoanBorrowed,
		OriginalAmount: core.NewMoney(100, 0),
		AccountID:      account.ID,
		CategoryID:     asset.ID,
	})
	if !errors.Is(err, core.ErrCategoryTypeMismatch) {
		t.Fatalf("expected ErrCategoryTypeMismatch, got %v", err)
	}
}

func TestCreateLoanRejectsNonPositiveAmount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	account := seedAccount(t, e, core.NewMoney(100, 0))
	liability := defaultCategory(t, core.CategoryLiability)
	_, err := e.CreateLoan(context.Background(), core.Loan{
		Name:       "Zero",
		Type:       core.LoanBorrowed,
		AccountID:  account.ID,
		CategoryID: liability.ID,
	})
	if !errors.Is(err, core.ErrInvalidAmount) {
		t.Fatalf("expected ErrInvalidAmount, got %v", err)
	}
}

func TestApplyLoanPaymentLifecycle(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	account := seedAccount(t, e, core.NewMoney(5000, 0))
	loan := seedLoan(t, e, account, core.NewMoney(1000, 0))

	loan, err := e.ApplyLoanPayment(ctx, loan.ID, core.NewMoney(200, 0), account.ID, core.CalendarDate{})
	if err != nil {
		t.Fatalf("first payment: %v", err)
	}
	if loan.RemainingBalance.String() != "800.00" {
		t.Errorf("remaining = %s, want 800.00", loan.RemainingBalance)
	}
	if got := core.LoanProgress(loan); got != 20 {
		t.Errorf("progress = %v, want 20", got)
	}
	if loan.Status != core.LoanActive {
		t.Errorf("status = %s, want active", loan.Status)
	}

	// The payment debits the account as part of the same operation.
	acc, err := store.Account(ctx, account.ID)
	if err != nil {
		t.Fatalf("load account: %v", err)
	}
	if acc.Balance.String() != "4800.00" {
		t.Errorf("account balance = %s, want 4800.00", acc.Balance)
	}

	loan, err = e.ApplyLoanPayment(ctx, loan.ID, core.NewMoney(800, 0), account.ID, core.CalendarDate{})
	if err != nil {
		t.Fatalf("final payment: %v", err)
	}
	if !loan.RemainingBalance.IsZero() {
		t.Errorf("remaining = %s, want 0", loan.RemainingBalance)
	}
	if loan.Status != core.LoanPaidOff {
		t.Errorf("status = %s, want paid_off", loan.Status)
	}

	// Paid off is terminal.
	_, err = e.ApplyLoanPayment(ctx, loan.ID, core.NewMoney(1, 0), account.ID, core.CalendarDate{})
	if !errors.Is(err, core.ErrLoanPaidOff) {
		t.Fatalf("expected ErrLoanPaidOff, got %v", err)
	}
}

func TestApplyLoanPaymentRejectsOverpayment(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	account := seedAccount(t, e, core.NewMoney(5000, 0))
	loan := seedLoan(t, e, account, core.NewMoney(100, 0))

	_, err := e.ApplyLoanPayment(ctx, loan.ID, core.NewMoney(100, 1), account.ID, core.CalendarDate{})
	if !errors.Is(err, core.ErrExceedsBalance) {
		t.Fatalf("expected ErrExceedsBalance, got %v", err)
	}

	// Nothing moved: neither the loan nor the account.
	got, _ := store.Loan(ctx, loan.ID)
	if !got.RemainingBalance.Equal(core.NewMoney(100, 0)) {
		t.Errorf("remaining changed to %s", got.RemainingBalance)
	}
	acc, _ := store.Account(ctx, account.ID)
	if !acc.Balance.Equal(core.NewMoney(5000, 0)) {
		t.Errorf("account changed to %s", acc.Balance)
	}
}

func TestApplyLoanPaymentRejectsNonPositiveAmount(t *testing.T) {
	e, _, _ := newTestEngine(t)
	account := seedAccount(t, e, core.NewMoney(100, 0))
	loan := seedLoan(t, e, account, core.NewMoney(100, 0))
	for _, amount := range []core.Money{{}, core.NewMoney(-5, 0)} {
		_, err := e.ApplyLoanPayment(context.Background(), loan.ID, amount, account.ID, core.CalendarDate{})
		if !errors.Is(err, core.ErrInvalidAmount) {
			t.Fatalf("amount %s: expected ErrInvalidAmount, got %v", amount, err)
		}
	}
}

// failingStore accepts reads but rejects the payment write, standing in for
// the authoritative store refusing an operation.
type failingStore struct {
	backend.Store
}

var errStoreRejected = errors.New("store rejected")

func (f *failingStore) ApplyLoanPayment(context.Context, core.Loan, core.Account) error {
	return errStoreRejected
}

func TestStoreRejectionDiscardsProvisionalState(t *testing.T) {
	inner := memstore.NewSeeded()
	e := New(inner, nil, nil, WithClock(fixedClock(2025, 6, 15)))
	ctx := context.Background()
	account := seedAccount(t, e, core.NewMoney(5000, 0))
	loan := seedLoan(t, e, account, core.NewMoney(1000, 0))

	rejecting := New(&failingStore{Store: inner}, nil, nil, WithClock(fixedClock(2025, 6, 15)))
	_, err := rejecting.ApplyLoanPayment(ctx, loan.ID, core.NewMoney(200, 0), account.ID, core.CalendarDate{})
	if !errors.Is(err, errStoreRejected) {
		t.Fatalf("expected store rejection to surface, got %v", err)
	}

	// The provisional balances were discarded, not merged.
	got, _ := inner.Loan(ctx, loan.ID)
	if !got.RemainingBalance.Equal(core.NewMoney(1000, 0)) {
		t.Errorf("loan advanced despite rejection: %s", got.RemainingBalance)
	}
	acc, _ := inner.Account(ctx, account.ID)
	if !acc.Balance.Equal(core.NewMoney(5000, 0)) {
		t.Errorf("account advanced despite rejection: %s", acc.Balance)
	}
}

func TestCreateBudgetValidation(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	cat := uuid.New()

	good := core.Budget{
		Name:       "Groceries",
		Amount:     core.NewMoney(500, 0),
		Period:     core.Monthly,
		Categories: []core.CategoryPair{{CategoryID: cat}},
	}
	if _, err := e.CreateBudget(ctx, good); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	empty := good
	empty.Categories = nil
	if _, err := e.CreateBudget(ctx, empty); !errors.Is(err, core.ErrEmptyCategorySet) {
		t.Errorf("empty set: got %v", err)
	}

	dup := good
	dup.Categories = []core.CategoryPair{{CategoryID: cat}, {CategoryID: cat}}
	if _, err := e.CreateBudget(ctx, dup); !errors.Is(err, core.ErrDuplicateCategoryPair) {
		t.Errorf("dup pair: got %v", err)
	}

	blank := good
	blank.Name = " "
	if _, err := e.CreateBudget(ctx, blank); !errors.Is(err, core.ErrBlankName) {
		t.Errorf("blank name: got %v", err)
	}
}

func TestUpdateBudgetKeepsSpentAndCategorySet(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	cat := uuid.New()

	b, err := e.CreateBudget(ctx, core.Budget{
		Name:       "Groceries",
		Amount:     core.NewMoney(500, 0),
		Period:     core.Monthly,
		Categories: []core.CategoryPair{{CategoryID: cat}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	// Simulate the store reporting spend.
	stored, _ := store.Budget(ctx, b.ID)
	stored.Spent = core.NewMoney(120, 0)
	if err := store.SaveBudget(ctx, stored); err != nil {
		t.Fatalf("save spend: %v", err)
	}

	update := b
	update.Amount = core.NewMoney(600, 0)
	update.Spent = core.NewMoney(9999, 0) // must be ignored
	got, err := e.UpdateBudget(ctx, b.ID, update)
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Spent.String() != "120.00" {
		t.Errorf("spent overwritten: %s", got.Spent)
	}
	if got.Amount.String() != "600.00" {
		t.Errorf("amount = %s", got.Amount)
	}

	// Emptying the category set is refused.
	update.Categories = nil
	if _, err := e.UpdateBudget(ctx, b.ID, update); !errors.Is(err, core.ErrEmptyCategorySet) {
		t.Errorf("expected ErrEmptyCategorySet, got %v", err)
	}
}

func TestGoalLifecycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()

	g, err := e.CreateGoal(ctx, core.Goal{Name: "Emergency fund", Target: core.NewMoney(1000, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if !g.Current.IsZero() {
		t.Errorf("current must default to zero, got %s", g.Current)
	}

	g, err = e.ContributeToGoal(ctx, g.ID, core.NewMoney(400, 0))
	if err != nil {
		t.Fatalf("contribute: %v", err)
	}
	if g.Current.String() != "400.00" {
		t.Errorf("current = %s", g.Current)
	}

	// Over-funding is allowed and representable.
	g, err = e.ContributeToGoal(ctx, g.ID, core.NewMoney(800, 0))
	if err != nil {
		t.Fatalf("over-fund: %v", err)
	}
	if g.Current.String() != "1200.00" {
		t.Errorf("current = %s", g.Current)
	}
	if !core.GoalCompleted(g) {
		t.Errorf("over-funded goal must be completed")
	}

	if _, err := e.ContributeToGoal(ctx, g.ID, core.Money{}); !errors.Is(err, core.ErrInvalidAmount) {
		t.Errorf("zero contribution: got %v", err)
	}
}

func TestCreateBillDefaultsDueDate(t *testing.T) {
	e, _, _ := newTestEngine(t)
	b, err := e.CreateBill(context.Background(), core.Bill{
		Vendor:    "ISP",
		Amount:    core.NewMoney(30, 0),
		Frequency: core.Monthly,
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if b.NextDue.String() != "2025-06-15" {
		t.Errorf("due date = %s, want clock date", b.NextDue)
	}
}

func TestMarkBillPaidAdvancesCycle(t *testing.T) {
	e, _, _ := newTestEngine(t)
	ctx := context.Background()
	b, err := e.CreateBill(ctx, core.Bill{
		Vendor:    "Rent",
		Amount:    core.NewMoney(900, 0),
		Frequency: core.Monthly,
		NextDue:   core.NewDate(2025, 1, 31),
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	b, err = e.MarkBillPaid(ctx, b.ID)
	if err != nil {
		t.Fatalf("mark paid: %v", err)
	}
	if b.NextDue.String() != "2025-02-28" {
		t.Errorf("next due = %s, want month-end clamped 2025-02-28", b.NextDue)
	}
	if b.Paid {
		t.Errorf("new cycle must be scheduled, not paid")
	}
}

func TestDeleteEntityRefusesDefaultCategory(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	def := defaultCategory(t, core.CategoryExpense)

	err := e.DeleteEntity(ctx, core.KindCategory, def.ID)
	if !errors.Is(err, core.ErrDefaultCategory) {
		t.Fatalf("expected ErrDefaultCategory, got %v", err)
	}
	if _, err := store.Category(ctx, def.ID); err != nil {
		t.Fatalf("default category must survive: %v", err)
	}

	// A user category deletes cleanly.
	user, err := e.CreateCategory(ctx, core.Category{Name: "Hobbies", Type: core.CategoryExpense})
	if err != nil {
		t.Fatalf("create category: %v", err)
	}
	if err := e.DeleteEntity(ctx, core.KindCategory, user.ID); err != nil {
		t.Fatalf("delete user category: %v", err)
	}
	if _, err := store.Category(ctx, user.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("user category must be gone, got %v", err)
	}
}

func TestDeleteEntityUnknownKind(t *testing.T) {
	e, _, _ := newTestEngine(t)
	if err := e.DeleteEntity(context.Background(), "wallet", uuid.New()); !errors.Is(err, core.ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestPublishFailureIsNonFatal(t *testing.T) {
	store := memstore.NewSeeded()
	pub := &recordingPublisher{fail: true}
	e := New(store, pub, nil, WithClock(fixedClock(2025, 6, 15)))

	g, err := e.CreateGoal(context.Background(), core.Goal{Name: "Trip", Target: core.NewMoney(300, 0)})
	if err != nil {
		t.Fatalf("mutation must succeed despite broker failure: %v", err)
	}
	if _, err := store.Goal(context.Background(), g.ID); err != nil {
		t.Fatalf("goal must be stored: %v", err)
	}
}

func TestConcurrentContributionsSerialize(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	g, err := e.CreateGoal(ctx, core.Goal{Name: "Race", Target: core.NewMoney(10000, 0)})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	const n = 50
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func() {
			_, err := e.ContributeToGoal(ctx, g.ID, core.NewMoney(1, 0))
			done <- err
		}()
	}
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("contribution %d: %v", i, err)
		}
	}
	got, _ := store.Goal(ctx, g.ID)
	if got.Current.String() != "50.00" {
		t.Errorf("lost update: current = %s, want 50.00", got.Current)
	}
}

func TestConcurrentPaymentsShareAccount(t *testing.T) {
	e, store, _ := newTestEngine(t)
	ctx := context.Background()
	account := seedAccount(t, e, core.NewMoney(1000, 0))

	const n = 4
	loans := make([]core.Loan, n)
	for i := range loans {
		loans[i] = seedLoan(t, e, account, core.NewMoney(100, 0))
	}

	// Each payment debits a different loan but the same account; the account
	// balance is read-modify-written, so unserialized payments would lose
	// debits.
	start := make(chan struct{})
	done := make(chan error, n)
	for i := 0; i < n; i++ {
		go func(l core.Loan) {
			<-start
			_, err := e.ApplyLoanPayment(ctx, l.ID, core.NewMoney(100, 0), account.ID, core.CalendarDate{})
			done <- err
		}(loans[i])
	}
	close(start)
	for i := 0; i < n; i++ {
		if err := <-done; err != nil {
			t.Fatalf("payment %d: %v", i, err)
		}
	}

	got, _ := store.Account(ctx, account.ID)
	if got.Balance.String() != "600.00" {
		t.Errorf("lost debit: balance = %s, want 600.00", got.Balance)
	}
	for i, l := range loans {
		after, _ := store.Loan(ctx, l.ID)
		if after.Status != core.LoanPaidOff {
			t.Errorf("loan %d status = %s, want paid_off", i, after.Status)
		}
	}
}
