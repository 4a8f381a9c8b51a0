// Package engine applies state-changing operations against the
// authoritative store. Every operation runs read-validate-apply under a
// per-entity lock, re-checks the entity invariants before the store write,
// and treats the store's answer as final: a rejected write leaves no local
// trace, an accepted one is published for the sync worker.
package engine

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"finbook/internal/backend"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/schedule"
)

// EventPublisher receives accepted mutations. A publish failure is logged
// and swallowed: the store has already accepted the change, and the worker
// sweeps the store for anything the queue missed.
type EventPublisher interface {
	PublishMutation(ctx context.Context, kind core.EntityKind, op string, id uuid.UUID) error
}

type Engine struct {
	store  backend.Store
	events EventPublisher
	logger *log.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// Option tweaks engine construction.
type Option func(*Engine)

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// New builds an engine over the given store. events may be nil when no
// queue is configured.
func New(store backend.Store, events EventPublisher, logger *log.Logger, opts ...Option) *Engine {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	e := &Engine{
		store:  store,
		events: events,
		logger: logger.WithComponent(log.ComponentEngine),
		now:    time.Now,
		locks:  make(map[uuid.UUID]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) today() core.CalendarDate {
	return core.Today(e.now())
}

// lockEntity serializes mutations per entity id so the read-validate-apply
// sequence can never race a second in-flight mutation on the same entity.
func (e *Engine) lockEntity(id uuid.UUID) func() {
	e.mu.Lock()
	m, ok := e.locks[id]
	if !ok {
		m = &sync.Mutex{}
		e.locks[id] = m
	}
	e.mu.Unlock()
	m.Lock()
	return m.Unlock
}

func (e *Engine) publish(ctx context.Context, kind core.EntityKind, op string, id uuid.UUID) {
	if e.events == nil {
		return
	}
	if err := e.events.PublishMutation(ctx, kind, op, id); err != nil {
		e.logger.WarnContext(ctx, "Failed to publish mutation event",
			log.FieldEntityKind, kind,
			log.FieldOperation, op,
			log.FieldEntityID, id,
			log.FieldError, err)
	}
}

// CreateAccount stores a new account. A missing id is generated.
func (e *Engine) CreateAccount(ctx context.Context, a core.Account) (core.Account, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if err := a.Validate(); err != nil {
		return core.Account{}, err
	}
	if err := core.CheckAccount(a); err != nil {
		return core.Account{}, err
	}
	if err := e.store.SaveAccount(ctx, a); err != nil {
		return core.Account{}, fmt.Errorf("save account: %w", err)
	}
	e.publish(ctx, core.KindAccount, log.OpCreate, a.ID)
	return a, nil
}

// CreateLoan validates the fields and category typing, then initializes the
// remaining balance to the original amount with active status.
func (e *Engine) CreateLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	if l.ID == uuid.Nil {
		l.ID = uuid.New()
	}
	if err := l.Validate(); err != nil {
		return core.Loan{}, err
	}

	cat, err := e.store.Category(ctx, l.CategoryID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("%w: %w", core.ErrMissingCategory, err)
	}
	want, err := l.Type.CategoryTypeFor()
	if err != nil {
		return core.Loan{}, err
	}
	if cat.Type != want {
		return core.Loan{}, core.ErrCategoryTypeMismatch
	}
	if _, err := e.store.Account(ctx, l.AccountID); err != nil {
		return core.Loan{}, fmt.Errorf("%w: %w", core.ErrMissingAccount, err)
	}

	l.RemainingBalance = l.OriginalAmount
	l.Status = core.LoanActive

	if err := core.CheckLoan(l); err != nil {
		return core.Loan{}, err
	}
	if err := e.store.SaveLoan(ctx, l); err != nil {
		return core.Loan{}, fmt.Errorf("save loan: %w", err)
	}
	e.publish(ctx, core.KindLoan, log.OpCreate, l.ID)
	e.logger.InfoContext(ctx, "Loan created",
		log.FieldEntityID, l.ID,
		log.FieldAmount, l.OriginalAmount.String(),
		"loan_type", l.Type)
	return l, nil
}

// ApplyLoanPayment debits the payment from both the loan's remaining
// balance and the paying account, in a single store transaction. A zero
// accountID falls back to the loan's linked account; a zero date means
// today. Paid-off loans are terminal.
func (e *Engine) ApplyLoanPayment(ctx context.Context, loanID uuid.UUID, amount core.Money, accountID uuid.UUID, date core.CalendarDate) (core.Loan, error) {
	unlock := e.lockEntity(loanID)
	defer unlock()

	if err := amount.Validate(); err != nil {
		return core.Loan{}, err
	}
	if date.IsEmpty() {
		date = e.today()
	}

	loan, err := e.store.Loan(ctx, loanID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("load loan: %w", err)
	}
	if loan.Status == core.LoanPaidOff {
		return core.Loan{}, core.ErrLoanPaidOff
	}
	if amount.GreaterThan(loan.RemainingBalance) {
		return core.Loan{}, core.ErrExceedsBalance
	}

	if accountID == uuid.Nil {
		accountID = loan.AccountID
	}
	// The account is read-modify-written too, so payments on different loans
	// against the same account must also serialize. Acquisition order is
	// always loan first, then account; no operation locks the pair the other
	// way around, so the pair cannot deadlock.
	if accountID != loanID {
		unlockAccount := e.lockEntity(accountID)
		defer unlockAccount()
	}
	account, err := e.store.Account(ctx, accountID)
	if err != nil {
		return core.Loan{}, fmt.Errorf("%w: %w", core.ErrMissingAccount, err)
	}

	loan.RemainingBalance = loan.RemainingBalance.Sub(amount)
	if loan.RemainingBalance.IsZero() {
		loan.Status = core.LoanPaidOff
	} else {
		loan.Status = core.LoanStatusOf(loan, date)
	}
	account.Balance = account.Balance.Sub(amount)

	if err := core.CheckLoan(loan); err != nil {
		return core.Loan{}, err
	}
	if err := core.CheckAccount(account); err != nil {
		return core.Loan{}, err
	}
	if err := e.store.ApplyLoanPayment(ctx, loan, account); err != nil {
		// The store rejected the write; the provisional balances above are
		// discarded with this return, never merged.
		return core.Loan{}, fmt.Errorf("apply payment: %w", err)
	}
	e.publish(ctx, core.KindLoan, log.OpPayment, loan.ID)
	e.logger.InfoContext(ctx, "Loan payment applied",
		log.FieldEntityID, loan.ID,
		log.FieldAmount, amount.String(),
		"remaining", loan.RemainingBalance.String(),
		"status", loan.Status)
	return loan, nil
}

// CreateBudget stores a new budget after validating the category-pair set.
func (e *Engine) CreateBudget(ctx context.Context, b core.Budget) (core.Budget, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := core.CheckBudget(b); err != nil {
		return core.Budget{}, err
	}
	if err := e.store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	e.publish(ctx, core.KindBudget, log.OpCreate, b.ID)
	return b, nil
}

// UpdateBudget replaces a budget's fields under the same validation as
// create. The spent amount is the store's; an update cannot rewrite it.
func (e *Engine) UpdateBudget(ctx context.Context, id uuid.UUID, b core.Budget) (core.Budget, error) {
	unlock := e.lockEntity(id)
	defer unlock()

	existing, err := e.store.Budget(ctx, id)
	if err != nil {
		return core.Budget{}, fmt.Errorf("load budget: %w", err)
	}
	b.ID = id
	b.Spent = existing.Spent
	if err := b.Validate(); err != nil {
		return core.Budget{}, err
	}
	if err := core.CheckBudget(b); err != nil {
		return core.Budget{}, err
	}
	if err := e.store.SaveBudget(ctx, b); err != nil {
		return core.Budget{}, fmt.Errorf("save budget: %w", err)
	}
	e.publish(ctx, core.KindBudget, log.OpUpdate, b.ID)
	return b, nil
}

// CreateGoal stores a new goal. Current defaults to zero when omitted.
func (e *Engine) CreateGoal(ctx context.Context, g core.Goal) (core.Goal, error) {
	if g.ID == uuid.Nil {
		g.ID = uuid.New()
	}
	if err := g.Validate(); err != nil {
		return core.Goal{}, err
	}
	if err := core.CheckGoal(g); err != nil {
		return core.Goal{}, err
	}
	if err := e.store.SaveGoal(ctx, g); err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	e.publish(ctx, core.KindGoal, log.OpCreate, g.ID)
	return g, nil
}

// ContributeToGoal adds to a goal's saved amount. Over-funding is allowed;
// there is no upper clamp.
func (e *Engine) ContributeToGoal(ctx context.Context, goalID uuid.UUID, amount core.Money) (core.Goal, error) {
	unlock := e.lockEntity(goalID)
	defer unlock()

	if err := amount.Validate(); err != nil {
		return core.Goal{}, err
	}
	goal, err := e.store.Goal(ctx, goalID)
	if err != nil {
		return core.Goal{}, fmt.Errorf("load goal: %w", err)
	}
	goal.Current = goal.Current.Add(amount)
	if err := core.CheckGoal(goal); err != nil {
		return core.Goal{}, err
	}
	if err := e.store.SaveGoal(ctx, goal); err != nil {
		return core.Goal{}, fmt.Errorf("save goal: %w", err)
	}
	e.publish(ctx, core.KindGoal, log.OpContribute, goal.ID)
	e.logger.InfoContext(ctx, "Goal contribution applied",
		log.FieldEntityID, goal.ID,
		log.FieldAmount, amount.String(),
		"current", goal.Current.String())
	return goal, nil
}

// CreateBill stores a new recurring obligation. A missing due date defaults
// to today.
func (e *Engine) CreateBill(ctx context.Context, b core.Bill) (core.Bill, error) {
	if b.ID == uuid.Nil {
		b.ID = uuid.New()
	}
	if b.NextDue.IsEmpty() {
		b.NextDue = e.today()
	}
	if err := b.Validate(); err != nil {
		return core.Bill{}, err
	}
	if err := e.store.SaveBill(ctx, b); err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	e.publish(ctx, core.KindBill, log.OpCreate, b.ID)
	return b, nil
}

// MarkBillPaid settles the current cycle: the due date advances one
// frequency step (month-end clamped) and the bill returns to scheduled for
// the new cycle.
func (e *Engine) MarkBillPaid(ctx context.Context, billID uuid.UUID) (core.Bill, error) {
	unlock := e.lockEntity(billID)
	defer unlock()

	bill, err := e.store.Bill(ctx, billID)
	if err != nil {
		return core.Bill{}, fmt.Errorf("load bill: %w", err)
	}
	adv, err := schedule.GetAdvancer(bill.Frequency)
	if err != nil {
		return core.Bill{}, err
	}
	bill.NextDue = adv.Next(bill.NextDue)
	bill.Paid = false
	if err := e.store.SaveBill(ctx, bill); err != nil {
		return core.Bill{}, fmt.Errorf("save bill: %w", err)
	}
	e.publish(ctx, core.KindBill, log.OpMarkPaid, bill.ID)
	e.logger.InfoContext(ctx, "Bill cycle settled",
		log.FieldEntityID, bill.ID,
		"next_due", bill.NextDue.String())
	return bill, nil
}

// CreateCategory stores a user-defined category; user categories are never
// default.
func (e *Engine) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	c.IsDefault = false
	if err := c.Validate(); err != nil {
		return core.Category{}, err
	}
	if err := e.store.SaveCategory(ctx, c); err != nil {
		return core.Category{}, fmt.Errorf("save category: %w", err)
	}
	e.publish(ctx, core.KindCategory, log.OpCreate, c.ID)
	return c, nil
}

// CreateSubcategory stores a user-defined subcategory under an existing
// category.
func (e *Engine) CreateSubcategory(ctx context.Context, s core.Subcategory) (core.Subcategory, error) {
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	s.IsDefault = false
	if strings.TrimSpace(s.Name) == "" {
		return core.Subcategory{}, core.ErrBlankName
	}
	if _, err := e.store.Category(ctx, s.CategoryID); err != nil {
		return core.Subcategory{}, fmt.Errorf("%w: %w", core.ErrMissingCategory, err)
	}
	if err := e.store.SaveSubcategory(ctx, s); err != nil {
		return core.Subcategory{}, fmt.Errorf("save subcategory: %w", err)
	}
	e.publish(ctx, core.KindSubcategory, log.OpCreate, s.ID)
	return s, nil
}

// DeleteEntity removes an entity by kind and id. Default categories and
// subcategories are refused with a distinct error; every other authorized
// delete is unconditional.
func (e *Engine) DeleteEntity(ctx context.Context, kind core.EntityKind, id uuid.UUID) error {
	unlock := e.lockEntity(id)
	defer unlock()

	var err error
	switch kind {
	case core.KindAccount:
		err = e.store.DeleteAccount(ctx, id)
	case core.KindLoan:
		err = e.store.DeleteLoan(ctx, id)
	case core.KindBudget:
		err = e.store.DeleteBudget(ctx, id)
	case core.KindGoal:
		err = e.store.DeleteGoal(ctx, id)
	case core.KindBill:
		err = e.store.DeleteBill(ctx, id)
	case core.KindCategory:
		var cat core.Category
		if cat, err = e.store.Category(ctx, id); err == nil {
			if cat.IsDefault {
				return core.ErrDefaultCategory
			}
			err = e.store.DeleteCategory(ctx, id)
		}
	case core.KindSubcategory:
		var sub core.Subcategory
		if sub, err = e.store.Subcategory(ctx, id); err == nil {
			if sub.IsDefault {
				return core.ErrDefaultCategory
			}
			err = e.store.DeleteSubcategory(ctx, id)
		}
	default:
		return core.ErrUnknownKind
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", kind, err)
	}
	e.publish(ctx, kind, log.OpDelete, id)
	return nil
}
