// Package backend defines the authoritative-store port the mutation engine
// writes through, and a factory that selects an implementation from
// configuration. The store's accept/reject response is what resolves a
// mutation; the engine never trusts its own derived state past that point.
package backend

import (
	"context"

	"github.com/google/uuid"

	"finbook/internal/core"
)

type (
	AccountStore interface {
		Account(ctx context.Context, id uuid.UUID) (core.Account, error)
		Accounts(ctx context.Context) ([]core.Account, error)
		SaveAccount(ctx context.Context, a core.Account) error
		DeleteAccount(ctx context.Context, id uuid.UUID) error
	}

	LoanStore interface {
		Loan(ctx context.Context, id uuid.UUID) (core.Loan, error)
		Loans(ctx context.Context) ([]core.Loan, error)
		SaveLoan(ctx context.Context, l core.Loan) error
		DeleteLoan(ctx context.Context, id uuid.UUID) error
		// ApplyLoanPayment persists the post-payment loan and the debited
		// account atomically: either both rows change or neither does.
		ApplyLoanPayment(ctx context.Context, l core.Loan, a core.Account) error
	}

	BudgetStore interface {
		Budget(ctx context.Context, id uuid.UUID) (core.Budget, error)
		Budgets(ctx context.Context) ([]core.Budget, error)
		SaveBudget(ctx context.Context, b core.Budget) error
		DeleteBudget(ctx context.Context, id uuid.UUID) error
	}

	GoalStore interface {
		Goal(ctx context.Context, id uuid.UUID) (core.Goal, error)
		Goals(ctx context.Context) ([]core.Goal, error)
		SaveGoal(ctx context.Context, g core.Goal) error
		DeleteGoal(ctx context.Context, id uuid.UUID) error
	}

	BillStore interface {
		Bill(ctx context.Context, id uuid.UUID) (core.Bill, error)
		Bills(ctx context.Context) ([]core.Bill, error)
		SaveBill(ctx context.Context, b core.Bill) error
		DeleteBill(ctx context.Context, id uuid.UUID) error
	}

	CategoryStore interface {
		Category(ctx context.Context, id uuid.UUID) (core.Category, error)
		Categories(ctx context.Context) ([]core.Category, error)
		SaveCategory(ctx context.Context, c core.Category) error
		DeleteCategory(ctx context.Context, id uuid.UUID) error
		Subcategory(ctx context.Context, id uuid.UUID) (core.Subcategory, error)
		Subcategories(ctx context.Context) ([]core.Subcategory, error)
		SaveSubcategory(ctx context.Context, s core.Subcategory) error
		DeleteSubcategory(ctx context.Context, id uuid.UUID) error
	}

	// Store is the unified authoritative-store port.
	Store interface {
		AccountStore
		LoanStore
		BudgetStore
		GoalStore
		BillStore
		CategoryStore
	}
)

// CleanupFunc releases resources held by a backend.
type CleanupFunc func() error

// Result contains the backend instance and optional cleanup function.
type Result struct {
	Store   Store
	Cleanup CleanupFunc
}

// Type selects a backend implementation.
type Type string

const (
	SQLiteBackend Type = "sqlite"
	MemoryBackend Type = "memory"
)

func (t Type) String() string { return string(t) }

// IsValid reports whether the backend type is supported.
func (t Type) IsValid() bool {
	switch t {
	case SQLiteBackend, MemoryBackend:
		return true
	}
	return false
}

// Config holds backend creation parameters.
type Config struct {
	Type         Type
	SQLiteDBPath string
}
