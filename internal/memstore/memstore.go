// Package memstore is the in-memory authoritative store: the default dev
// backend and the fixture for engine and handler tests. All methods copy on
// the way in and out, so callers can never mutate stored state by aliasing.
package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"finbook/internal/core"
)

type Store struct {
	mu            sync.Mutex
	accounts      map[uuid.UUID]core.Account
	loans         map[uuid.UUID]core.Loan
	budgets       map[uuid.UUID]core.Budget
	goals         map[uuid.UUID]core.Goal
	bills         map[uuid.UUID]core.Bill
	categories    map[uuid.UUID]core.Category
	subcategories map[uuid.UUID]core.Subcategory
}

func New() *Store {
	return &Store{
		accounts:      make(map[uuid.UUID]core.Account),
		loans:         make(map[uuid.UUID]core.Loan),
		budgets:       make(map[uuid.UUID]core.Budget),
		goals:         make(map[uuid.UUID]core.Goal),
		bills:         make(map[uuid.UUID]core.Bill),
		categories:    make(map[uuid.UUID]core.Category),
		subcategories: make(map[uuid.UUID]core.Subcategory),
	}
}

// NewSeeded returns a store preloaded with the default category set, the
// same taxonomy the SQLite migrations seed.
func NewSeeded() *Store {
	s := New()
	for _, c := range DefaultCategories() {
		s.categories[c.ID] = c
	}
	return s
}

// DefaultCategories is the system-seeded, non-deletable taxonomy.
func DefaultCategories() []core.Category {
	names := []struct {
		name string
		typ  core.CategoryType
	}{
		{"Salary", core.CategoryIncome},
		{"Groceries", core.CategoryExpense},
		{"Utilities", core.CategoryExpense},
		{"Transport", core.CategoryExpense},
		{"Money Lent", core.CategoryAsset},
		{"Savings", core.CategoryAsset},
		{"Money Borrowed", core.CategoryLiability},
	}
	out := make([]core.Category, 0, len(names))
	for _, n := range names {
		out = append(out, core.Category{
			ID:        uuid.NewSHA1(uuid.NameSpaceOID, []byte("finbook/category/"+n.name)),
			Name:      n.name,
			Type:      n.typ,
			IsDefault: true,
		})
	}
	return out
}

func notFound(kind core.EntityKind, id uuid.UUID) error {
	return fmt.Errorf("%s %s: %w", kind, id, core.ErrNotFound)
}

func (s *Store) Account(_ context.Context, id uuid.UUID) (core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.accounts[id]
	if !ok {
		return core.Account{}, notFound(core.KindAccount, id)
	}
	return a, nil
}

func (s *Store) Accounts(_ context.Context) ([]core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Account, 0, len(s.accounts))
	for _, a := range s.accounts {
		out = append(out, a)
	}
	return out, nil
}

func (s *Store) SaveAccount(_ context.Context, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[a.ID] = a
	return nil
}

// DeleteAccount refuses while any loan references the account.
func (s *Store) DeleteAccount(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.accounts[id]; !ok {
		return notFound(core.KindAccount, id)
	}
	for _, l := range s.loans {
		if l.AccountID == id {
			return core.ErrAccountInUse
		}
	}
	delete(s.accounts, id)
	return nil
}

func (s *Store) Loan(_ context.Context, id uuid.UUID) (core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.loans[id]
	if !ok {
		return core.Loan{}, notFound(core.KindLoan, id)
	}
	return l, nil
}

func (s *Store) Loans(_ context.Context) ([]core.Loan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Loan, 0, len(s.loans))
	for _, l := range s.loans {
		out = append(out, l)
	}
	return out, nil
}

func (s *Store) SaveLoan(_ context.Context, l core.Loan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loans[l.ID] = l
	return nil
}

func (s *Store) DeleteLoan(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[id]; !ok {
		return notFound(core.KindLoan, id)
	}
	delete(s.loans, id)
	return nil
}

// ApplyLoanPayment stores both rows under one lock; a missing row leaves the
// other untouched.
func (s *Store) ApplyLoanPayment(_ context.Context, l core.Loan, a core.Account) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.loans[l.ID]; !ok {
		return notFound(core.KindLoan, l.ID)
	}
	if _, ok := s.accounts[a.ID]; !ok {
		return notFound(core.KindAccount, a.ID)
	}
	s.loans[l.ID] = l
	s.accounts[a.ID] = a
	return nil
}

func (s *Store) Budget(_ context.Context, id uuid.UUID) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.budgets[id]
	if !ok {
		return core.Budget{}, notFound(core.KindBudget, id)
	}
	b.Categories = append([]core.CategoryPair(nil), b.Categories...)
	return b, nil
}

func (s *Store) Budgets(_ context.Context) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Budget, 0, len(s.budgets))
	for _, b := range s.budgets {
		b.Categories = append([]core.CategoryPair(nil), b.Categories...)
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) SaveBudget(_ context.Context, b core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.Categories = append([]core.CategoryPair(nil), b.Categories...)
	s.budgets[b.ID] = b
	return nil
}

func (s *Store) DeleteBudget(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.budgets[id]; !ok {
		return notFound(core.KindBudget, id)
	}
	delete(s.budgets, id)
	return nil
}

func (s *Store) Goal(_ context.Context, id uuid.UUID) (core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g, ok := s.goals[id]
	if !ok {
		return core.Goal{}, notFound(core.KindGoal, id)
	}
	return g, nil
}

func (s *Store) Goals(_ context.Context) ([]core.Goal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Goal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g)
	}
	return out, nil
}

func (s *Store) SaveGoal(_ context.Context, g core.Goal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.goals[g.ID] = g
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return notFound(core.KindGoal, id)
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) Bill(_ context.Context, id uuid.UUID) (core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bills[id]
	if !ok {
		return core.Bill{}, notFound(core.KindBill, id)
	}
	return b, nil
}

func (s *Store) Bills(_ context.Context) ([]core.Bill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Bill, 0, len(s.bills))
	for _, b := range s.bills {
		out = append(out, b)
	}
	return out, nil
}

func (s *Store) SaveBill(_ context.Context, b core.Bill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bills[b.ID] = b
	return nil
}

func (s *Store) DeleteBill(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bills[id]; !ok {
		return notFound(core.KindBill, id)
	}
	delete(s.bills, id)
	return nil
}

func (s *Store) Category(_ context.Context, id uuid.UUID) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.categories[id]
	if !ok {
		return core.Category{}, notFound(core.KindCategory, id)
	}
	return c, nil
}

func (s *Store) Categories(_ context.Context) ([]core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Category, 0, len(s.categories))
	for _, c := range s.categories {
		out = append(out, c)
	}
	return out, nil
}

func (s *Store) SaveCategory(_ context.Context, c core.Category) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.categories[c.ID] = c
	return nil
}

func (s *Store) DeleteCategory(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.categories[id]; !ok {
		return notFound(core.KindCategory, id)
	}
	delete(s.categories, id)
	return nil
}

func (s *Store) Subcategory(_ context.Context, id uuid.UUID) (core.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sc, ok := s.subcategories[id]
	if !ok {
		return core.Subcategory{}, notFound(core.KindSubcategory, id)
	}
	return sc, nil
}

func (s *Store) Subcategories(_ context.Context) ([]core.Subcategory, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Subcategory, 0, len(s.subcategories))
	for _, sc := range s.subcategories {
		out = append(out, sc)
	}
	return out, nil
}

func (s *Store) SaveSubcategory(_ context.Context, sc core.Subcategory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subcategories[sc.ID] = sc
	return nil
}

func (s *Store) DeleteSubcategory(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subcategories[id]; !ok {
		return notFound(core.KindSubcategory, id)
	}
	delete(s.subcategories, id)
	return nil
}
