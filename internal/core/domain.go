package core

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
	Yearly    Frequency = "yearly"
)

const (
	AccountCash       AccountKind = "cash"
	AccountBank       AccountKind = "bank"
	AccountCredit     AccountKind = "credit"
	AccountEWallet    AccountKind = "e-wallet"
	AccountLoan       AccountKind = "loan"
	AccountInvestment AccountKind = "investment"
	AccountOther      AccountKind = "other"
)

const (
	LoanBorrowed LoanType = "borrowed"
	LoanLent     LoanType = "lent"
)

const (
	LoanActive  LoanStatus = "active"
	LoanPaidOff LoanStatus = "paid_off"
	LoanOverdue LoanStatus = "overdue"
)

const (
	BudgetOnTrack    BudgetState = "on_track"
	BudgetWarning    BudgetState = "warning"
	BudgetOverBudget BudgetState = "over_budget"
)

const (
	BillScheduled BillStatus = "scheduled"
	BillPaid      BillStatus = "paid"
	BillOverdue   BillStatus = "overdue"
)

const (
	CategoryIncome    CategoryType = "income"
	CategoryExpense   CategoryType = "expense"
	CategoryAsset     CategoryType = "asset"
	CategoryLiability CategoryType = "liability"
)

const (
	KindAccount     EntityKind = "account"
	KindLoan        EntityKind = "loan"
	KindBudget      EntityKind = "budget"
	KindGoal        EntityKind = "goal"
	KindBill        EntityKind = "bill"
	KindCategory    EntityKind = "category"
	KindSubcategory EntityKind = "subcategory"
)

type (
	Frequency    string
	AccountKind  string
	LoanType     string
	LoanStatus   string
	BudgetState  string
	BillStatus   string
	CategoryType string
	EntityKind   string

	// Account holds funds. Balance is signed: credit-type accounts are
	// legitimately negative.
	Account struct {
		ID      uuid.UUID   `json:"id"`
		Name    string      `json:"name"`
		Kind    AccountKind `json:"kind"`
		Balance Money       `json:"balance"`
	}

	// Loan is money borrowed or lent. OriginalAmount is immutable after
	// creation; RemainingBalance is maintained by payments. InterestRate is
	// informational only and never compounds into the balance.
	Loan struct {
		ID                uuid.UUID       `json:"id"`
		Name              string          `json:"name"`
		Type              LoanType        `json:"type"`
		OriginalAmount    Money           `json:"original_amount"`
		RemainingBalance  Money           `json:"remaining_balance"`
		InterestRate      decimal.Decimal `json:"interest_rate"`
		NextPaymentAmount Money           `json:"next_payment_amount"`
		NextPaymentDate   CalendarDate    `json:"next_payment_date"`
		AccountID         uuid.UUID       `json:"account_id"`
		CategoryID        uuid.UUID       `json:"category_id"`
		Status            LoanStatus      `json:"status"`
	}

	// CategoryPair attaches a budget to a category, optionally narrowed to a
	// subcategory (uuid.Nil means whole category).
	CategoryPair struct {
		CategoryID    uuid.UUID `json:"category_id"`
		SubcategoryID uuid.UUID `json:"subcategory_id"`
	}

	// Budget allocates an amount to a set of category pairs over a period.
	// Spent is supplied by the store; this engine never derives spend from
	// transactions.
	Budget struct {
		ID         uuid.UUID      `json:"id"`
		Name       string         `json:"name"`
		Amount     Money          `json:"budgeted_amount"`
		Period     Frequency      `json:"period"`
		StartDate  CalendarDate   `json:"start_date"`
		Categories []CategoryPair `json:"categories"`
		Spent      Money          `json:"spent_amount"`
	}

	// Goal is a savings target. Current may exceed Target; completion is
	// derived from the amounts, never stored.
	Goal struct {
		ID         uuid.UUID    `json:"id"`
		Name       string       `json:"name"`
		Target     Money        `json:"target_amount"`
		Current    Money        `json:"current_amount"`
		TargetDate CalendarDate `json:"target_date"`
		Label      string       `json:"label,omitempty"`
	}

	// Bill is a recurring obligation to a vendor.
	Bill struct {
		ID         uuid.UUID    `json:"id"`
		Vendor     string       `json:"vendor"`
		Amount     Money        `json:"amount"`
		Frequency  Frequency    `json:"frequency"`
		NextDue    CalendarDate `json:"next_due_date"`
		CategoryID uuid.UUID    `json:"category_id"`
		Paid       bool         `json:"paid"`
	}

	// Category classifies money movement. Default categories are seeded by
	// the store and cannot be deleted.
	Category struct {
		ID        uuid.UUID    `json:"id"`
		Name      string       `json:"name"`
		Type      CategoryType `json:"type"`
		Color     string       `json:"color,omitempty"`
		Icon      string       `json:"icon,omitempty"`
		IsDefault bool         `json:"is_default"`
	}

	Subcategory struct {
		ID         uuid.UUID `json:"id"`
		CategoryID uuid.UUID `json:"category_id"`
		Name       string    `json:"name"`
		IsDefault  bool      `json:"is_default"`
	}
)

// Valid reports whether f is a supported frequency.
func (f Frequency) Valid() bool {
	switch f {
	case Weekly, Monthly, Quarterly, Yearly:
		return true
	}
	return false
}

// Valid reports whether k is a supported account kind.
func (k AccountKind) Valid() bool {
	switch k {
	case AccountCash, AccountBank, AccountCredit, AccountEWallet,
		AccountLoan, AccountInvestment, AccountOther:
		return true
	}
	return false
}

func (a Account) Validate() error {
	if strings.TrimSpace(a.Name) == "" {
		return ErrBlankName
	}
	if !a.Kind.Valid() {
		return ErrUnknownKind
	}
	return nil
}

// CategoryTypeFor returns the category type a loan of this kind must be
// attached to: money lent is an asset, money borrowed a liability.
func (t LoanType) CategoryTypeFor() (CategoryType, error) {
	switch t {
	case LoanLent:
		return CategoryAsset, nil
	case LoanBorrowed:
		return CategoryLiability, nil
	}
	return "", ErrUnknownKind
}

func (l Loan) Validate() error {
	if strings.TrimSpace(l.Name) == "" {
		return ErrBlankName
	}
	if _, err := l.Type.CategoryTypeFor(); err != nil {
		return err
	}
	if err := l.OriginalAmount.Validate(); err != nil {
		return err
	}
	if l.AccountID == uuid.Nil {
		return ErrMissingAccount
	}
	if l.CategoryID == uuid.Nil {
		return ErrMissingCategory
	}
	return nil
}

func (b Budget) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return ErrBlankName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Period.Valid() {
		return ErrUnknownFrequency
	}
	if len(b.Categories) == 0 {
		return ErrEmptyCategorySet
	}
	seen := make(map[CategoryPair]struct{}, len(b.Categories))
	for _, p := range b.Categories {
		if p.CategoryID == uuid.Nil {
			return ErrMissingCategory
		}
		if _, dup := seen[p]; dup {
			return ErrDuplicateCategoryPair
		}
		seen[p] = struct{}{}
	}
	return nil
}

func (g Goal) Validate() error {
	if strings.TrimSpace(g.Name) == "" {
		return ErrBlankName
	}
	if err := g.Target.Validate(); err != nil {
		return err
	}
	if g.Current.IsNegative() {
		return ErrInvalidAmount
	}
	return nil
}

func (b Bill) Validate() error {
	if strings.TrimSpace(b.Vendor) == "" {
		return ErrBlankName
	}
	if err := b.Amount.Validate(); err != nil {
		return err
	}
	if !b.Frequency.Valid() {
		return ErrUnknownFrequency
	}
	return nil
}

func (c Category) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return ErrBlankName
	}
	switch c.Type {
	case CategoryIncome, CategoryExpense, CategoryAsset, CategoryLiability:
		return nil
	}
	return ErrUnknownKind
}
