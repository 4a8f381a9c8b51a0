package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"finbook/internal/core"
	"finbook/internal/engine"
	"finbook/internal/log"
	"finbook/internal/memstore"
)

func newTestServer(t *testing.T) (*Server, *memstore.Store) {
	t.Helper()
	store := memstore.NewSeeded()
	logger := log.New(log.DefaultConfig())
	eng := engine.New(store, nil, logger)
	s := NewServer(":0", store, eng, logger, time.Minute)
	t.Cleanup(func() {
		_ = s.Shutdown(context.Background())
	})
	return s, store
}

func doJSON(t *testing.T, s *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode request body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
	return v
}

func findCategory(t *testing.T, store *memstore.Store, name string) core.Category {
	t.Helper()
	cats, err := store.Categories(context.Background())
	if err != nil {
		t.Fatalf("list categories: %v", err)
	}
	for _, c := range cats {
		if c.Name == name {
			return c
		}
	}
	t.Fatalf("category %q not seeded", name)
	return core.Category{}
}

func TestHealthz(t *testing.T) {
	s, _ := newTestServer(t)
	rec := doJSON(t, s, http.MethodGet, "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /healthz = %d, want 200", rec.Code)
	}
}

func TestCreateAccountAndList(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name":    "Checking",
		"kind":    "bank",
		"balance": "150.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/accounts = %d, body %s", rec.Code, rec.Body.String())
	}
	created := decodeBody[AccountView](t, rec)
	if created.ID == uuid.Nil {
		t.Error("created account has no id")
	}
	if created.Balance.String() != "150.00" {
		t.Errorf("balance = %s, want 150.00", created.Balance)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/accounts", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/accounts = %d", rec.Code)
	}
	list := decodeBody[[]AccountView](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(accounts) = %d, want 1", len(list))
	}
}

func TestCreateAccountValidation(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "  ",
		"kind": "bank",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("blank name = %d, want 422", rec.Code)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name":    "X",
		"kind":    "bank",
		"unknown": true,
	})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown field = %d, want 400", rec.Code)
	}
}

func TestLoanLifecycleOverHTTP(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Main", "kind": "bank", "balance": "5000.00",
	})
	account := decodeBody[AccountView](t, rec)

	lent := findCategory(t, store, "Money Lent")
	rec = doJSON(t, s, http.MethodPost, "/api/loans", map[string]any{
		"name":            "Loan to Ana",
		"type":            "lent",
		"original_amount": "1000.00",
		"account_id":      account.ID,
		"category_id":     lent.ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/loans = %d, body %s", rec.Code, rec.Body.String())
	}
	loan := decodeBody[LoanView](t, rec)
	if loan.RemainingBalance.String() != "1000.00" {
		t.Errorf("remaining = %s, want 1000.00", loan.RemainingBalance)
	}
	if loan.DerivedStatus != core.LoanActive {
		t.Errorf("derived_status = %s, want active", loan.DerivedStatus)
	}

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/loans/%s/payments", loan.ID), map[string]any{
		"amount": "250.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("payment = %d, body %s", rec.Code, rec.Body.String())
	}
	paid := decodeBody[LoanView](t, rec)
	if paid.RemainingBalance.String() != "750.00" {
		t.Errorf("remaining = %s, want 750.00", paid.RemainingBalance)
	}
	if paid.Progress != 25 {
		t.Errorf("progress = %v, want 25", paid.Progress)
	}

	// Overpayment is refused without touching state.
	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/loans/%s/payments", loan.ID), map[string]any{
		"amount": "9999.00",
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("overpayment = %d, want 422", rec.Code)
	}

	after, err := store.Loan(context.Background(), loan.ID)
	if err != nil {
		t.Fatalf("load loan: %v", err)
	}
	if after.RemainingBalance.String() != "750.00" {
		t.Errorf("remaining after refused payment = %s, want 750.00", after.RemainingBalance)
	}
}

func TestLoanCategoryTypeMismatch(t *testing.T) {
	s, store := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Main", "kind": "bank",
	})
	account := decodeBody[AccountView](t, rec)

	expense := findCategory(t, store, "Groceries")
	rec = doJSON(t, s, http.MethodPost, "/api/loans", map[string]any{
		"name":            "Bad loan",
		"type":            "lent",
		"original_amount": "100.00",
		"account_id":      account.ID,
		"category_id":     expense.ID,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("mismatched category = %d, want 422", rec.Code)
	}
}

func TestBudgetViewClassification(t *testing.T) {
	s, store := newTestServer(t)

	groceries := findCategory(t, store, "Groceries")
	rec := doJSON(t, s, http.MethodPost, "/api/budgets", map[string]any{
		"name":            "Food",
		"budgeted_amount": "400.00",
		"period":          "monthly",
		"categories":      []map[string]any{{"category_id": groceries.ID}},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/budgets = %d, body %s", rec.Code, rec.Body.String())
	}
	budget := decodeBody[BudgetView](t, rec)
	if budget.State != core.BudgetOnTrack {
		t.Errorf("state = %s, want on_track", budget.State)
	}

	// Push spend over the warning threshold directly in the store, then read.
	stored, err := store.Budget(context.Background(), budget.ID)
	if err != nil {
		t.Fatalf("load budget: %v", err)
	}
	stored.Spent = core.NewMoney(350, 0) // 87.5%
	if err := store.SaveBudget(context.Background(), stored); err != nil {
		t.Fatalf("save budget: %v", err)
	}

	rec = doJSON(t, s, http.MethodGet, "/api/budgets", nil)
	list := decodeBody[[]BudgetView](t, rec)
	if len(list) != 1 {
		t.Fatalf("len(budgets) = %d, want 1", len(list))
	}
	if list[0].State != core.BudgetWarning {
		t.Errorf("state = %s, want warning", list[0].State)
	}
	if list[0].Remaining.String() != "50.00" {
		t.Errorf("remaining = %s, want 50.00", list[0].Remaining)
	}
}

func TestDashboardCachesAndInvalidates(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/dashboard = %d", rec.Code)
	}
	before := decodeBody[DashboardView](t, rec)
	if !before.NetBalance.IsZero() {
		t.Errorf("empty net balance = %s, want 0", before.NetBalance)
	}

	rec = doJSON(t, s, http.MethodPost, "/api/accounts", map[string]any{
		"name": "Main", "kind": "bank", "balance": "100.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/accounts = %d", rec.Code)
	}

	// The mutation must have dropped the memoized snapshot.
	rec = doJSON(t, s, http.MethodGet, "/api/dashboard", nil)
	after := decodeBody[DashboardView](t, rec)
	if after.NetBalance.String() != "100.00" {
		t.Errorf("net balance after mutation = %s, want 100.00", after.NetBalance)
	}
}

func TestDeleteDefaultCategoryForbidden(t *testing.T) {
	s, store := newTestServer(t)

	salary := findCategory(t, store, "Salary")
	rec := doJSON(t, s, http.MethodDelete, fmt.Sprintf("/api/categories/%s", salary.ID), nil)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("delete default category = %d, want 403", rec.Code)
	}
}

func TestDeleteUnknownKindAndMissingEntity(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodDelete, "/api/wallets/"+uuid.NewString(), nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("unknown kind = %d, want 400", rec.Code)
	}

	rec = doJSON(t, s, http.MethodDelete, "/api/goals/"+uuid.NewString(), nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("missing goal = %d, want 404", rec.Code)
	}
}

func TestMarkBillPaidAdvancesDueDate(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/bills", map[string]any{
		"vendor":        "Electric Co",
		"amount":        "60.00",
		"frequency":     "monthly",
		"next_due_date": "2025-03-15",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/bills = %d, body %s", rec.Code, rec.Body.String())
	}
	bill := decodeBody[BillView](t, rec)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/bills/%s/paid", bill.ID), nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("mark paid = %d, body %s", rec.Code, rec.Body.String())
	}
	settled := decodeBody[BillView](t, rec)
	if settled.NextDue.String() != "2025-04-15" {
		t.Errorf("next due = %s, want 2025-04-15", settled.NextDue)
	}
	if settled.Paid {
		t.Error("bill should return to the scheduled state for the new cycle")
	}
}

func TestGoalContributionOverHTTP(t *testing.T) {
	s, _ := newTestServer(t)

	rec := doJSON(t, s, http.MethodPost, "/api/goals", map[string]any{
		"name":          "Vacation",
		"target_amount": "800.00",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/goals = %d, body %s", rec.Code, rec.Body.String())
	}
	goal := decodeBody[GoalView](t, rec)

	rec = doJSON(t, s, http.MethodPost, fmt.Sprintf("/api/goals/%s/contributions", goal.ID), map[string]any{
		"amount": "200.00",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("contribution = %d, body %s", rec.Code, rec.Body.String())
	}
	funded := decodeBody[GoalView](t, rec)
	if funded.Progress != 25 {
		t.Errorf("progress = %v, want 25", funded.Progress)
	}
	if funded.Remaining.String() != "600.00" {
		t.Errorf("remaining = %s, want 600.00", funded.Remaining)
	}
}
