package http

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"finbook/internal/core"
)

func pathID(r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	return id, err == nil
}

// --- reads ---

func (s *Server) handleListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := s.store.Accounts(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]AccountView, 0, len(accounts))
	for _, a := range accounts {
		views = append(views, AccountView{Account: a})
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.store.Loans(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	today := core.Today(s.now())
	views := make([]LoanView, 0, len(loans))
	for _, l := range loans {
		views = append(views, loanView(l, today))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.store.Budgets(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	views := make([]BudgetView, 0, len(budgets))
	for _, b := range budgets {
		views = append(views, budgetView(b))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.store.Goals(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	today := core.Today(s.now())
	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, goalView(g, today))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListBills(w http.ResponseWriter, r *http.Request) {
	bills, err := s.store.Bills(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	today := core.Today(s.now())
	views := make([]BillView, 0, len(bills))
	for _, b := range bills {
		views = append(views, billView(b, today))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.store.Categories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	subs, err := s.store.Subcategories(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	byParent := make(map[uuid.UUID][]core.Subcategory)
	for _, sub := range subs {
		byParent[sub.CategoryID] = append(byParent[sub.CategoryID], sub)
	}
	views := make([]CategoryView, 0, len(cats))
	for _, c := range cats {
		views = append(views, CategoryView{Category: c, Subcategories: byParent[c.ID]})
	}
	writeJSON(w, http.StatusOK, views)
}

// handleDashboard serves the aggregation roll-up. The snapshot is memoized
// briefly and dropped on every accepted mutation.
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if view, ok := s.dashCache.Get(dashboardCacheKey); ok {
		writeJSON(w, http.StatusOK, view)
		return
	}

	ctx := r.Context()
	accounts, err := s.store.Accounts(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	loans, err := s.store.Loans(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	budgets, err := s.store.Budgets(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	goals, err := s.store.Goals(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	bills, err := s.store.Bills(ctx)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	today := core.Today(s.now())
	view := DashboardView{
		NetBalance:   core.SumAccounts(accounts),
		Budgets:      core.SumBudgets(budgets),
		Goals:        core.SumGoals(goals),
		Loans:        core.SumLoans(core.ActiveLoans(loans, today)),
		MonthlyBills: core.SumBills(core.BillsByFrequency(bills, core.Monthly)),
		BillsTotal:   core.SumBills(bills),
		AsOf:         today,
	}
	s.dashCache.Set(dashboardCacheKey, view)
	writeJSON(w, http.StatusOK, view)
}

// --- mutations ---

func (s *Server) handleCreateAccount(w http.ResponseWriter, r *http.Request) {
	var a core.Account
	if err := decodeJSON(r, &a); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateAccount(r.Context(), a)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, AccountView{Account: created})
}

func (s *Server) handleCreateLoan(w http.ResponseWriter, r *http.Request) {
	var l core.Loan
	if err := decodeJSON(r, &l); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateLoan(r.Context(), l)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, loanView(created, core.Today(s.now())))
}

type paymentRequest struct {
	Amount    core.Money        `json:"amount"`
	AccountID uuid.UUID         `json:"account_id,omitempty"`
	Date      core.CalendarDate `json:"date,omitempty"`
}

func (s *Server) handleLoanPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid loan id")
		return
	}
	var req paymentRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	loan, err := s.engine.ApplyLoanPayment(r.Context(), id, req.Amount, req.AccountID, req.Date)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, loanView(loan, core.Today(s.now())))
}

func (s *Server) handleCreateBudget(w http.ResponseWriter, r *http.Request) {
	var b core.Budget
	if err := decodeJSON(r, &b); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateBudget(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, budgetView(created))
}

func (s *Server) handleUpdateBudget(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid budget id")
		return
	}
	var b core.Budget
	if err := decodeJSON(r, &b); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	updated, err := s.engine.UpdateBudget(r.Context(), id, b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, budgetView(updated))
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var g core.Goal
	if err := decodeJSON(r, &g); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateGoal(r.Context(), g)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, goalView(created, core.Today(s.now())))
}

type contributionRequest struct {
	Amount core.Money `json:"amount"`
}

func (s *Server) handleGoalContribution(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid goal id")
		return
	}
	var req contributionRequest
	if err := decodeJSON(r, &req); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	goal, err := s.engine.ContributeToGoal(r.Context(), id, req.Amount)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, goalView(goal, core.Today(s.now())))
}

func (s *Server) handleCreateBill(w http.ResponseWriter, r *http.Request) {
	var b core.Bill
	if err := decodeJSON(r, &b); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateBill(r.Context(), b)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusCreated, billView(created, core.Today(s.now())))
}

func (s *Server) handleMarkBillPaid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid bill id")
		return
	}
	bill, err := s.engine.MarkBillPaid(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	writeJSON(w, http.StatusOK, billView(bill, core.Today(s.now())))
}

func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var c core.Category
	if err := decodeJSON(r, &c); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateCategory(r.Context(), c)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, CategoryView{Category: created})
}

func (s *Server) handleCreateSubcategory(w http.ResponseWriter, r *http.Request) {
	var sub core.Subcategory
	if err := decodeJSON(r, &sub); err != nil {
		s.badRequest(w, "invalid request body")
		return
	}
	created, err := s.engine.CreateSubcategory(r.Context(), sub)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// Plural path segments map onto entity kinds for deletes.
var kindByPath = map[string]core.EntityKind{
	"accounts":      core.KindAccount,
	"loans":         core.KindLoan,
	"budgets":       core.KindBudget,
	"goals":         core.KindGoal,
	"bills":         core.KindBill,
	"categories":    core.KindCategory,
	"subcategories": core.KindSubcategory,
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindByPath[mux.Vars(r)["kind"]]
	if !ok {
		s.badRequest(w, "unknown entity kind")
		return
	}
	id, ok := pathID(r)
	if !ok {
		s.badRequest(w, "invalid entity id")
		return
	}
	if err := s.engine.DeleteEntity(r.Context(), kind, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	s.invalidateDashboard()
	w.WriteHeader(http.StatusNoContent)
}
