package http

import (
	"log/slog"
	"net/http"

	"dividi/internal/core"
	"dividi/internal/log"
)

type budgetResponse struct {
	Month      string `json:"month"`
	TotalCents int64  `json:"total_cents"`
	Total      string `json:"total"`
}

func (s *Server) handleUpsertBudget(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")

	var req struct {
		Total string `json:"total"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Total)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid total")
		return
	}

	budget := core.Budget{Month: month, Total: core.Money{Cents: cents}}
	if err := budget.Validate(); err != nil {
		writeDomainError(w, err)
		return
	}
	if err := s.repo.UpsertBudget(r.Context(), budget); err != nil {
		writeDomainError(w, err)
		return
	}

	// A lower budget can put the current month over a threshold at once.
	s.evaluateBudgets(r.Context())

	slog.InfoContext(r.Context(), "Budget saved", log.NewFields().
		WithMonth(budget.Month).
		WithOperation(log.OpUpsert).
		WithComponent(log.ComponentHTTP).
		ToSlice()...)

	writeJSON(w, http.StatusOK, budgetResponse{
		Month:      budget.Month,
		TotalCents: budget.Total.Cents,
		Total:      budget.Total.String(),
	})
}

func (s *Server) handleGetBudget(w http.ResponseWriter, r *http.Request) {
	month := r.PathValue("month")
	if err := core.ValidateMonth(month); err != nil {
		writeDomainError(w, err)
		return
	}

	b, err := s.repo.GetBudget(r.Context(), month)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, budgetResponse{
		Month:      b.Month,
		TotalCents: b.Total.Cents,
		Total:      b.Total.String(),
	})
}

func (s *Server) handleListBudgets(w http.ResponseWriter, r *http.Request) {
	budgets, err := s.repo.ListBudgets(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]budgetResponse, len(budgets))
	for i, b := range budgets {
		out[i] = budgetResponse{Month: b.Month, TotalCents: b.Total.Cents, Total: b.Total.String()}
	}
	writeJSON(w, http.StatusOK, out)
}
