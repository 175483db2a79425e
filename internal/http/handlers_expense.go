package http

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"dividi/internal/core"
	"dividi/internal/log"
	"dividi/internal/services"
)

type shareResponse struct {
	ID            string     `json:"id"`
	ExpenseID     string     `json:"expense_id"`
	ParticipantID string     `json:"participant_id"`
	AmountCents   int64      `json:"amount_cents"`
	Amount        string     `json:"amount"`
	IsSettled     bool       `json:"is_settled"`
	SettledAt     *time.Time `json:"settled_at,omitempty"`
}

type expenseResponse struct {
	ID                 string          `json:"id"`
	GroupID            string          `json:"group_id"`
	PayerParticipantID string          `json:"payer_participant_id"`
	AmountCents        int64           `json:"amount_cents"`
	Amount             string          `json:"amount"`
	Currency           string          `json:"currency"`
	Date               string          `json:"date"`
	SplitType          string          `json:"split_type"`
	Title              string          `json:"title"`
	Notes              string          `json:"notes,omitempty"`
	Shares             []shareResponse `json:"shares,omitempty"`
}

func toShareResponse(sh core.Share) shareResponse {
	return shareResponse{
		ID:            sh.ID,
		ExpenseID:     sh.ExpenseID,
		ParticipantID: sh.ParticipantID,
		AmountCents:   sh.Amount.Cents,
		Amount:        sh.Amount.String(),
		IsSettled:     sh.IsSettled,
		SettledAt:     sh.SettledAt,
	}
}

func toExpenseResponse(e core.SplitExpense, shares []core.Share) expenseResponse {
	resp := expenseResponse{
		ID:                 e.ID,
		GroupID:            e.GroupID,
		PayerParticipantID: e.PayerParticipantID,
		AmountCents:        e.Amount.Cents,
		Amount:             e.Amount.String(),
		Currency:           e.Currency,
		Date:               e.Date,
		SplitType:          string(e.SplitType),
		Title:              e.Title,
		Notes:              e.Notes,
	}
	for _, sh := range shares {
		resp.Shares = append(resp.Shares, toShareResponse(sh))
	}
	return resp
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	var req struct {
		Title              string `json:"title"`
		Notes              string `json:"notes"`
		Amount             string `json:"amount"`
		PayerParticipantID string `json:"payer_participant_id"`
		Date               string `json:"date"`
		SplitType          string `json:"split_type"`
		CustomShares       []struct {
			ParticipantID string `json:"participant_id"`
			Amount        string `json:"amount"`
		} `json:"custom_shares"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cents, err := core.ParseAmountToCents(req.Amount)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	splitType := core.SplitType(req.SplitType)
	if req.SplitType == "" {
		splitType = core.SplitEqual
	}

	input := services.CreateExpenseInput{
		GroupID:            groupID,
		Title:              req.Title,
		Notes:              req.Notes,
		AmountCents:        cents,
		PayerParticipantID: req.PayerParticipantID,
		Date:               req.Date,
		SplitType:          splitType,
	}
	for _, c := range req.CustomShares {
		shareCents, err := core.ParseAmountToCents(c.Amount)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "invalid share amount")
			return
		}
		input.CustomShares = append(input.CustomShares, services.CustomShare{
			ParticipantID: c.ParticipantID,
			AmountCents:   shareCents,
		})
	}

	expense, shares, err := s.service.CreateExpense(r.Context(), input)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	s.balanceCache.Delete(groupID)
	s.evaluateBudgets(r.Context())

	slog.InfoContext(r.Context(), "Expense created", log.NewFields().
		WithExpense(expense.ID, groupID, expense.Amount.Cents).
		WithOperation(log.OpCreate).
		WithComponent(log.ComponentHTTP).
		ToSlice()...)

	writeJSON(w, http.StatusCreated, toExpenseResponse(expense, shares))
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	if _, err := s.repo.GetGroup(r.Context(), groupID); err != nil {
		writeDomainError(w, err)
		return
	}
	expenses, err := s.repo.ListExpenses(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	shares, err := s.repo.ListShares(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	byExpense := make(map[string][]core.Share)
	for _, sh := range shares {
		byExpense[sh.ExpenseID] = append(byExpense[sh.ExpenseID], sh)
	}

	out := make([]expenseResponse, len(expenses))
	for i, e := range expenses {
		out[i] = toExpenseResponse(e, byExpense[e.ID])
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleSettleShare(w http.ResponseWriter, r *http.Request) {
	shareID := r.PathValue("id")

	var req struct {
		Method string `json:"method"`
		Note   string `json:"note"`
	}
	if r.ContentLength > 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	settlement, err := s.service.SettleShare(r.Context(), shareID, req.Method, req.Note)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	// The settled share moves two balances; drop the group's cache entry.
	if share, err := s.repo.GetShare(r.Context(), shareID); err == nil {
		if expense, err := s.repo.GetExpense(r.Context(), share.ExpenseID); err == nil {
			s.balanceCache.Delete(expense.GroupID)
		}
	}

	slog.InfoContext(r.Context(), "Share settled", log.NewFields().
		WithShare(shareID, settlement.Amount.Cents).
		WithOperation(log.OpSettle).
		WithComponent(log.ComponentHTTP).
		ToSlice()...)

	writeJSON(w, http.StatusOK, settlementResponse{
		ID:        settlement.ID,
		ShareID:   settlement.ShareID,
		Amount:    settlement.Amount.String(),
		Method:    settlement.Method,
		Note:      settlement.Note,
		CreatedAt: settlement.CreatedAt,
	})
}

// evaluateBudgets re-runs the threshold check in-process so alerts do
// not depend on the worker being up. Event keys keep this idempotent.
func (s *Server) evaluateBudgets(ctx context.Context) {
	expenses, err := s.repo.ListExpensesByMonthPrefix(ctx, core.MonthKey(time.Now()))
	if err != nil {
		slog.ErrorContext(ctx, "List month expenses for budget check", log.NewFields().
			WithError(err).
			WithOperation(log.OpEvaluate).
			WithComponent(log.ComponentHTTP).
			ToSlice()...)
		return
	}
	budgets, err := s.repo.ListBudgets(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "List budgets for budget check", log.NewFields().
			WithError(err).
			WithOperation(log.OpEvaluate).
			WithComponent(log.ComponentHTTP).
			ToSlice()...)
		return
	}
	s.watcher.Evaluate(expenses, budgets, time.Now())
}
