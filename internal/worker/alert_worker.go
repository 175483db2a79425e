// Package worker reacts to recorded expenses and settlements: it keeps
// budget alerts current and mirrors rows to the external ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"dividi/internal/amqp"
	"dividi/internal/core"
	"dividi/internal/ledger"
	"dividi/internal/log"
	"dividi/internal/notify"
	"dividi/internal/storage"
)

type AlertWorker struct {
	storage          *storage.SQLiteRepository
	watcher          *notify.BudgetWatcher
	expenseMirror    ledger.ExpenseMirror
	settlementMirror ledger.SettlementMirror
}

func NewAlertWorker(storage *storage.SQLiteRepository, watcher *notify.BudgetWatcher, em ledger.ExpenseMirror, sm ledger.SettlementMirror) *AlertWorker {
	return &AlertWorker{
		storage:          storage,
		watcher:          watcher,
		expenseMirror:    em,
		settlementMirror: sm,
	}
}

// HandleExpenseRecorded re-evaluates budget thresholds for the current
// month and mirrors the expense row to the ledger.
func (w *AlertWorker) HandleExpenseRecorded(ctx context.Context, msg *amqp.ExpenseRecordedMessage) error {
	slog.InfoContext(ctx, "Processing expense recorded message",
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldGroupID, msg.GroupID,
		log.FieldComponent, log.ComponentWorker)

	if err := w.EvaluateBudgets(ctx); err != nil {
		return fmt.Errorf("evaluate budgets: %w", err)
	}

	if w.expenseMirror == nil {
		slog.WarnContext(ctx, "No expense mirror configured, skipping ledger append",
			log.FieldExpenseID, msg.ExpenseID,
			log.FieldComponent, log.ComponentWorker)
		return nil
	}

	expense, err := w.storage.GetExpense(ctx, msg.ExpenseID)
	if err != nil {
		return fmt.Errorf("get expense from storage: %w", err)
	}
	group, err := w.storage.GetGroup(ctx, expense.GroupID)
	if err != nil {
		return fmt.Errorf("get group from storage: %w", err)
	}

	ref, err := w.expenseMirror.AppendExpense(ctx, group, expense)
	if err != nil {
		return fmt.Errorf("mirror expense to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Expense mirrored to ledger", log.NewFields().
		WithExpense(expense.ID, expense.GroupID, expense.Amount.Cents).
		WithOperation(log.OpMirror).
		WithComponent(log.ComponentWorker).
		WithLedgerRef(ref).
		ToSlice()...)
	return nil
}

// HandleShareSettled mirrors the settlement audit row to the ledger.
func (w *AlertWorker) HandleShareSettled(ctx context.Context, msg *amqp.ShareSettledMessage) error {
	slog.InfoContext(ctx, "Processing share settled message",
		log.FieldShareID, msg.ShareID,
		log.FieldExpenseID, msg.ExpenseID,
		log.FieldComponent, log.ComponentWorker)

	if w.settlementMirror == nil {
		slog.WarnContext(ctx, "No settlement mirror configured, skipping ledger append",
			log.FieldShareID, msg.ShareID,
			log.FieldComponent, log.ComponentWorker)
		return nil
	}

	settlement, err := w.storage.GetSettlementForShare(ctx, msg.ShareID)
	if err != nil {
		return fmt.Errorf("get settlement from storage: %w", err)
	}
	share, err := w.storage.GetShare(ctx, msg.ShareID)
	if err != nil {
		return fmt.Errorf("get share from storage: %w", err)
	}

	ref, err := w.settlementMirror.AppendSettlement(ctx, settlement, share)
	if err != nil {
		return fmt.Errorf("mirror settlement to ledger: %w", err)
	}

	slog.InfoContext(ctx, "Settlement mirrored to ledger", log.NewFields().
		WithShare(msg.ShareID, share.Amount.Cents).
		WithOperation(log.OpMirror).
		WithComponent(log.ComponentWorker).
		WithLedgerRef(ref).
		ToSlice()...)
	return nil
}

// EvaluateBudgets runs one threshold check over the current month's
// rows. Safe to call repeatedly: event keys make each alert tier fire
// once per month.
func (w *AlertWorker) EvaluateBudgets(ctx context.Context) error {
	now := time.Now()
	expenses, err := w.storage.ListExpensesByMonthPrefix(ctx, core.MonthKey(now))
	if err != nil {
		return fmt.Errorf("list month expenses: %w", err)
	}
	budgets, err := w.storage.ListBudgets(ctx)
	if err != nil {
		return fmt.Errorf("list budgets: %w", err)
	}
	w.watcher.Evaluate(expenses, budgets, now)
	return nil
}
