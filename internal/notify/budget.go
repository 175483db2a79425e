package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"dividi/internal/core"
)

// DefaultThresholds are the percentage cutoffs checked in ascending
// order. Each tier fires at most once per month thanks to event keys.
var DefaultThresholds = []int64{80, 100}

// BudgetWatcher compares current-month spend against the current-month
// budget and emits alerts through the notification store. Re-evaluating
// with the same inputs is harmless: the event key
// "budget-alert:<month>:<threshold>" makes each tier fire once.
type BudgetWatcher struct {
	store      Store
	thresholds []int64
}

func NewBudgetWatcher(store Store) *BudgetWatcher {
	return &BudgetWatcher{store: store, thresholds: DefaultThresholds}
}

// Evaluate runs one threshold check. Missing or non-positive budget data
// means there is nothing to notify about; that is not an error. Nothing
// happens until the store has hydrated, so persisted event keys are
// never raced by an early evaluation.
func (w *BudgetWatcher) Evaluate(expenses []core.SplitExpense, budgets []core.Budget, now time.Time) {
	if !w.store.Hydrated() {
		return
	}

	month := core.MonthKey(now)

	// In-month test is a string prefix match on the ISO date, matching
	// how the rest of the system keys months. Not timezone-aware.
	var totalCents int64
	for _, e := range expenses {
		if strings.HasPrefix(e.Date, month) {
			totalCents += e.Amount.Cents
		}
	}

	var budget *core.Budget
	for i := range budgets {
		if budgets[i].Month == month {
			budget = &budgets[i]
			break
		}
	}
	if budget == nil || budget.Total.Cents <= 0 {
		return
	}

	usage := decimal.NewFromInt(totalCents).
		Mul(decimal.NewFromInt(100)).
		Div(decimal.NewFromInt(budget.Total.Cents))

	for _, threshold := range w.thresholds {
		if usage.LessThan(decimal.NewFromInt(threshold)) {
			continue
		}
		w.store.Add(w.alertFor(month, threshold, usage, totalCents, budget.Total.Cents))
	}
}

func (w *BudgetWatcher) alertFor(month string, threshold int64, usage decimal.Decimal, spentCents, budgetCents int64) Input {
	input := Input{
		Type:      core.NotifBudgetAlert,
		RelatedID: month,
		Route:     "/budgets",
		EventKey:  fmt.Sprintf("budget-alert:%s:%d", month, threshold),
	}
	if threshold >= 100 {
		input.Title = "Budget exceeded"
		input.Message = fmt.Sprintf("You have spent %s of your %s budget for %s.",
			core.Money{Cents: spentCents}.String(),
			core.Money{Cents: budgetCents}.String(),
			month)
		return input
	}
	input.Title = "Budget alert"
	input.Message = fmt.Sprintf("You have used %d%% of your budget for %s.",
		usage.IntPart(), month)
	return input
}
