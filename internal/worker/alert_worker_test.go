package worker

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dividi/internal/amqp"
	"dividi/internal/core"
	"dividi/internal/ledger/memory"
	"dividi/internal/notify"
	"dividi/internal/storage"
)

func newTestWorker(t *testing.T) (*AlertWorker, *storage.SQLiteRepository, *notify.FileStore, *memory.Mirror) {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := notify.NewFileStore(filepath.Join(dir, "notifications.json"))
	watcher := notify.NewBudgetWatcher(store)
	mirror := memory.New()
	return NewAlertWorker(repo, watcher, mirror, mirror), repo, store, mirror
}

func seedRecordedExpense(t *testing.T, repo *storage.SQLiteRepository, cents int64) (core.SplitExpense, core.Share) {
	t.Helper()
	ctx := context.Background()
	g := core.Group{ID: "g1", Name: "Trip", Currency: "EUR", CreatedAt: time.Now()}
	participants := []core.Participant{
		{ID: "p1", GroupID: "g1", Name: "Alice"},
		{ID: "p2", GroupID: "g1", Name: "Bob"},
	}
	if err := repo.CreateGroup(ctx, g, participants); err != nil {
		t.Fatal(err)
	}

	e := core.SplitExpense{
		ID: "e1", GroupID: "g1", PayerParticipantID: "p1",
		Amount: core.Money{Cents: cents}, Currency: "EUR",
		Date: time.Now().Format("2006-01-02"), SplitType: core.SplitEqual, Title: "Dinner",
	}
	half := cents / 2
	unsettled := core.Share{ID: "s2", ExpenseID: "e1", ParticipantID: "p2", Amount: core.Money{Cents: cents - half}}
	shares := []core.Share{
		{ID: "s1", ExpenseID: "e1", ParticipantID: "p1", Amount: core.Money{Cents: half}, IsSettled: true},
		unsettled,
	}
	if err := repo.CreateExpense(ctx, e, shares); err != nil {
		t.Fatal(err)
	}
	return e, unsettled
}

func TestHandleExpenseRecorded_MirrorsAndAlerts(t *testing.T) {
	w, repo, store, mirror := newTestWorker(t)
	ctx := context.Background()

	e, _ := seedRecordedExpense(t, repo, 9000)
	month := core.MonthKey(time.Now())
	if err := repo.UpsertBudget(ctx, core.Budget{Month: month, Total: core.Money{Cents: 10000}}); err != nil {
		t.Fatal(err)
	}

	msg := amqp.NewExpenseRecordedMessage(e.ID, e.GroupID)
	if err := w.HandleExpenseRecorded(ctx, msg); err != nil {
		t.Fatalf("HandleExpenseRecorded: %v", err)
	}

	mirrored := mirror.Expenses()
	if len(mirrored) != 1 || mirrored[0].ID != e.ID {
		t.Errorf("mirrored expenses = %+v, want [%s]", mirrored, e.ID)
	}

	// 90% of budget: the 80 tier fired.
	list := store.List()
	if len(list) != 1 {
		t.Fatalf("got %d notifications, want 1", len(list))
	}
	if list[0].Type != core.NotifBudgetAlert {
		t.Errorf("notification type = %s", list[0].Type)
	}

	// Redelivery mirrors again but never re-alerts.
	if err := w.HandleExpenseRecorded(ctx, msg); err != nil {
		t.Fatalf("redelivery: %v", err)
	}
	if got := len(store.List()); got != 1 {
		t.Errorf("got %d notifications after redelivery, want 1", got)
	}
}

func TestHandleExpenseRecorded_MissingExpense(t *testing.T) {
	w, _, _, _ := newTestWorker(t)

	msg := amqp.NewExpenseRecordedMessage("missing", "g1")
	if err := w.HandleExpenseRecorded(context.Background(), msg); err == nil {
		t.Error("missing expense did not error")
	}
}

func TestHandleExpenseRecorded_NoMirror(t *testing.T) {
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer repo.Close()
	store := notify.NewFileStore(filepath.Join(dir, "notifications.json"))
	w := NewAlertWorker(repo, notify.NewBudgetWatcher(store), nil, nil)

	e, _ := seedRecordedExpense(t, repo, 1000)
	msg := amqp.NewExpenseRecordedMessage(e.ID, e.GroupID)
	if err := w.HandleExpenseRecorded(context.Background(), msg); err != nil {
		t.Errorf("HandleExpenseRecorded without mirror: %v", err)
	}
}

func TestHandleShareSettled_MirrorsSettlement(t *testing.T) {
	w, repo, _, mirror := newTestWorker(t)
	ctx := context.Background()

	_, share := seedRecordedExpense(t, repo, 1000)
	settlement := core.Settlement{
		ID: "st1", ShareID: share.ID, Amount: share.Amount,
		Method: "cash", CreatedAt: time.Now(),
	}
	if err := repo.SettleShare(ctx, settlement); err != nil {
		t.Fatal(err)
	}

	msg := amqp.NewShareSettledMessage(share.ID, share.ExpenseID)
	if err := w.HandleShareSettled(ctx, msg); err != nil {
		t.Fatalf("HandleShareSettled: %v", err)
	}

	mirrored := mirror.Settlements()
	if len(mirrored) != 1 || mirrored[0].ID != "st1" {
		t.Errorf("mirrored settlements = %+v, want [st1]", mirrored)
	}
}

func TestEvaluateBudgets_NoBudgetIsQuiet(t *testing.T) {
	w, repo, store, _ := newTestWorker(t)
	seedRecordedExpense(t, repo, 99999)

	if err := w.EvaluateBudgets(context.Background()); err != nil {
		t.Fatalf("EvaluateBudgets: %v", err)
	}
	if got := len(store.List()); got != 0 {
		t.Errorf("got %d notifications without a budget, want 0", got)
	}
}
