package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"dividi/internal/notify"
	"dividi/internal/services"
	"dividi/internal/storage"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	dir := t.TempDir()
	repo, err := storage.NewSQLiteRepository(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("open repository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	store := notify.NewFileStore(filepath.Join(dir, "notifications.json"))
	watcher := notify.NewBudgetWatcher(store)
	service := services.NewSplitService(repo, nil)
	return NewServer(":0", service, repo, store, watcher)
}

func doJSON(t *testing.T, srv *Server, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, req)
	return rec
}

func decodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rec.Body.String(), err)
	}
}

func createTestGroup(t *testing.T, srv *Server) groupResponse {
	t.Helper()
	rec := doJSON(t, srv, "POST", "/api/groups", map[string]any{
		"name":         "Trip",
		"currency":     "EUR",
		"participants": []string{"Alice", "Bob", "Carol"},
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create group status = %d: %s", rec.Code, rec.Body.String())
	}
	var g groupResponse
	decodeResponse(t, rec, &g)
	return g
}

func TestHealthAndReady(t *testing.T) {
	srv := newTestServer(t)

	rec := doJSON(t, srv, "GET", "/healthz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("healthz status = %d", rec.Code)
	}
	rec = doJSON(t, srv, "GET", "/readyz", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("readyz status = %d", rec.Code)
	}
}

func TestCreateGroupEndpoint(t *testing.T) {
	srv := newTestServer(t)

	g := createTestGroup(t, srv)
	if g.ID == "" || len(g.Participants) != 3 {
		t.Fatalf("group response = %+v", g)
	}

	rec := doJSON(t, srv, "GET", "/api/groups/"+g.ID, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("get group status = %d", rec.Code)
	}

	rec = doJSON(t, srv, "GET", "/api/groups", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list groups status = %d", rec.Code)
	}
	var groups []groupResponse
	decodeResponse(t, rec, &groups)
	if len(groups) != 1 || groups[0].ID != g.ID {
		t.Errorf("groups = %+v, want the one created", groups)
	}

	rec = doJSON(t, srv, "GET", "/api/groups/missing", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing group status = %d, want 404", rec.Code)
	}

	rec = doJSON(t, srv, "POST", "/api/groups", map[string]any{
		"name": "NoCurrency", "participants": []string{"A"},
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("invalid group status = %d, want 422", rec.Code)
	}
}

func TestCreateGroup_RejectsBadFields(t *testing.T) {
	srv := newTestServer(t)

	tests := []struct {
		name string
		body map[string]any
	}{
		{"name over limit", map[string]any{
			"name": strings.Repeat("x", 150), "currency": "EUR", "participants": []string{"A"},
		}},
		{"currency not three letters", map[string]any{
			"name": "Trip", "currency": "EURO", "participants": []string{"A"},
		}},
		{"participant name over limit", map[string]any{
			"name": "Trip", "currency": "EUR", "participants": []string{strings.Repeat("y", 150)},
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, "POST", "/api/groups", tt.body)
			if rec.Code != http.StatusUnprocessableEntity {
				t.Errorf("status = %d, want 422: %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestCreateExpense_RejectsLongTitle(t *testing.T) {
	srv := newTestServer(t)
	g := createTestGroup(t, srv)

	rec := doJSON(t, srv, "POST", "/api/groups/"+g.ID+"/expenses", map[string]any{
		"title":                strings.Repeat("t", 201),
		"amount":               "10.00",
		"payer_participant_id": g.Participants[0].ID,
	})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("status = %d, want 422: %s", rec.Code, rec.Body.String())
	}
}

func TestExpenseAndBalancesFlow(t *testing.T) {
	srv := newTestServer(t)
	g := createTestGroup(t, srv)
	alice := g.Participants[0]

	rec := doJSON(t, srv, "POST", "/api/groups/"+g.ID+"/expenses", map[string]any{
		"title":                "Dinner",
		"amount":               "100.00",
		"payer_participant_id": alice.ID,
		"date":                 "2026-03-10",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d: %s", rec.Code, rec.Body.String())
	}
	var e expenseResponse
	decodeResponse(t, rec, &e)
	if e.SplitType != "equal" {
		t.Errorf("split type = %q, want equal (default)", e.SplitType)
	}
	if len(e.Shares) != 3 {
		t.Fatalf("got %d shares, want 3", len(e.Shares))
	}

	rec = doJSON(t, srv, "GET", "/api/groups/"+g.ID+"/balances", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("balances status = %d", rec.Code)
	}
	var balancesBody struct {
		Currency string            `json:"currency"`
		Balances []balanceResponse `json:"balances"`
	}
	decodeResponse(t, rec, &balancesBody)
	if balancesBody.Currency != "EUR" {
		t.Errorf("currency = %q, want EUR", balancesBody.Currency)
	}
	if len(balancesBody.Balances) != 3 {
		t.Fatalf("got %d balances, want 3", len(balancesBody.Balances))
	}
	if balancesBody.Balances[0].BalanceCents != 6666 {
		t.Errorf("payer balance = %d, want 6666", balancesBody.Balances[0].BalanceCents)
	}
	if balancesBody.Balances[0].Balance != "EUR 66.66" {
		t.Errorf("formatted balance = %q, want EUR 66.66", balancesBody.Balances[0].Balance)
	}

	// Settle Bob's share and check the balances move, cache included.
	var bobShare shareResponse
	for _, sh := range e.Shares {
		if sh.ParticipantID == g.Participants[1].ID {
			bobShare = sh
		}
	}
	rec = doJSON(t, srv, "POST", "/api/shares/"+bobShare.ID+"/settle", map[string]any{
		"method": "cash",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("settle status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "POST", "/api/shares/"+bobShare.ID+"/settle", nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("double settle status = %d, want 409", rec.Code)
	}

	rec = doJSON(t, srv, "GET", "/api/groups/"+g.ID+"/balances", nil)
	decodeResponse(t, rec, &balancesBody)
	if balancesBody.Balances[0].BalanceCents != 3333 {
		t.Errorf("payer balance after settle = %d, want 3333", balancesBody.Balances[0].BalanceCents)
	}
	if balancesBody.Balances[1].BalanceCents != 0 {
		t.Errorf("settled balance = %d, want 0", balancesBody.Balances[1].BalanceCents)
	}

	rec = doJSON(t, srv, "GET", "/api/groups/"+g.ID+"/settlements", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("settlements status = %d", rec.Code)
	}
	var settlements []settlementResponse
	decodeResponse(t, rec, &settlements)
	if len(settlements) != 1 {
		t.Errorf("got %d settlements, want 1", len(settlements))
	}
}

func TestCreateExpense_BadInput(t *testing.T) {
	srv := newTestServer(t)
	g := createTestGroup(t, srv)

	tests := []struct {
		name string
		body map[string]any
		want int
	}{
		{"bad amount", map[string]any{
			"title": "x", "amount": "abc", "payer_participant_id": g.Participants[0].ID,
		}, http.StatusUnprocessableEntity},
		{"negative amount", map[string]any{
			"title": "x", "amount": "-5.00", "payer_participant_id": g.Participants[0].ID,
		}, http.StatusUnprocessableEntity},
		{"payer outside group", map[string]any{
			"title": "x", "amount": "5.00", "payer_participant_id": "stranger",
		}, http.StatusUnprocessableEntity},
		{"unknown field", map[string]any{
			"title": "x", "amount": "5.00", "payer_participant_id": g.Participants[0].ID,
			"tip": "1.00",
		}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, srv, "POST", "/api/groups/"+g.ID+"/expenses", tt.body)
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}
}

func TestBudgetEndpointsTriggerAlerts(t *testing.T) {
	srv := newTestServer(t)
	g := createTestGroup(t, srv)

	// Spend this month, then set a budget the spend already exceeds.
	rec := doJSON(t, srv, "POST", "/api/groups/"+g.ID+"/expenses", map[string]any{
		"title":                "Rent",
		"amount":               "900.00",
		"payer_participant_id": g.Participants[0].ID,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense status = %d", rec.Code)
	}

	month := currentMonth()
	rec = doJSON(t, srv, "PUT", "/api/budgets/"+month, map[string]any{"total": "500.00"})
	if rec.Code != http.StatusOK {
		t.Fatalf("upsert budget status = %d: %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, srv, "GET", "/api/budgets", nil)
	var budgets []budgetResponse
	decodeResponse(t, rec, &budgets)
	if len(budgets) != 1 || budgets[0].TotalCents != 50000 {
		t.Fatalf("budgets = %+v", budgets)
	}

	rec = doJSON(t, srv, "GET", "/api/budgets/"+month, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get budget status = %d", rec.Code)
	}
	var single budgetResponse
	decodeResponse(t, rec, &single)
	if single.Month != month || single.Total != "500.00" {
		t.Errorf("budget = %+v", single)
	}

	rec = doJSON(t, srv, "GET", "/api/budgets/1999-01", nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing budget status = %d, want 404", rec.Code)
	}

	// 180% usage: both alert tiers fired.
	rec = doJSON(t, srv, "GET", "/api/notifications", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("notifications status = %d", rec.Code)
	}
	var notifications []json.RawMessage
	decodeResponse(t, rec, &notifications)
	if len(notifications) != 2 {
		t.Errorf("got %d notifications, want 2", len(notifications))
	}

	rec = doJSON(t, srv, "GET", "/api/notifications/unread-count", nil)
	var count map[string]int
	decodeResponse(t, rec, &count)
	if count["unread"] != 2 {
		t.Errorf("unread = %d, want 2", count["unread"])
	}

	rec = doJSON(t, srv, "PUT", "/api/budgets/not-a-month", map[string]any{"total": "10.00"})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("bad month status = %d, want 422", rec.Code)
	}
}

func TestNotificationLifecycleEndpoints(t *testing.T) {
	srv := newTestServer(t)

	n, _ := srv.notifications.Add(notify.Input{Title: "hello"})
	srv.notifications.Add(notify.Input{Title: "world"})

	rec := doJSON(t, srv, "POST", "/api/notifications/"+n.ID+"/read", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("mark read status = %d, want 204", rec.Code)
	}
	if srv.notifications.UnreadCount() != 1 {
		t.Errorf("unread = %d, want 1", srv.notifications.UnreadCount())
	}

	rec = doJSON(t, srv, "POST", "/api/notifications/read-all", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("read-all status = %d, want 204", rec.Code)
	}
	if srv.notifications.UnreadCount() != 0 {
		t.Errorf("unread after read-all = %d, want 0", srv.notifications.UnreadCount())
	}

	rec = doJSON(t, srv, "DELETE", "/api/notifications/"+n.ID, nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("delete status = %d, want 204", rec.Code)
	}
	rec = doJSON(t, srv, "DELETE", "/api/notifications", nil)
	if rec.Code != http.StatusNoContent {
		t.Errorf("clear status = %d, want 204", rec.Code)
	}
	if got := len(srv.notifications.List()); got != 0 {
		t.Errorf("got %d notifications after clear, want 0", got)
	}
}

func currentMonth() string {
	return time.Now().Format("2006-01")
}
