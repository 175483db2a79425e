// Package http exposes the JSON API over the split service, the budget
// store and the notification store.
package http

import (
	"net/http"
	"time"

	"dividi/internal/cache"
	"dividi/internal/middleware/trace"
	"dividi/internal/notify"
	"dividi/internal/services"
	"dividi/internal/split"
	"dividi/internal/storage"
)

const (
	balanceCacheSize = 256
	balanceCacheTTL  = 30 * time.Second
)

type Server struct {
	http.Server

	service       *services.SplitService
	repo          *storage.SQLiteRepository
	notifications notify.Store
	watcher       *notify.BudgetWatcher

	// Balance reads are the hot path; cached per group and invalidated
	// on any write that can move a balance.
	balanceCache *cache.LRUCache[[]split.ParticipantBalance]
}

// NewServer configures routes and middleware, returning a ready-to-run
// http.Server.
func NewServer(addr string, service *services.SplitService, repo *storage.SQLiteRepository, notifications notify.Store, watcher *notify.BudgetWatcher) *Server {
	s := &Server{
		service:       service,
		repo:          repo,
		notifications: notifications,
		watcher:       watcher,
		balanceCache:  cache.NewLRUCache[[]split.ParticipantBalance](balanceCacheSize, balanceCacheTTL),
	}

	// Periodically drop expired balance entries; stops with the server.
	cacheManager := cache.NewManager()
	cacheManager.Register(s.balanceCache)
	cacheManager.StartCleanup(balanceCacheTTL)

	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("POST /api/groups", s.handleCreateGroup)
	mux.HandleFunc("GET /api/groups", s.handleListGroups)
	mux.HandleFunc("GET /api/groups/{id}", s.handleGetGroup)
	mux.HandleFunc("POST /api/groups/{id}/expenses", s.handleCreateExpense)
	mux.HandleFunc("GET /api/groups/{id}/expenses", s.handleListExpenses)
	mux.HandleFunc("GET /api/groups/{id}/balances", s.handleGroupBalances)
	mux.HandleFunc("GET /api/groups/{id}/settlements", s.handleListSettlements)

	mux.HandleFunc("POST /api/shares/{id}/settle", s.handleSettleShare)

	mux.HandleFunc("PUT /api/budgets/{month}", s.handleUpsertBudget)
	mux.HandleFunc("GET /api/budgets/{month}", s.handleGetBudget)
	mux.HandleFunc("GET /api/budgets", s.handleListBudgets)

	mux.HandleFunc("GET /api/notifications", s.handleListNotifications)
	mux.HandleFunc("GET /api/notifications/unread-count", s.handleUnreadCount)
	mux.HandleFunc("POST /api/notifications/read-all", s.handleMarkAllRead)
	mux.HandleFunc("POST /api/notifications/{id}/read", s.handleMarkRead)
	mux.HandleFunc("DELETE /api/notifications/{id}", s.handleDeleteNotification)
	mux.HandleFunc("DELETE /api/notifications", s.handleClearNotifications)

	traced := trace.NewMiddleware(clientIP)

	s.Server = http.Server{
		Addr:    addr,
		Handler: traced.Middleware(mux),
	}
	s.Server.RegisterOnShutdown(cacheManager.Stop)
	return s
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleReady reports ready only once the notification store hydrated,
// so clients never see a flash of empty notification state.
func (s *Server) handleReady(w http.ResponseWriter, _ *http.Request) {
	if !s.notifications.Hydrated() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "hydrating"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		return fwd
	}
	return r.RemoteAddr
}
