package http

import (
	"net/http"
)

// Notification reads return 503 until the store has hydrated its
// persisted state, so clients can show a loading state instead of a
// flash of nothing.
func (s *Server) handleListNotifications(w http.ResponseWriter, r *http.Request) {
	if !s.notifications.Hydrated() {
		writeError(w, http.StatusServiceUnavailable, "notification store loading")
		return
	}
	writeJSON(w, http.StatusOK, s.notifications.List())
}

func (s *Server) handleUnreadCount(w http.ResponseWriter, r *http.Request) {
	if !s.notifications.Hydrated() {
		writeError(w, http.StatusServiceUnavailable, "notification store loading")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"unread": s.notifications.UnreadCount()})
}

func (s *Server) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	s.notifications.MarkRead(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	s.notifications.MarkAllRead()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleDeleteNotification(w http.ResponseWriter, r *http.Request) {
	s.notifications.Delete(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearNotifications(w http.ResponseWriter, r *http.Request) {
	s.notifications.ClearAll()
	w.WriteHeader(http.StatusNoContent)
}
