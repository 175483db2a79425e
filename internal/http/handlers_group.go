package http

import (
	"log/slog"
	"net/http"
	"time"

	"dividi/internal/core"
	"dividi/internal/log"
)

type participantResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	UserID string `json:"user_id,omitempty"`
}

type groupResponse struct {
	ID           string                `json:"id"`
	Name         string                `json:"name"`
	Currency     string                `json:"currency"`
	CreatedAt    time.Time             `json:"created_at"`
	Participants []participantResponse `json:"participants"`
}

func toGroupResponse(g core.Group, participants []core.Participant) groupResponse {
	resp := groupResponse{
		ID:           g.ID,
		Name:         g.Name,
		Currency:     g.Currency,
		CreatedAt:    g.CreatedAt,
		Participants: make([]participantResponse, len(participants)),
	}
	for i, p := range participants {
		resp.Participants[i] = participantResponse{ID: p.ID, Name: p.Name, UserID: p.UserID}
	}
	return resp
}

func (s *Server) handleCreateGroup(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string   `json:"name"`
		Currency     string   `json:"currency"`
		Participants []string `json:"participants"`
	}
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	group, participants, err := s.service.CreateGroup(r.Context(), req.Name, req.Currency, req.Participants)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	slog.InfoContext(r.Context(), "Group created", log.NewFields().
		WithGroup(group.ID).
		WithOperation(log.OpCreate).
		WithComponent(log.ComponentHTTP).
		ToSlice()...)

	writeJSON(w, http.StatusCreated, toGroupResponse(group, participants))
}

func (s *Server) handleListGroups(w http.ResponseWriter, r *http.Request) {
	groups, err := s.repo.ListGroups(r.Context())
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]groupResponse, len(groups))
	for i, g := range groups {
		participants, err := s.repo.ListParticipants(r.Context(), g.ID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		out[i] = toGroupResponse(g, participants)
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetGroup(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	group, err := s.repo.GetGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	participants, err := s.repo.ListParticipants(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toGroupResponse(group, participants))
}

type balanceResponse struct {
	ParticipantID   string `json:"participant_id"`
	ParticipantName string `json:"participant_name"`
	BalanceCents    int64  `json:"balance_cents"`
	Balance         string `json:"balance"`
}

func (s *Server) handleGroupBalances(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	group, err := s.repo.GetGroup(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	balances, ok := s.balanceCache.Get(groupID)
	if !ok {
		balances, err = s.service.GroupBalances(r.Context(), groupID)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		s.balanceCache.Set(groupID, balances)
	}

	out := make([]balanceResponse, len(balances))
	for i, b := range balances {
		out[i] = balanceResponse{
			ParticipantID:   b.ParticipantID,
			ParticipantName: b.ParticipantName,
			BalanceCents:    b.BalanceCents,
			Balance:         core.FormatAmount(b.BalanceCents, group.Currency),
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group_id": groupID,
		"currency": group.Currency,
		"balances": out,
	})
}

type settlementResponse struct {
	ID        string    `json:"id"`
	ShareID   string    `json:"share_id"`
	Amount    string    `json:"amount"`
	Method    string    `json:"method,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func (s *Server) handleListSettlements(w http.ResponseWriter, r *http.Request) {
	groupID := r.PathValue("id")

	if _, err := s.repo.GetGroup(r.Context(), groupID); err != nil {
		writeDomainError(w, err)
		return
	}
	settlements, err := s.repo.ListSettlements(r.Context(), groupID)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	out := make([]settlementResponse, len(settlements))
	for i, st := range settlements {
		out[i] = settlementResponse{
			ID:        st.ID,
			ShareID:   st.ShareID,
			Amount:    st.Amount.String(),
			Method:    st.Method,
			Note:      st.Note,
			CreatedAt: st.CreatedAt,
		}
	}
	writeJSON(w, http.StatusOK, out)
}
