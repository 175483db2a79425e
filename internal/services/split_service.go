// Package services orchestrates domain operations across storage and
// the event pipeline.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"dividi/internal/core"
	"dividi/internal/split"
	"dividi/internal/storage"
)

// EventPublisher is the slice of the AMQP client the service needs.
type EventPublisher interface {
	PublishExpenseRecorded(ctx context.Context, expenseID, groupID string) error
	PublishShareSettled(ctx context.Context, shareID, expenseID string) error
}

// SplitService owns the write paths for groups, expenses and
// settlements. Publishing failures never fail the request: the row is
// saved, the event is best-effort.
type SplitService struct {
	repo      *storage.SQLiteRepository
	publisher EventPublisher
}

func NewSplitService(repo *storage.SQLiteRepository, publisher EventPublisher) *SplitService {
	return &SplitService{repo: repo, publisher: publisher}
}

// CreateGroup creates a group with its initial participants.
func (s *SplitService) CreateGroup(ctx context.Context, name, currency string, participantNames []string) (core.Group, []core.Participant, error) {
	g := core.Group{
		ID:        uuid.New().String(),
		Name:      name,
		Currency:  currency,
		CreatedAt: time.Now(),
	}
	if err := g.Validate(); err != nil {
		return core.Group{}, nil, err
	}
	if len(participantNames) == 0 {
		return core.Group{}, nil, core.ErrNoParticipants
	}

	participants := make([]core.Participant, len(participantNames))
	for i, name := range participantNames {
		p := core.Participant{
			ID:      uuid.New().String(),
			GroupID: g.ID,
			Name:    name,
		}
		if err := p.Validate(); err != nil {
			return core.Group{}, nil, err
		}
		participants[i] = p
	}

	if err := s.repo.CreateGroup(ctx, g, participants); err != nil {
		return core.Group{}, nil, fmt.Errorf("create group: %w", err)
	}
	return g, participants, nil
}

// CustomShare is a caller-specified portion for a custom split.
type CustomShare struct {
	ParticipantID string
	AmountCents   int64
}

// CreateExpenseInput carries everything needed to record an expense.
type CreateExpenseInput struct {
	GroupID            string
	Title              string
	Notes              string
	AmountCents        int64
	PayerParticipantID string
	Date               string // YYYY-MM-DD; defaults to today when empty
	SplitType          core.SplitType
	CustomShares       []CustomShare
}

// CreateExpense records a split expense together with all of its shares.
// Equal splits go through the allocator; custom splits are validated to
// sum exactly to the expense amount. In both cases the payer's own share
// is created pre-settled. The expense-recorded event is published after
// the transaction commits.
func (s *SplitService) CreateExpense(ctx context.Context, input CreateExpenseInput) (core.SplitExpense, []core.Share, error) {
	group, err := s.repo.GetGroup(ctx, input.GroupID)
	if err != nil {
		return core.SplitExpense{}, nil, fmt.Errorf("load group: %w", err)
	}

	date := input.Date
	if date == "" {
		date = time.Now().Format("2006-01-02")
	}

	e := core.SplitExpense{
		ID:                 uuid.New().String(),
		GroupID:            group.ID,
		PayerParticipantID: input.PayerParticipantID,
		Amount:             core.Money{Cents: input.AmountCents},
		Currency:           group.Currency,
		Date:               date,
		SplitType:          input.SplitType,
		Title:              input.Title,
		Notes:              input.Notes,
	}
	if err := e.Validate(); err != nil {
		return core.SplitExpense{}, nil, err
	}

	participants, err := s.repo.ListParticipants(ctx, group.ID)
	if err != nil {
		return core.SplitExpense{}, nil, fmt.Errorf("load participants: %w", err)
	}
	member := make(map[string]bool, len(participants))
	ids := make([]string, len(participants))
	for i, p := range participants {
		member[p.ID] = true
		ids[i] = p.ID
	}
	if !member[input.PayerParticipantID] {
		return core.SplitExpense{}, nil, core.ErrUnknownPayer
	}

	var drafts []split.ShareDraft
	switch input.SplitType {
	case core.SplitEqual:
		drafts = split.BuildEqualShares(e.Amount.Cents, ids, e.PayerParticipantID)
		if len(drafts) == 0 {
			return core.SplitExpense{}, nil, core.ErrNoParticipants
		}
	case core.SplitCustom:
		drafts, err = buildCustomShares(e, input.CustomShares, member)
		if err != nil {
			return core.SplitExpense{}, nil, err
		}
	default:
		return core.SplitExpense{}, nil, core.ErrInvalidSplitType
	}

	now := time.Now()
	shares := make([]core.Share, len(drafts))
	for i, d := range drafts {
		sh := core.Share{
			ID:            uuid.New().String(),
			ExpenseID:     e.ID,
			ParticipantID: d.ParticipantID,
			Amount:        core.Money{Cents: d.AmountCents},
			IsSettled:     d.IsSettled,
		}
		if d.IsSettled {
			t := now
			sh.SettledAt = &t
		}
		shares[i] = sh
	}

	if err := s.repo.CreateExpense(ctx, e, shares); err != nil {
		return core.SplitExpense{}, nil, fmt.Errorf("save expense: %w", err)
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping expense message")
	} else if err := s.publisher.PublishExpenseRecorded(ctx, e.ID, e.GroupID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense recorded message",
			"expense_id", e.ID, "error", err)
		// Expense is saved; the worker catches up on its periodic tick.
	}

	return e, shares, nil
}

func buildCustomShares(e core.SplitExpense, customs []CustomShare, member map[string]bool) ([]split.ShareDraft, error) {
	if len(customs) == 0 {
		return nil, core.ErrNoParticipants
	}
	seen := make(map[string]bool, len(customs))
	drafts := make([]split.ShareDraft, len(customs))
	var sum int64
	for i, c := range customs {
		if !member[c.ParticipantID] {
			return nil, fmt.Errorf("participant %s: %w", c.ParticipantID, storage.ErrNotFound)
		}
		if seen[c.ParticipantID] {
			return nil, fmt.Errorf("participant %s listed twice: %w", c.ParticipantID, core.ErrSharesMismatch)
		}
		seen[c.ParticipantID] = true
		if c.AmountCents < 0 {
			return nil, core.ErrInvalidAmount
		}
		sum += c.AmountCents
		drafts[i] = split.ShareDraft{
			ParticipantID: c.ParticipantID,
			AmountCents:   c.AmountCents,
			IsSettled:     c.ParticipantID == e.PayerParticipantID,
		}
	}
	if sum != e.Amount.Cents {
		return nil, core.ErrSharesMismatch
	}
	return drafts, nil
}

// SettleShare marks a share paid, writes the settlement audit row and
// publishes the share-settled event.
func (s *SplitService) SettleShare(ctx context.Context, shareID, method, note string) (core.Settlement, error) {
	sh, err := s.repo.GetShare(ctx, shareID)
	if err != nil {
		return core.Settlement{}, err
	}
	if sh.IsSettled {
		return core.Settlement{}, core.ErrAlreadySettled
	}

	settlement := core.Settlement{
		ID:        uuid.New().String(),
		ShareID:   sh.ID,
		Amount:    sh.Amount,
		Method:    method,
		Note:      note,
		CreatedAt: time.Now(),
	}
	if err := s.repo.SettleShare(ctx, settlement); err != nil {
		return core.Settlement{}, err
	}

	if s.publisher == nil {
		slog.WarnContext(ctx, "Event publisher not available, skipping settlement message")
	} else if err := s.publisher.PublishShareSettled(ctx, sh.ID, sh.ExpenseID); err != nil {
		slog.ErrorContext(ctx, "Failed to publish share settled message",
			"share_id", sh.ID, "error", err)
	}

	return settlement, nil
}

// GroupBalances loads a group's rows and reconciles them into per
// participant net balances.
func (s *SplitService) GroupBalances(ctx context.Context, groupID string) ([]split.ParticipantBalance, error) {
	if _, err := s.repo.GetGroup(ctx, groupID); err != nil {
		return nil, err
	}
	participants, err := s.repo.ListParticipants(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load participants: %w", err)
	}
	expenses, err := s.repo.ListExpenses(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load expenses: %w", err)
	}
	shares, err := s.repo.ListShares(ctx, groupID)
	if err != nil {
		return nil, fmt.Errorf("load shares: %w", err)
	}
	return split.ComputeParticipantBalances(participants, expenses, shares), nil
}
