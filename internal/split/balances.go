package split

import (
	"dividi/internal/core"
)

// ParticipantBalance is one participant's net position within a group.
// Positive = the participant is owed money, negative = they owe.
type ParticipantBalance struct {
	ParticipantID   string
	ParticipantName string
	BalanceCents    int64
}

// ComputeParticipantBalances reconciles expenses and shares into a net
// balance per participant. The result has exactly one entry per input
// participant, in input order.
//
// For every expense the payer is credited the full amount; every share
// debits its participant. A settled share reverses both sides of that
// one slice: the debtor is credited back and the payer debited, so the
// pair is even for that share while unsettled shares keep showing.
//
// Inconsistent data is not repaired: shares whose expense is missing are
// skipped, and an expense with no shares leaves the payer over-credited.
// With consistent unsettled data the balances sum to zero.
func ComputeParticipantBalances(participants []core.Participant, expenses []core.SplitExpense, shares []core.Share) []ParticipantBalance {
	balances := make(map[string]int64, len(participants))
	for _, p := range participants {
		balances[p.ID] = 0
	}

	payerByExpense := make(map[string]string, len(expenses))
	for _, e := range expenses {
		payerByExpense[e.ID] = e.PayerParticipantID
		balances[e.PayerParticipantID] += e.Amount.Cents
	}

	for _, sh := range shares {
		payerID, ok := payerByExpense[sh.ExpenseID]
		if !ok {
			continue // orphaned share, tolerated as-is
		}
		balances[sh.ParticipantID] -= sh.Amount.Cents
		if sh.IsSettled {
			balances[sh.ParticipantID] += sh.Amount.Cents
			balances[payerID] -= sh.Amount.Cents
		}
	}

	out := make([]ParticipantBalance, len(participants))
	for i, p := range participants {
		out[i] = ParticipantBalance{
			ParticipantID:   p.ID,
			ParticipantName: p.Name,
			BalanceCents:    balances[p.ID],
		}
	}
	return out
}
