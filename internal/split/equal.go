// Package split contains the share allocation and balance reconciliation
// algorithms for group expenses.
package split

import (
	"github.com/shopspring/decimal"
)

// ShareDraft is a share ready for insertion alongside its expense.
type ShareDraft struct {
	ParticipantID string
	AmountCents   int64
	IsSettled     bool
}

// BuildEqualShares divides an amount evenly across participants.
//
// Each participant gets the per-head amount rounded half away from zero
// at the cent; whatever remainder the rounding leaves is added to the
// first participant in input order, so the drafts always sum exactly to
// amountCents. The payer's own share is created pre-settled since they
// already paid the full amount out of pocket.
//
// An empty participant list yields an empty result, not an error:
// callers validate the participant set before inserting anything.
func BuildEqualShares(amountCents int64, participantIDs []string, payerID string) []ShareDraft {
	if len(participantIDs) == 0 {
		return nil
	}

	n := int64(len(participantIDs))
	perHead := decimal.NewFromInt(amountCents).
		DivRound(decimal.NewFromInt(n), 0).
		IntPart()

	drafts := make([]ShareDraft, len(participantIDs))
	var assigned int64
	for i, id := range participantIDs {
		drafts[i] = ShareDraft{
			ParticipantID: id,
			AmountCents:   perHead,
			IsSettled:     id == payerID,
		}
		assigned += perHead
	}

	// Rounding remainder lands on the first participant, whoever that is.
	if remainder := amountCents - assigned; remainder != 0 {
		drafts[0].AmountCents += remainder
	}

	return drafts
}
