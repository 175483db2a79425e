package split

import (
	"fmt"
	"testing"
)

func participantIDs(n int) []string {
	ids := make([]string, n)
	for i := range ids {
		ids[i] = fmt.Sprintf("p%d", i+1)
	}
	return ids
}

func TestBuildEqualShares_SumInvariant(t *testing.T) {
	amounts := []int64{10000, 9999, 101, 1, 333333, 12345}
	for _, amount := range amounts {
		for n := 1; n <= 11; n++ {
			t.Run(fmt.Sprintf("amount_%d_participants_%d", amount, n), func(t *testing.T) {
				ids := participantIDs(n)
				drafts := BuildEqualShares(amount, ids, ids[0])

				if len(drafts) != n {
					t.Fatalf("got %d drafts, want %d", len(drafts), n)
				}
				var sum int64
				for _, d := range drafts {
					sum += d.AmountCents
				}
				if sum != amount {
					t.Errorf("shares sum to %d, want %d", sum, amount)
				}
			})
		}
	}
}

func TestBuildEqualShares_RemainderToFirst(t *testing.T) {
	// 100.00 across three people: 33.34 / 33.33 / 33.33.
	ids := []string{"a", "b", "c"}
	drafts := BuildEqualShares(10000, ids, "a")

	want := []int64{3334, 3333, 3333}
	for i, d := range drafts {
		if d.AmountCents != want[i] {
			t.Errorf("draft[%d] = %d cents, want %d", i, d.AmountCents, want[i])
		}
	}
}

func TestBuildEqualShares_RemainderToFirstNotPayer(t *testing.T) {
	// The remainder follows input order, not the payer.
	ids := []string{"a", "b", "c"}
	drafts := BuildEqualShares(10000, ids, "c")

	if drafts[0].AmountCents != 3334 {
		t.Errorf("first draft = %d cents, want 3334", drafts[0].AmountCents)
	}
	if drafts[2].AmountCents != 3333 {
		t.Errorf("payer draft = %d cents, want 3333", drafts[2].AmountCents)
	}
}

func TestBuildEqualShares_PayerPreSettled(t *testing.T) {
	ids := participantIDs(5)
	for _, payer := range ids {
		t.Run("payer_"+payer, func(t *testing.T) {
			drafts := BuildEqualShares(10000, ids, payer)
			for _, d := range drafts {
				if d.ParticipantID == payer && !d.IsSettled {
					t.Errorf("payer share not settled")
				}
				if d.ParticipantID != payer && d.IsSettled {
					t.Errorf("share for %s settled, want unsettled", d.ParticipantID)
				}
			}
		})
	}
}

func TestBuildEqualShares_EmptyParticipants(t *testing.T) {
	drafts := BuildEqualShares(10000, nil, "a")
	if len(drafts) != 0 {
		t.Errorf("got %d drafts for empty participant list, want 0", len(drafts))
	}
}

func TestBuildEqualShares_RoundsHalfAwayFromZero(t *testing.T) {
	// 0.01 across two people: per-head rounds to 0.01, remainder -0.01
	// pulls the first share back to zero.
	drafts := BuildEqualShares(1, []string{"a", "b"}, "a")
	if drafts[0].AmountCents != 0 || drafts[1].AmountCents != 1 {
		t.Errorf("got [%d %d], want [0 1]", drafts[0].AmountCents, drafts[1].AmountCents)
	}
	if drafts[0].AmountCents+drafts[1].AmountCents != 1 {
		t.Errorf("shares do not sum to the amount")
	}
}
