// Package ledger defines the outbound mirror ports: recorded expenses
// and settlements are appended to an external ledger for bookkeeping
// outside the service.
package ledger

import (
	"context"

	"dividi/internal/core"
)

type (
	// ExpenseMirror appends a recorded split expense to the ledger and
	// returns an adapter-specific row reference.
	ExpenseMirror interface {
		AppendExpense(ctx context.Context, group core.Group, e core.SplitExpense) (rowRef string, err error)
	}

	// SettlementMirror appends a settlement event to the ledger.
	SettlementMirror interface {
		AppendSettlement(ctx context.Context, s core.Settlement, sh core.Share) (rowRef string, err error)
	}
)
