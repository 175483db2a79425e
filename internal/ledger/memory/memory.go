// Package memory is an in-process ledger mirror used in tests and when
// no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"dividi/internal/core"
)

type Mirror struct {
	mu          sync.Mutex
	expenses    []core.SplitExpense
	settlements []core.Settlement
}

func New() *Mirror {
	return &Mirror{}
}

func (m *Mirror) AppendExpense(_ context.Context, _ core.Group, e core.SplitExpense) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.expenses = append(m.expenses, e)
	return fmt.Sprintf("mem:expense:%d", len(m.expenses)), nil
}

func (m *Mirror) AppendSettlement(_ context.Context, s core.Settlement, _ core.Share) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.settlements = append(m.settlements, s)
	return fmt.Sprintf("mem:settlement:%d", len(m.settlements)), nil
}

// Expenses returns a copy of the mirrored expenses.
func (m *Mirror) Expenses() []core.SplitExpense {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.SplitExpense, len(m.expenses))
	copy(out, m.expenses)
	return out
}

// Settlements returns a copy of the mirrored settlements.
func (m *Mirror) Settlements() []core.Settlement {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]core.Settlement, len(m.settlements))
	copy(out, m.settlements)
	return out
}
