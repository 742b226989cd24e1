package batch

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

func capacitySnapshot(allocation, used int64) Snapshot {
	return Snapshot{Budgets: []core.Budget{{
		ID:         "b1",
		Name:       "Facilities",
		Allocation: decimal.NewFromInt(allocation),
		Used:       decimal.NewFromInt(used),
	}}}
}

func resolvedExpense(amount string) core.TransactionDraft {
	d := expenseDraft(amount, "c-exp", "b1")
	d.ResolvedID = "b1"
	return d
}

func TestValidateCapacityAccumulatesAcrossBatch(t *testing.T) {
	// 500 remaining: two 400 rows each fit alone but not together.
	snap := capacitySnapshot(1000, 500)
	drafts := []core.TransactionDraft{resolvedExpense("400"), resolvedExpense("400")}

	err := ValidateCapacity(drafts, snap, "$")
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Row != 2 {
		t.Errorf("row = %d, want 2", capErr.Row)
	}
	if capErr.BudgetName != "Facilities" {
		t.Errorf("budget = %q", capErr.BudgetName)
	}
	want := `row 2: $400.00 exceeds budget "Facilities": remaining $500.00`
	if got := capErr.Error(); got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestValidateCapacityExactFitPasses(t *testing.T) {
	snap := capacitySnapshot(1000, 500)
	drafts := []core.TransactionDraft{resolvedExpense("250"), resolvedExpense("250")}
	if err := ValidateCapacity(drafts, snap, "$"); err != nil {
		t.Fatalf("exact fit rejected: %v", err)
	}
}

func TestValidateCapacitySkipsIncome(t *testing.T) {
	snap := capacitySnapshot(100, 100)
	income := incomeDraft("9999", "c-inc", "m1", "")
	income.ResolvedID = "m1"
	if err := ValidateCapacity([]core.TransactionDraft{income}, snap, "$"); err != nil {
		t.Fatalf("income draft checked against budget capacity: %v", err)
	}
}

func TestValidateCapacityReportsFirstOverflowRow(t *testing.T) {
	snap := capacitySnapshot(100, 0)
	drafts := []core.TransactionDraft{
		resolvedExpense("60"),
		resolvedExpense("60"), // pushes past 100 here
		resolvedExpense("60"),
	}
	err := ValidateCapacity(drafts, snap, "$")
	var capErr *CapacityError
	if !errors.As(err, &capErr) {
		t.Fatalf("expected CapacityError, got %v", err)
	}
	if capErr.Row != 2 {
		t.Errorf("row = %d, want 2", capErr.Row)
	}
}
