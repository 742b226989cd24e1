package batch

import (
	"testing"

	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

func draftAmount(s string) decimal.NullDecimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return decimal.NullDecimal{Decimal: d, Valid: true}
}

func TestComputeAggregatesRoundsEveryStep(t *testing.T) {
	var drafts []core.TransactionDraft
	for i := 0; i < 10; i++ {
		drafts = append(drafts, core.TransactionDraft{
			Kind:        core.KindExpense,
			Amount:      draftAmount("0.10"),
			CategoryRef: "c1",
		})
	}
	agg := computeAggregates(drafts)
	if got := agg.OverallTotal.StringFixed(2); got != "1.00" {
		t.Errorf("overall = %s, want 1.00", got)
	}
	if got := agg.ByCategory["c1"].StringFixed(2); got != "1.00" {
		t.Errorf("category = %s, want 1.00", got)
	}
}

func TestComputeAggregatesInclusionRules(t *testing.T) {
	drafts := []core.TransactionDraft{
		{Kind: core.KindExpense, Amount: draftAmount("10"), CategoryRef: "c1", CounterpartyRef: "b1"},
		// No amount: excluded everywhere.
		{Kind: core.KindExpense, CategoryRef: "c1"},
		// Zero amount: counts toward overall, not toward the maps.
		{Kind: core.KindExpense, Amount: draftAmount("0"), CategoryRef: "c1", CounterpartyRef: "b1"},
		// Amount but no category: overall and counterparty only.
		{Kind: core.KindExpense, Amount: draftAmount("5"), CounterpartyRef: "b2"},
	}
	agg := computeAggregates(drafts)

	if got := agg.OverallTotal.StringFixed(2); got != "15.00" {
		t.Errorf("overall = %s, want 15.00", got)
	}
	if got := agg.ByCategory["c1"].StringFixed(2); got != "10.00" {
		t.Errorf("byCategory[c1] = %s, want 10.00", got)
	}
	if got := agg.ByCounterparty["b1"].StringFixed(2); got != "10.00" {
		t.Errorf("byCounterparty[b1] = %s, want 10.00", got)
	}
	if got := agg.ByCounterparty["b2"].StringFixed(2); got != "5.00" {
		t.Errorf("byCounterparty[b2] = %s, want 5.00", got)
	}
}

func TestComputeAggregatesCounterpartyKey(t *testing.T) {
	drafts := []core.TransactionDraft{
		{Kind: core.KindIncome, Amount: draftAmount("1"), CategoryRef: "c", ResolvedID: "m1", CounterpartyRef: "ignored"},
		{Kind: core.KindIncome, Amount: draftAmount("2"), CategoryRef: "c", CounterpartyRef: "m2"},
		{Kind: core.KindIncome, Amount: draftAmount("3"), CategoryRef: "c", EnvelopeCode: "042"},
	}
	agg := computeAggregates(drafts)

	for key, want := range map[string]string{"m1": "1.00", "m2": "2.00", "042": "3.00"} {
		if got := agg.ByCounterparty[key].StringFixed(2); got != want {
			t.Errorf("byCounterparty[%s] = %s, want %s", key, got, want)
		}
	}
}

// Totals depend only on the final draft list, never on the sequence of edits
// that produced it.
func TestAggregatesIndependentOfEditOrder(t *testing.T) {
	a := NewSession(core.KindExpense)
	a.ReplaceAll([]core.TransactionDraft{
		{Kind: core.KindExpense, Amount: draftAmount("3.33"), CategoryRef: "c1"},
		{Kind: core.KindExpense, Amount: draftAmount("6.67"), CategoryRef: "c1"},
	})

	b := NewSession(core.KindExpense)
	amt := draftAmount("99")
	if err := b.UpdateRow(0, RowPatch{Amount: &amt}); err != nil {
		t.Fatal(err)
	}
	b.AddRow()
	if err := b.RemoveRow(0); err != nil {
		t.Fatal(err)
	}
	first := draftAmount("3.33")
	if err := b.UpdateRow(0, RowPatch{Amount: &first, CategoryRef: strPtr("c1")}); err != nil {
		t.Fatal(err)
	}
	b.AddRow()
	second := draftAmount("6.67")
	if err := b.UpdateRow(1, RowPatch{Amount: &second, CategoryRef: strPtr("c1")}); err != nil {
		t.Fatal(err)
	}

	aggA, aggB := a.Aggregates(), b.Aggregates()
	if !aggA.OverallTotal.Equal(aggB.OverallTotal) {
		t.Errorf("overall totals differ: %s vs %s", aggA.OverallTotal, aggB.OverallTotal)
	}
	if !aggA.ByCategory["c1"].Equal(aggB.ByCategory["c1"]) {
		t.Errorf("category totals differ: %s vs %s", aggA.ByCategory["c1"], aggB.ByCategory["c1"])
	}
	if got := aggB.OverallTotal.StringFixed(2); got != "10.00" {
		t.Errorf("overall = %s, want 10.00", got)
	}
}

func strPtr(s string) *string { return &s }
