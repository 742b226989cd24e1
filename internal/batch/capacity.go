package batch

import (
	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

// ValidateCapacity checks every expense draft against its budget's remaining
// capacity from the single snapshot. Spend is accumulated per budget across
// the batch, so two rows that each fit individually still fail together when
// their sum exceeds what is left: the first row that pushes a budget over is
// the one reported.
//
// Income drafts are not subject to capacity checks. Validation is
// all-or-nothing; the first violation aborts the submit.
func ValidateCapacity(drafts []core.TransactionDraft, snap Snapshot, currency string) error {
	proposed := make(map[string]decimal.Decimal)

	for i, d := range drafts {
		if d.Kind != core.KindExpense || !d.HasAmount() {
			continue
		}
		b, ok := snap.BudgetByID(d.ResolvedID)
		if !ok {
			// Resolution runs first; an unresolved budget here means the
			// caller skipped it.
			continue
		}
		running := core.RoundMoney(proposed[b.ID].Add(d.Amount.Decimal))
		proposed[b.ID] = running
		if running.GreaterThan(b.Remaining()) {
			return &CapacityError{
				Row:        i + 1,
				BudgetName: b.Name,
				Requested:  d.Amount.Decimal,
				Remaining:  b.Remaining(),
				Currency:   currency,
			}
		}
	}
	return nil
}
