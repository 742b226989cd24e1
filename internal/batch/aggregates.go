package batch

import (
	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

// Aggregates are the live operator-feedback totals over the current draft
// list. They are a pure derived view: no side effects, recomputed eagerly on
// every mutation, independent of server-side validation.
type Aggregates struct {
	OverallTotal   decimal.Decimal            `json:"overallTotal"`
	ByCategory     map[string]decimal.Decimal `json:"byCategory"`
	ByCounterparty map[string]decimal.Decimal `json:"byCounterparty"`
}

// computeAggregates folds the drafts into totals. Every accumulation step is
// re-rounded to two places so that e.g. summing 0.10 ten times yields exactly
// 1.00 regardless of how the operator got there.
//
// Inclusion rules: any draft with a filled-in amount counts toward the
// overall total; the per-category and per-counterparty maps additionally
// require a category (resp. counterparty reference) and a positive amount.
func computeAggregates(drafts []core.TransactionDraft) Aggregates {
	agg := Aggregates{
		OverallTotal:   decimal.Zero,
		ByCategory:     make(map[string]decimal.Decimal),
		ByCounterparty: make(map[string]decimal.Decimal),
	}
	for _, d := range drafts {
		if !d.HasAmount() {
			continue
		}
		amount := d.Amount.Decimal
		agg.OverallTotal = core.RoundMoney(agg.OverallTotal.Add(amount))

		if !amount.IsPositive() {
			continue
		}
		if d.CategoryRef != "" {
			agg.ByCategory[d.CategoryRef] = core.RoundMoney(agg.ByCategory[d.CategoryRef].Add(amount))
		}
		if ref := counterpartyKey(d); ref != "" {
			agg.ByCounterparty[ref] = core.RoundMoney(agg.ByCounterparty[ref].Add(amount))
		}
	}
	return agg
}

// counterpartyKey prefers the resolved id, falling back to whatever raw
// reference the operator has typed so far.
func counterpartyKey(d core.TransactionDraft) string {
	if d.ResolvedID != "" {
		return d.ResolvedID
	}
	if d.CounterpartyRef != "" {
		return d.CounterpartyRef
	}
	return d.EnvelopeCode
}
