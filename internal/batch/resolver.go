package batch

import (
	"fmt"
	"time"

	"parishledger/internal/core"
)

// Snapshot is the point-in-time read of reference state used for one
// submit. It is fetched once, passed by value, and never refreshed during
// validation, so a stale read is visible in the types instead of hiding in
// ambient query state.
type Snapshot struct {
	Budgets    []core.Budget
	Members    []core.Member
	Categories []core.Category
	TakenAt    time.Time
}

// TakeSnapshot performs the single reference fetch that precedes
// resolution and validation.
func TakeSnapshot(budgets []core.Budget, members []core.Member, categories []core.Category) Snapshot {
	return Snapshot{
		Budgets:    budgets,
		Members:    members,
		Categories: categories,
		TakenAt:    time.Now().UTC(),
	}
}

func (s Snapshot) BudgetByID(id string) (core.Budget, bool) {
	for _, b := range s.Budgets {
		if b.ID == id {
			return b, true
		}
	}
	return core.Budget{}, false
}

func (s Snapshot) MemberByID(id string) (core.Member, bool) {
	for _, m := range s.Members {
		if m.ID == id {
			return m, true
		}
	}
	return core.Member{}, false
}

// MembersByEnvelope returns every member carrying the code. The code is
// expected to be unique per tenant but resolution defends against
// violations, so all matches come back.
func (s Snapshot) MembersByEnvelope(code string) []core.Member {
	var out []core.Member
	for _, m := range s.Members {
		if m.EnvelopeCode != "" && m.EnvelopeCode == code {
			out = append(out, m)
		}
	}
	return out
}

func (s Snapshot) CategoryByID(id string, kind core.Kind) (core.Category, bool) {
	for _, c := range s.Categories {
		if c.ID == id && c.Kind == kind {
			return c, true
		}
	}
	return core.Category{}, false
}

// Resolve maps every draft's counterparty reference to a concrete entity id
// against the snapshot, filling ResolvedID in place. It walks the whole
// batch and reports every failing row at once; no row is ever silently
// dropped.
func Resolve(drafts []core.TransactionDraft, snap Snapshot) error {
	var issues []*RowIssue
	now := time.Now()

	for i := range drafts {
		d := &drafts[i]
		row := i + 1

		if err := d.Validate(); err != nil {
			issues = append(issues, &RowIssue{Row: row, Msg: err.Error()})
			continue
		}
		if _, ok := snap.CategoryByID(d.CategoryRef, d.Kind); !ok {
			issues = append(issues, &RowIssue{
				Row:   row,
				Value: d.CategoryRef,
				Msg:   fmt.Sprintf("%s category %q not found", d.Kind, d.CategoryRef),
			})
			continue
		}

		switch d.Kind {
		case core.KindExpense:
			b, ok := snap.BudgetByID(d.CounterpartyRef)
			if !ok || !b.ActiveAt(now) {
				issues = append(issues, &RowIssue{
					Row:   row,
					Value: d.CounterpartyRef,
					Msg:   fmt.Sprintf("budget %q not found", d.CounterpartyRef),
				})
				continue
			}
			d.ResolvedID = b.ID

		case core.KindIncome:
			if d.CounterpartyRef != "" {
				m, ok := snap.MemberByID(d.CounterpartyRef)
				if !ok {
					issues = append(issues, &RowIssue{
						Row:   row,
						Value: d.CounterpartyRef,
						Msg:   fmt.Sprintf("member %q not found", d.CounterpartyRef),
					})
					continue
				}
				d.ResolvedID = m.ID
				continue
			}
			matches := snap.MembersByEnvelope(d.EnvelopeCode)
			switch len(matches) {
			case 0:
				issues = append(issues, &RowIssue{
					Row:   row,
					Value: d.EnvelopeCode,
					Msg:   fmt.Sprintf("no member found with code %s", d.EnvelopeCode),
				})
			case 1:
				d.ResolvedID = matches[0].ID
			default:
				issues = append(issues, &RowIssue{
					Row:   row,
					Value: d.EnvelopeCode,
					Msg:   fmt.Sprintf("multiple members found with code %s", d.EnvelopeCode),
				})
			}
		}
	}

	if len(issues) > 0 {
		return &ResolutionErrors{Issues: issues}
	}
	return nil
}
