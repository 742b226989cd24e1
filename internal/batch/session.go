package batch

import (
	"errors"
	"sync"

	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

var ErrRowOutOfRange = errors.New("row index out of range")

// Session holds the in-memory draft list for one operator preparing one
// batch. Drafts exist only here until commit; navigating away or resetting
// discards them. Aggregates are recomputed synchronously on every mutation.
type Session struct {
	mu     sync.Mutex
	kind   core.Kind
	drafts []core.TransactionDraft
	agg    Aggregates
}

// NewSession starts an editing session with a single empty row, the state
// the entry form opens with.
func NewSession(kind core.Kind) *Session {
	s := &Session{kind: kind}
	s.drafts = []core.TransactionDraft{{Kind: kind}}
	s.agg = computeAggregates(s.drafts)
	return s
}

func (s *Session) Kind() core.Kind {
	return s.kind
}

// AddRow appends an empty draft row and returns its index.
func (s *Session) AddRow() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append(s.drafts, core.TransactionDraft{Kind: s.kind})
	s.agg = computeAggregates(s.drafts)
	return len(s.drafts) - 1
}

// RemoveRow deletes the draft at index i.
func (s *Session) RemoveRow(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.drafts) {
		return ErrRowOutOfRange
	}
	s.drafts = append(s.drafts[:i], s.drafts[i+1:]...)
	s.agg = computeAggregates(s.drafts)
	return nil
}

// RowPatch carries the fields an edit can touch. Nil pointers leave the
// field unchanged; a pointer to the zero value clears it.
type RowPatch struct {
	Amount          *decimal.NullDecimal `json:"amount,omitempty"`
	CategoryRef     *string              `json:"categoryRef,omitempty"`
	CounterpartyRef *string              `json:"counterpartyRef,omitempty"`
	Date            *core.Date           `json:"date,omitempty"`
	Description     *string              `json:"description,omitempty"`
	EnvelopeCode    *string              `json:"envelopeCode,omitempty"`
}

// UpdateRow applies a patch to the draft at index i. Any change clears the
// row's resolved counterparty; resolution happens again at submit.
func (s *Session) UpdateRow(i int, patch RowPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.drafts) {
		return ErrRowOutOfRange
	}
	d := &s.drafts[i]
	if patch.Amount != nil {
		d.Amount = *patch.Amount
		if d.Amount.Valid {
			d.Amount.Decimal = core.RoundMoney(d.Amount.Decimal)
		}
	}
	if patch.CategoryRef != nil {
		d.CategoryRef = *patch.CategoryRef
	}
	if patch.CounterpartyRef != nil {
		d.CounterpartyRef = *patch.CounterpartyRef
	}
	if patch.Date != nil {
		d.Date = *patch.Date
	}
	if patch.Description != nil {
		d.Description = *patch.Description
	}
	if patch.EnvelopeCode != nil {
		d.EnvelopeCode = *patch.EnvelopeCode
	}
	d.ResolvedID = ""
	s.agg = computeAggregates(s.drafts)
	return nil
}

// ReplaceAll swaps the whole draft list, the import path's entry point.
// Drafts of a different kind than the session are rejected upstream by the
// importer, which only produces rows of the requested kind.
func (s *Session) ReplaceAll(drafts []core.TransactionDraft) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = append([]core.TransactionDraft(nil), drafts...)
	s.agg = computeAggregates(s.drafts)
}

// Reset discards all drafts and returns to a single empty row.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.drafts = []core.TransactionDraft{{Kind: s.kind}}
	s.agg = computeAggregates(s.drafts)
}

// Aggregates returns the current feedback totals.
func (s *Session) Aggregates() Aggregates {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.agg
}

// Drafts returns a copy of the current draft list. Submit reads through
// here, so edits made while a submit is in flight cannot change the payload
// already being validated.
func (s *Session) Drafts() []core.TransactionDraft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]core.TransactionDraft(nil), s.drafts...)
}

// Len returns the number of draft rows.
func (s *Session) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

// Registry keeps one session per tenant+operator+kind. The surrounding UI
// is stateless between requests, so the engine owns the editing state.
type Registry struct {
	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[string]*Session)}
}

// Session returns the existing session for the key or starts a fresh one.
func (r *Registry) Session(tenant, actor string, kind core.Kind) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := tenant + "|" + actor + "|" + string(kind)
	if s, ok := r.sessions[key]; ok {
		return s
	}
	s := NewSession(kind)
	r.sessions[key] = s
	return s
}

// Drop discards a session entirely (navigation away).
func (r *Registry) Drop(tenant, actor string, kind core.Kind) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, tenant+"|"+actor+"|"+string(kind))
}
