package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
)

type (
	// Kind selects which entry rules apply to a draft: income rows are
	// counterparted by members, expense rows by budgets. Category catalogs
	// are disjoint per kind.
	Kind string

	Date struct {
		time.Time
	}

	// TransactionDraft is one row of a batch being prepared. Drafts live only
	// in an editing session; at commit time they become Transaction rows and
	// stop being drafts.
	TransactionDraft struct {
		Kind            Kind                `json:"kind"`
		Amount          decimal.NullDecimal `json:"amount"`
		CategoryRef     string              `json:"categoryRef"`
		CounterpartyRef string              `json:"counterpartyRef"`
		Date            Date                `json:"date"`
		Description     string              `json:"description"`
		// EnvelopeCode is a human-entered lookup code used only when
		// CounterpartyRef is absent on an income row. Digits only.
		EnvelopeCode string `json:"envelopeCode"`
		// ResolvedID is filled by the resolver and is the counterparty id
		// actually written at commit time.
		ResolvedID string `json:"-"`
	}

	// Budget is the allocation envelope expense rows are checked against.
	// Used is derived by the storage layer as the sum of committed expense
	// rows tagged with this budget; it is never written directly.
	Budget struct {
		ID          string          `json:"id"`
		Name        string          `json:"name"`
		Allocation  decimal.Decimal `json:"allocation"`
		Used        decimal.Decimal `json:"usedAmount"`
		ActiveFrom  Date            `json:"activeFrom"`
		ActiveUntil Date            `json:"activeUntil"`
	}

	// Member is the income counterparty.
	Member struct {
		ID           string `json:"id"`
		DisplayName  string `json:"displayName"`
		EnvelopeCode string `json:"envelopeCode,omitempty"`
	}

	// Category is immutable reference data scoped to a kind.
	Category struct {
		ID   string `json:"id"`
		Name string `json:"name"`
		Kind Kind   `json:"kind"`
	}

	// Transaction is a committed ledger row. Audit fields are stamped
	// uniformly across a batch.
	Transaction struct {
		ID             string          `json:"id"`
		BatchID        string          `json:"batchId"`
		Tenant         string          `json:"tenant"`
		Actor          string          `json:"actor"`
		Kind           Kind            `json:"kind"`
		CounterpartyID string          `json:"counterpartyId"`
		CategoryID     string          `json:"categoryId"`
		Amount         decimal.Decimal `json:"amount"`
		Date           Date            `json:"date"`
		Description    string          `json:"description,omitempty"`
		CommittedAt    time.Time       `json:"committedAt"`
	}
)

var (
	ErrInvalidKind         = errors.New("invalid kind")
	ErrInvalidAmount       = errors.New("invalid amount")
	ErrMissingAmount       = errors.New("missing amount")
	ErrMissingCategory     = errors.New("missing category")
	ErrMissingCounterparty = errors.New("missing counterparty")
	ErrInvalidDate         = errors.New("invalid date")
	ErrInvalidEnvelopeCode = errors.New("invalid envelope code")
)

func (k Kind) Valid() bool {
	return k == KindIncome || k == KindExpense
}

// ParseKind normalizes a user-supplied kind string.
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", ErrInvalidKind
	}
	return k, nil
}

// NewDate creates a Date from year, month, day at UTC midnight.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// String renders the date in the normalized yyyy-MM-dd form.
func (d Date) String() string {
	return d.Format("2006-01-02")
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte(`""`), nil
	}
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (b Budget) Remaining() decimal.Decimal {
	return b.Allocation.Sub(b.Used)
}

// ActiveAt reports whether the budget window contains the given instant.
func (b Budget) ActiveAt(t time.Time) bool {
	if b.ActiveFrom.IsZero() || b.ActiveUntil.IsZero() {
		return false
	}
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return !day.Before(b.ActiveFrom.Time) && !day.After(b.ActiveUntil.Time)
}

// HasAmount reports whether the draft's amount cell is filled in at all.
// Empty rows are legal while editing; they are excluded from aggregates
// and rejected at submit.
func (t TransactionDraft) HasAmount() bool {
	return t.Amount.Valid
}

// Validate checks a draft against the rules for its kind. This is the
// submit-time check; drafts may be incomplete while still being edited.
func (t TransactionDraft) Validate() error {
	if !t.Kind.Valid() {
		return ErrInvalidKind
	}
	if !t.Amount.Valid {
		return ErrMissingAmount
	}
	if t.Amount.Decimal.IsNegative() {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.CategoryRef) == "" {
		return ErrMissingCategory
	}
	if err := t.Date.Validate(); err != nil {
		return err
	}
	switch t.Kind {
	case KindExpense:
		if strings.TrimSpace(t.CounterpartyRef) == "" {
			return ErrMissingCounterparty
		}
	case KindIncome:
		if strings.TrimSpace(t.CounterpartyRef) == "" && strings.TrimSpace(t.EnvelopeCode) == "" {
			return ErrMissingCounterparty
		}
		if t.EnvelopeCode != "" {
			if err := ValidateEnvelopeCode(t.EnvelopeCode); err != nil {
				return err
			}
		}
	}
	return nil
}

// ValidateEnvelopeCode enforces the digits-only envelope code format.
func ValidateEnvelopeCode(code string) error {
	if code == "" {
		return ErrInvalidEnvelopeCode
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return ErrInvalidEnvelopeCode
		}
	}
	return nil
}
