package batch

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"parishledger/internal/core"
)

// RowIssue is one row failing resolution or validation, with enough context
// for the operator to find and fix the source row. Row is 1-based.
type RowIssue struct {
	Row   int
	Value string
	Msg   string
}

func (e *RowIssue) Error() string {
	return fmt.Sprintf("%s (row %d)", e.Msg, e.Row)
}

// ResolutionErrors collects every row that failed to resolve. Rows are never
// silently dropped: a row either resolves or shows up here.
type ResolutionErrors struct {
	Issues []*RowIssue
}

func (e *ResolutionErrors) Error() string {
	msgs := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		msgs[i] = issue.Error()
	}
	return strings.Join(msgs, "; ")
}

// CapacityError reports a budget whose accumulated proposed spend within the
// batch exceeds its remaining capacity snapshot.
type CapacityError struct {
	Row        int
	BudgetName string
	Requested  decimal.Decimal
	Remaining  decimal.Decimal
	Currency   string
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("row %d: %s exceeds budget %q: remaining %s",
		e.Row,
		core.FormatMoney(e.Currency, e.Requested),
		e.BudgetName,
		core.FormatMoney(e.Currency, e.Remaining))
}

// CommitError wraps a failed atomic batch insert. It is batch-indexed, not
// row-indexed: the store accepts or rejects the batch as a whole.
type CommitError struct {
	BatchID string
	Err     error
}

func (e *CommitError) Error() string {
	return fmt.Sprintf("commit batch %s: %v", e.BatchID, e.Err)
}

func (e *CommitError) Unwrap() error {
	return e.Err
}
