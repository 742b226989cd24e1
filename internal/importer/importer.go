// Package importer turns tabular payloads (delimited text, xlsx workbooks,
// spreadsheet ranges) into ordered draft rows for the batch engine.
//
// Imports are fail-fast: a structural header problem or any single bad row
// aborts the whole import and produces zero drafts. The operator fixes the
// source file and re-imports.
package importer

import (
	"strings"
	"time"

	"parishledger/internal/core"
)

// Column names recognized in the header row, matched case-insensitively.
const (
	ColAmount      = "amount"
	ColCategory    = "category"
	ColDate        = "date"
	ColBudget      = "budget"
	ColMember      = "member"
	ColEnvelope    = "envelope"
	ColDescription = "description"
)

// dateLayouts is the fixed, ordered list of accepted date encodings. First
// parse wins: "03/04/2025" is inherently ambiguous between US and EU
// day/month order and resolves month-first here. The order is part of the
// import contract, do not reorder.
var dateLayouts = []string{
	"2006-01-02",
	"01/02/2006",
	"1/2/2006",
	"02/01/2006",
	"01-02-2006",
	"2006/01/02",
}

// Parse validates the table header for the given kind and converts every
// data row into a normalized TransactionDraft, in file order.
//
// Required columns: amount, category and date for both kinds; budget for
// expense mode; member or envelope (either suffices) for income mode.
// Description is optional.
func Parse(t Table, kind core.Kind) ([]core.TransactionDraft, error) {
	cols := indexColumns(t.Header)

	if err := checkHeader(cols, kind); err != nil {
		return nil, err
	}

	drafts := make([]core.TransactionDraft, 0, len(t.Rows))
	for i, row := range t.Rows {
		d, err := parseRow(cols, row, kind, i+1)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, nil
}

func checkHeader(cols map[string]int, kind core.Kind) error {
	var missing []string
	for _, name := range []string{ColAmount, ColCategory, ColDate} {
		if _, ok := cols[name]; !ok {
			missing = append(missing, name)
		}
	}
	switch kind {
	case core.KindExpense:
		if _, ok := cols[ColBudget]; !ok {
			missing = append(missing, ColBudget)
		}
	case core.KindIncome:
		_, hasMember := cols[ColMember]
		_, hasEnvelope := cols[ColEnvelope]
		if !hasMember && !hasEnvelope {
			missing = append(missing, ColMember+" or "+ColEnvelope)
		}
	}
	if len(missing) > 0 {
		return &StructuralError{Missing: missing}
	}
	return nil
}

func parseRow(cols map[string]int, row []string, kind core.Kind, rowNum int) (core.TransactionDraft, error) {
	d := core.TransactionDraft{Kind: kind}

	amountCell := cell(row, cols, ColAmount)
	amount, err := core.ParseAmount(amountCell)
	if err != nil {
		return d, &RowError{Row: rowNum, Field: "amount", Value: amountCell}
	}
	d.Amount.Decimal = amount
	d.Amount.Valid = true

	dateCell := cell(row, cols, ColDate)
	date, ok := NormalizeDate(dateCell)
	if !ok {
		return d, &RowError{Row: rowNum, Field: "date", Value: dateCell}
	}
	d.Date = date

	d.CategoryRef = cell(row, cols, ColCategory)
	d.Description = cell(row, cols, ColDescription)

	switch kind {
	case core.KindExpense:
		d.CounterpartyRef = cell(row, cols, ColBudget)
	case core.KindIncome:
		d.CounterpartyRef = cell(row, cols, ColMember)
		code := cell(row, cols, ColEnvelope)
		if code != "" {
			if err := core.ValidateEnvelopeCode(code); err != nil {
				return d, &RowError{Row: rowNum, Field: "envelope code", Value: code}
			}
			d.EnvelopeCode = code
		}
	}
	return d, nil
}

// NormalizeDate tries each accepted layout in order and reports the first
// match as a calendar date.
func NormalizeDate(s string) (core.Date, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return core.Date{}, false
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.Date{Time: t}, true
		}
	}
	return core.Date{}, false
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(h))
		if name == "" {
			continue
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	return cols
}

func cell(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
