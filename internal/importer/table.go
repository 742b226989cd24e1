package importer

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Table is the shape every import source reduces to: a header row and data
// rows of raw string cells. Parse works only on Tables, so delimited text,
// xlsx workbooks and spreadsheet API ranges all go through the same
// validation.
type Table struct {
	Header []string
	Rows   [][]string
}

// ReadCSV reads delimited text into a Table. The delimiter is sniffed from
// the header line: semicolon wins if it appears there, otherwise comma.
// Short rows are padded so column lookups stay in range.
func ReadCSV(r io.Reader) (Table, error) {
	buf, err := io.ReadAll(r)
	if err != nil {
		return Table{}, fmt.Errorf("read payload: %w", err)
	}
	text := strings.TrimPrefix(string(buf), "\ufeff")

	delim := ','
	if i := strings.IndexAny(text, "\r\n"); i >= 0 {
		if strings.Contains(text[:i], ";") {
			delim = ';'
		}
	} else if strings.Contains(text, ";") {
		delim = ';'
	}

	cr := csv.NewReader(strings.NewReader(text))
	cr.Comma = delim
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	records, err := cr.ReadAll()
	if err != nil {
		return Table{}, fmt.Errorf("parse delimited text: %w", err)
	}
	return tableFromRecords(records), nil
}

// ReadXLSX reads the first sheet of an xlsx workbook into a Table.
func ReadXLSX(r io.Reader) (Table, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return Table{}, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Table{}, fmt.Errorf("workbook has no sheets")
	}
	records, err := f.GetRows(sheets[0])
	if err != nil {
		return Table{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return tableFromRecords(records), nil
}

// FromMatrix adapts a values matrix as returned by the Sheets API.
func FromMatrix(values [][]interface{}) Table {
	records := make([][]string, 0, len(values))
	for _, row := range values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		records = append(records, cells)
	}
	return tableFromRecords(records)
}

func tableFromRecords(records [][]string) Table {
	if len(records) == 0 {
		return Table{}
	}
	t := Table{Header: records[0]}
	width := len(t.Header)
	for _, row := range records[1:] {
		if isBlankRow(row) {
			continue
		}
		if len(row) < width {
			padded := make([]string, width)
			copy(padded, row)
			row = padded
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

func isBlankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
