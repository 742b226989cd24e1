package importer

import (
	"fmt"
	"strings"
)

// StructuralError means the header row is unusable: the import aborts before
// any data row is read.
type StructuralError struct {
	Missing []string
}

func (e *StructuralError) Error() string {
	return "missing required columns: " + strings.Join(e.Missing, ", ")
}

// RowError is a single data row failing normalization. Row is 1-based and
// counts data rows, excluding the header, so it matches what the operator
// sees in their spreadsheet minus the header line.
type RowError struct {
	Row   int
	Field string
	Value string
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: invalid %s %q", e.Row, e.Field, e.Value)
}
