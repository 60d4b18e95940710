package csvio

import (
	"fmt"
	"strings"

	"github.com/vstructure/vstructure/internal/model"
)

// DataStartIndex is the fixed 0-based row where data begins. Golden
// Record files always carry a technical header row and a label row.
const DataStartIndex = 2

// Structure holds the detected layout of a Golden Record file.
type Structure struct {
	Headers        []string
	Labels         []string
	DataStartIndex int
	HasDataRows    bool
}

// DetectStructure validates the first rows of the file: row 1 must be a
// well-formed technical header, row 2 the human-readable labels, row 3
// the first data row. Header problems are fatal; label and data row
// mismatches are reported but do not abort the run.
func DetectStructure(rows [][]string) (Structure, []model.ValidationError) {
	var errs []model.ValidationError

	if len(rows) == 0 {
		return Structure{DataStartIndex: DataStartIndex}, []model.ValidationError{{
			Code:     "MISSING_HEADER_ROW",
			Severity: model.SeverityFatal,
			Message:  "file has no header row",
			Scope:    model.ScopeGlobal,
		}}
	}

	headers := rows[0]
	errs = append(errs, checkHeaders(headers)...)

	st := Structure{
		Headers:        headers,
		DataStartIndex: DataStartIndex,
	}

	if len(rows) > 1 {
		st.Labels = rows[1]
		if len(rows[1]) != len(headers) {
			errs = append(errs, model.ValidationError{
				Code:     "LABEL_COLUMN_MISMATCH",
				Severity: model.SeverityError,
				Message:  fmt.Sprintf("label row has %d columns, header has %d", len(rows[1]), len(headers)),
				Scope:    model.ScopeGlobal,
				Expected: fmt.Sprintf("%d", len(headers)),
				Actual:   fmt.Sprintf("%d", len(rows[1])),
			})
		}
	}

	if len(rows) > 2 {
		st.HasDataRows = true
		if len(rows[2]) != len(headers) {
			errs = append(errs, model.ValidationError{
				Code:        "ROW_COLUMN_COUNT_MISMATCH",
				Severity:    model.SeverityError,
				Message:     fmt.Sprintf("first data row has %d columns, header has %d", len(rows[2]), len(headers)),
				Scope:       model.ScopeRow,
				RowIndex:    0,
				CSVRowIndex: DataStartIndex,
				Expected:    fmt.Sprintf("%d", len(headers)),
				Actual:      fmt.Sprintf("%d", len(rows[2])),
			})
		}
	} else {
		errs = append(errs, model.ValidationError{
			Code:     "NO_DATA_ROWS",
			Severity: model.SeverityWarning,
			Message:  "file contains headers but no data rows",
			Scope:    model.ScopeGlobal,
		})
	}

	return st, errs
}

func checkHeaders(headers []string) []model.ValidationError {
	var errs []model.ValidationError
	seen := make(map[string]int, len(headers))

	for i, h := range headers {
		name := strings.TrimSpace(h)
		switch {
		case name == "":
			errs = append(errs, model.ValidationError{
				Code:       "EMPTY_COLUMN_NAME",
				Severity:   model.SeverityFatal,
				Message:    fmt.Sprintf("column %d has an empty name", i),
				Scope:      model.ScopeGlobal,
				ColumnName: fmt.Sprintf("column_%d", i),
			})
			continue
		case !strings.Contains(name, "_"):
			errs = append(errs, model.ValidationError{
				Code:       "INVALID_COLUMN_IDENTIFIER",
				Severity:   model.SeverityFatal,
				Message:    fmt.Sprintf("column %q is not a composite identifier", name),
				Scope:      model.ScopeGlobal,
				ColumnName: name,
			})
		}

		if prev, dup := seen[name]; dup {
			errs = append(errs, model.ValidationError{
				Code:       "DUPLICATED_COLUMN",
				Severity:   model.SeverityFatal,
				Message:    fmt.Sprintf("column %q at index %d duplicates index %d", name, i, prev),
				Scope:      model.ScopeGlobal,
				ColumnName: name,
			})
		} else {
			seen[name] = i
		}
	}

	return errs
}
