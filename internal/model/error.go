// Package model defines core data structures shared across the validator.
package model

// Severity classifies how serious a validation finding is.
// FATAL findings abort the run before batches are processed.
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
)

// Scope identifies the level a validation finding applies to.
type Scope string

const (
	ScopeGlobal Scope = "GLOBAL"
	ScopeEntity Scope = "ENTITY"
	ScopeRow    Scope = "ROW"
	ScopeField  Scope = "FIELD"
)

// ValidationError is a single validation finding. It is a closed value
// type: every producer fills the fields that apply to its scope and
// leaves the rest at their zero value. Consumers never attach extra
// attributes.
type ValidationError struct {
	Code     string   `json:"code"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Scope    Scope    `json:"scope"`

	// RowIndex is the 0-based ordinal within the data rows.
	// CSVRowIndex is the absolute position in the file, counting the
	// header and label rows. Both are 0 for non-row findings.
	RowIndex    int `json:"row_index,omitempty"`
	CSVRowIndex int `json:"csv_row_index,omitempty"`

	EntityID   string `json:"entity_id,omitempty"`
	FieldID    string `json:"field_id,omitempty"`
	ColumnName string `json:"column_name,omitempty"`

	Expected string `json:"expected,omitempty"`
	Actual   string `json:"actual,omitempty"`

	// MetadataPath points at the schema location the finding refers to.
	MetadataPath string `json:"metadata_path,omitempty"`

	// Identifier is the business identifier of the affected record.
	Identifier string `json:"identifier,omitempty"`

	Details map[string]string `json:"details,omitempty"`
}

// IsFatal reports whether the finding aborts the run.
func (e ValidationError) IsFatal() bool {
	return e.Severity == SeverityFatal
}

// HasFatal reports whether any finding in errs is fatal.
func HasFatal(errs []ValidationError) bool {
	for _, e := range errs {
		if e.IsFatal() {
			return true
		}
	}
	return false
}

// CountBySeverity tallies findings per severity.
func CountBySeverity(errs []ValidationError) map[Severity]int {
	counts := make(map[Severity]int)
	for _, e := range errs {
		counts[e.Severity]++
	}
	return counts
}
