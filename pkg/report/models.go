// Package report aggregates validation findings into a structured
// report and renders it to the supported output formats.
package report

import (
	"time"

	"github.com/vstructure/vstructure/internal/model"
)

// Level is the reporting severity of an entry. FATAL and ERROR
// findings both surface as error; everything below WARNING is info.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// LevelFor maps a finding severity to its report level.
func LevelFor(s model.Severity) Level {
	switch s {
	case model.SeverityFatal, model.SeverityError:
		return LevelError
	case model.SeverityWarning:
		return LevelWarning
	default:
		return LevelInfo
	}
}

// Entry is one finding in the report.
type Entry struct {
	Identifier   string            `json:"identifier,omitempty"`
	FieldID      string            `json:"field_id,omitempty"`
	ColumnName   string            `json:"column_name,omitempty"`
	ErrorCode    string            `json:"error_code"`
	Message      string            `json:"message"`
	Level        Level             `json:"level"`
	Expected     string            `json:"expected,omitempty"`
	Actual       string            `json:"actual,omitempty"`
	MetadataPath string            `json:"metadata_path,omitempty"`
	Details      map[string]string `json:"details,omitempty"`
}

// Metrics summarizes a validation run.
type Metrics struct {
	TotalRows     int     `json:"total_rows"`
	TotalBatches  int     `json:"total_batches"`
	TotalErrors   int     `json:"total_errors"`
	TotalWarnings int     `json:"total_warnings"`
	ValidationSec float64 `json:"validation_time"`

	ErrorCounts      map[string]int `json:"error_counts"`
	IdentifierCounts map[string]int `json:"identifier_counts"`
	SeverityCounts   map[string]int `json:"severity_counts"`
}

func newMetrics() Metrics {
	return Metrics{
		ErrorCounts:      make(map[string]int),
		IdentifierCounts: make(map[string]int),
		SeverityCounts:   make(map[string]int),
	}
}

// Report is the complete outcome of one validation run.
type Report struct {
	ReportID       string    `json:"report_id"`
	Timestamp      time.Time `json:"timestamp"`
	SourceCSV      string    `json:"source_csv"`
	SourceMetadata string    `json:"source_metadata"`
	Summary        string    `json:"summary"`
	Entries        []Entry   `json:"entries"`
	Metrics        Metrics   `json:"metrics"`
}
