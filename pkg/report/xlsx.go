package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

const (
	findingsSheet = "Findings"
	summarySheet  = "Summary"
)

// XLSXFormatter renders the report as a workbook with a findings
// sheet and a summary sheet.
type XLSXFormatter struct{}

func (XLSXFormatter) Name() string      { return "xlsx" }
func (XLSXFormatter) Extension() string { return ".xlsx" }

func (XLSXFormatter) Format(r *Report) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	f.SetSheetName("Sheet1", findingsSheet)
	if _, err := f.NewSheet(summarySheet); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "create summary sheet")
	}

	headerStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "create header style")
	}

	for col, name := range csvHeader {
		cell, _ := excelize.CoordinatesToCellName(col+1, 1)
		if err := f.SetCellValue(findingsSheet, cell, name); err != nil {
			return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "write findings header")
		}
	}
	if err := f.SetRowStyle(findingsSheet, 1, 1, headerStyle); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "style findings header")
	}

	for i, e := range r.Entries {
		values := []string{
			e.Identifier,
			e.FieldID,
			e.ColumnName,
			e.ErrorCode,
			string(e.Level),
			e.Message,
			e.Expected,
			e.Actual,
			e.MetadataPath,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+2)
			if err := f.SetCellValue(findingsSheet, cell, v); err != nil {
				return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "write findings row")
			}
		}
	}

	if err := writeSummarySheet(f, r); err != nil {
		return nil, err
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "serialize workbook")
	}
	return buf.Bytes(), nil
}

func writeSummarySheet(f *excelize.File, r *Report) error {
	rows := [][]interface{}{
		{"report_id", r.ReportID},
		{"timestamp", r.Timestamp.Format("2006-01-02 15:04:05")},
		{"source_csv", r.SourceCSV},
		{"source_metadata", r.SourceMetadata},
		{"summary", r.Summary},
		{"total_rows", r.Metrics.TotalRows},
		{"total_batches", r.Metrics.TotalBatches},
		{"total_errors", r.Metrics.TotalErrors},
		{"total_warnings", r.Metrics.TotalWarnings},
		{"validation_time", fmt.Sprintf("%.3fs", r.Metrics.ValidationSec)},
	}

	for i, row := range rows {
		for col, v := range row {
			cell, _ := excelize.CoordinatesToCellName(col+1, i+1)
			if err := f.SetCellValue(summarySheet, cell, v); err != nil {
				return verrors.Wrap(err, verrors.CodeWriteFailed, "write summary row")
			}
		}
	}
	return nil
}
