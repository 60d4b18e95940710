package report

import (
	"bytes"
	"encoding/csv"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// csvHeader is the fixed column set of the tabular report.
var csvHeader = []string{
	"identifier",
	"field_id",
	"column",
	"error_code",
	"level",
	"message",
	"expected",
	"actual",
	"metadata_path",
}

// CSVFormatter renders the entries as a flat CSV table. Metrics and
// summary are JSON-only.
type CSVFormatter struct{}

func (CSVFormatter) Name() string      { return "csv" }
func (CSVFormatter) Extension() string { return ".csv" }

func (CSVFormatter) Format(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(csvHeader); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "write report CSV header")
	}

	for _, e := range r.Entries {
		row := []string{
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
		if err := w.Write(row); err != nil {
			return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "write report CSV row")
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "flush report CSV")
	}
	return buf.Bytes(), nil
}
