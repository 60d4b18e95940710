package csvio

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"

	"github.com/vstructure/vstructure/internal/model"
)

// DefaultBatchSize bounds how many data rows are held in memory at once.
const DefaultBatchSize = 10000

// Row is one data row together with its position in the file.
type Row struct {
	// Index is the 0-based ordinal among data rows, counted over every
	// physical row including malformed ones, so positions never drift.
	Index int

	// CSVIndex is the absolute 0-based row in the file (header row is 0).
	CSVIndex int

	Values []string
}

// Batch is a bounded slice of rows plus the findings for rows that
// were excluded from it.
type Batch struct {
	Index  int
	Rows   []Row
	Errors []model.ValidationError
}

// BatchReader streams data rows in fixed-size batches. Rows whose
// column count does not match the header are excluded from the batch
// but recorded with their original position.
type BatchReader struct {
	cr        *csv.Reader
	closer    io.Closer
	columns   int
	batchSize int

	rowOrdinal int
	batchIdx   int
	skipped    bool
	done       bool
}

// NewBatchReader wraps a decoded reader positioned at the start of the
// file. The header and label rows are skipped on the first read.
func NewBatchReader(r io.Reader, closer io.Closer, dialect Dialect, columns, batchSize int) *BatchReader {
	cr := csv.NewReader(r)
	cr.Comma = dialect.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &BatchReader{
		cr:        cr,
		closer:    closer,
		columns:   columns,
		batchSize: batchSize,
	}
}

// Next returns the next batch, or io.EOF when the file is exhausted.
func (b *BatchReader) Next(ctx context.Context) (*Batch, error) {
	if b.done {
		return nil, io.EOF
	}

	if !b.skipped {
		for i := 0; i < DataStartIndex; i++ {
			if _, err := b.cr.Read(); err != nil {
				if err == io.EOF {
					b.done = true
					return nil, io.EOF
				}
				return nil, err
			}
		}
		b.skipped = true
	}

	batch := &Batch{Index: b.batchIdx}

	for len(batch.Rows) < b.batchSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		record, err := b.cr.Read()
		if err == io.EOF {
			b.done = true
			break
		}
		if err != nil {
			// A row the csv parser cannot recover is excluded like a
			// column-count mismatch; the ordinal still advances.
			batch.Errors = append(batch.Errors, b.excludedRow(err.Error()))
			b.rowOrdinal++
			continue
		}

		if len(record) != b.columns {
			batch.Errors = append(batch.Errors, b.excludedRow(
				fmt.Sprintf("row has %d columns, expected %d", len(record), b.columns)))
			b.rowOrdinal++
			continue
		}

		batch.Rows = append(batch.Rows, Row{
			Index:    b.rowOrdinal,
			CSVIndex: DataStartIndex + b.rowOrdinal,
			Values:   record,
		})
		b.rowOrdinal++
	}

	if len(batch.Rows) == 0 && len(batch.Errors) == 0 && b.done {
		return nil, io.EOF
	}

	b.batchIdx++
	return batch, nil
}

func (b *BatchReader) excludedRow(detail string) model.ValidationError {
	return model.ValidationError{
		Code:        "ROW_COLUMN_COUNT_MISMATCH",
		Severity:    model.SeverityError,
		Message:     "row excluded from batch: " + detail,
		Scope:       model.ScopeRow,
		RowIndex:    b.rowOrdinal,
		CSVRowIndex: DataStartIndex + b.rowOrdinal,
		Expected:    fmt.Sprintf("%d", b.columns),
	}
}

// RowsRead returns how many data rows have been consumed, excluded
// rows included.
func (b *BatchReader) RowsRead() int {
	return b.rowOrdinal
}

// Close releases the underlying file.
func (b *BatchReader) Close() error {
	if b.closer != nil {
		return b.closer.Close()
	}
	return nil
}
