// Package csvio loads Golden Record CSV files: it resolves the
// character encoding, detects the delimiter dialect, validates the
// two-header-row structure, and streams data rows in bounded batches.
package csvio

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"

	"github.com/vstructure/vstructure/internal/model"
	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// FileContext is everything detected about a CSV file before any data
// row is validated. Findings from detection accumulate in Errors.
type FileContext struct {
	Path           string
	Encoding       string
	Dialect        Dialect
	Headers        []string
	Labels         []string
	TotalColumns   int
	DataStartIndex int
	HasDataRows    bool
	Errors         []model.ValidationError
}

// Fatal reports whether loading produced a finding that prevents
// validation from proceeding.
func (fc *FileContext) Fatal() bool {
	return model.HasFatal(fc.Errors)
}

// Loader drives the detection pipeline for a Golden Record file.
type Loader struct {
	BatchSize int
	resolver  *EncodingResolver
}

// NewLoader returns a loader with default batch size.
func NewLoader() *Loader {
	return &Loader{
		BatchSize: DefaultBatchSize,
		resolver:  NewEncodingResolver(),
	}
}

// Load runs encoding, dialect and structure detection. An I/O problem
// is returned as an error; every structural problem is recorded as a
// finding in the returned context.
func (l *Loader) Load(path string) (*FileContext, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, verrors.FileNotFound(path)
		}
		return nil, verrors.Wrap(err, verrors.CodeReadFailed, "stat input file")
	}

	fc := &FileContext{Path: path, DataStartIndex: DataStartIndex}

	enc, encErrs, err := l.resolver.Resolve(path)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeEncodingDetection, "resolve encoding")
	}
	fc.Errors = append(fc.Errors, encErrs...)
	if fc.Fatal() {
		return fc, nil
	}
	fc.Encoding = enc

	sample, err := l.readSample(path, enc)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeReadFailed, "read detection sample")
	}

	dialect, dialErrs := DetectDialect(sample)
	fc.Errors = append(fc.Errors, dialErrs...)
	if fc.Fatal() {
		return fc, nil
	}
	fc.Dialect = dialect

	head, err := l.readHead(path, enc, dialect, DataStartIndex+1)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeReadFailed, "read header rows")
	}

	st, stErrs := DetectStructure(head)
	fc.Errors = append(fc.Errors, stErrs...)
	fc.Headers = st.Headers
	fc.Labels = st.Labels
	fc.TotalColumns = len(st.Headers)
	fc.HasDataRows = st.HasDataRows

	return fc, nil
}

// Batches opens the file for streaming. The caller owns the returned
// reader and must Close it.
func (l *Loader) Batches(fc *FileContext) (*BatchReader, error) {
	f, err := os.Open(fc.Path)
	if err != nil {
		return nil, verrors.Wrap(err, verrors.CodeReadFailed, "open input file")
	}
	decoded := DecodeReader(bufio.NewReader(f), fc.Encoding)
	return NewBatchReader(decoded, f, fc.Dialect, fc.TotalColumns, l.BatchSize), nil
}

// readSample returns the first chunk of the file decoded to UTF-8.
func (l *Loader) readSample(path, enc string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	decoded := DecodeReader(bufio.NewReader(f), enc)
	buf := make([]byte, sampleSize)
	n, err := io.ReadFull(decoded, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}
	return string(buf[:n]), nil
}

// readHead parses up to n records with the detected dialect.
func (l *Loader) readHead(path, enc string, dialect Dialect, n int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cr := csv.NewReader(DecodeReader(bufio.NewReader(f), enc))
	cr.Comma = dialect.Delimiter
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	var rows [][]string
	for len(rows) < n {
		record, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		rows = append(rows, record)
	}
	return rows, nil
}
