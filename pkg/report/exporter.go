package report

import (
	"os"
	"path/filepath"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// Exporter writes formatted reports to disk. File names carry the
// report timestamp: {base}_{YYYYMMDD_HHMMSS}{ext}.
type Exporter struct {
	OutputDir    string
	BaseFilename string
}

// NewExporter returns an exporter writing into dir.
func NewExporter(dir, baseFilename string) *Exporter {
	if baseFilename == "" {
		baseFilename = "validation_report"
	}
	return &Exporter{OutputDir: dir, BaseFilename: baseFilename}
}

// Export writes the report in every requested format. A failed format
// does not stop the others: its map value carries the sentinel
// "ERROR: ..." instead of a path.
func (x *Exporter) Export(r *Report, formats []string) map[string]string {
	results := make(map[string]string, len(formats))

	for _, name := range formats {
		path, err := x.exportOne(r, name)
		if err != nil {
			results[name] = "ERROR: " + err.Error()
			continue
		}
		results[name] = path
	}

	return results
}

func (x *Exporter) exportOne(r *Report, format string) (string, error) {
	f, err := For(format)
	if err != nil {
		return "", err
	}

	content, err := f.Format(r)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(x.OutputDir, 0o755); err != nil {
		return "", verrors.Wrap(err, verrors.CodeExportFailed, "create output directory")
	}

	filename := x.BaseFilename + "_" + r.Timestamp.Format("20060102_150405") + f.Extension()
	path := filepath.Join(x.OutputDir, filename)

	if err := os.WriteFile(path, content, 0o644); err != nil {
		return "", verrors.Wrap(err, verrors.CodeExportFailed, "write report file").
			WithContext("path", path)
	}

	return path, nil
}
