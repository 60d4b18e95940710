package report

import (
	"bytes"
	"encoding/json"

	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// JSONFormatter renders the full report as indented JSON.
type JSONFormatter struct{}

func (JSONFormatter) Name() string      { return "json" }
func (JSONFormatter) Extension() string { return ".json" }

func (JSONFormatter) Format(r *Report) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(r); err != nil {
		return nil, verrors.Wrap(err, verrors.CodeWriteFailed, "encode report JSON")
	}
	return buf.Bytes(), nil
}
