package report

import (
	verrors "github.com/vstructure/vstructure/pkg/errors"
)

// Formatter renders a report into one output format.
type Formatter interface {
	Format(r *Report) ([]byte, error)
	Name() string
	Extension() string
}

var formatters = map[string]Formatter{
	"json": JSONFormatter{},
	"csv":  CSVFormatter{},
	"xlsx": XLSXFormatter{},
}

// For resolves a formatter by name.
func For(name string) (Formatter, error) {
	f, ok := formatters[name]
	if !ok {
		return nil, verrors.UnknownFormat(name)
	}
	return f, nil
}

// Formats lists the supported format names.
func Formats() []string {
	return []string{"csv", "json", "xlsx"}
}
