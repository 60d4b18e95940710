// Package transform turns raw CSV columns and rows into the semantic
// structure the rules operate on: composite column identifiers are
// parsed, columns grouped by entity, and each data row projected into
// an entity/field map while keeping the raw values intact.
package transform

import (
	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/csvio"
)

// ParsedColumn is a decomposed composite column identifier.
type ParsedColumn struct {
	OriginalName      string
	EntityID          string
	FieldID           string
	CountryCode       string
	IsCountrySpecific bool
}

// FullPath is the lookup key used against field metadata. It never
// carries the country prefix; the metadata adapter registers scoped
// fields under both spellings.
func (c ParsedColumn) FullPath() string {
	return c.EntityID + "_" + c.FieldID
}

// EntityData groups the columns that belong to one entity.
type EntityData struct {
	EntityID string
	Columns  []ParsedColumn

	// FieldMapping resolves a field identifier back to its column.
	FieldMapping map[string]ParsedColumn

	// ColumnIndexes resolves a CSV column index to its parsed column.
	ColumnIndexes map[int]ParsedColumn
}

func newEntityData(entityID string) *EntityData {
	return &EntityData{
		EntityID:      entityID,
		FieldMapping:  make(map[string]ParsedColumn),
		ColumnIndexes: make(map[int]ParsedColumn),
	}
}

func (e *EntityData) addColumn(index int, col ParsedColumn) {
	e.Columns = append(e.Columns, col)
	e.FieldMapping[col.FieldID] = col
	e.ColumnIndexes[index] = col
}

// Context is the full transformation of a file's column structure.
type Context struct {
	File          *csvio.FileContext
	ParsedColumns []ParsedColumn
	Entities      map[string]*EntityData

	// ColumnToEntity maps a CSV column index to its entity.
	ColumnToEntity map[int]string

	Errors []model.ValidationError
}

// ColumnName returns the original CSV column name for an entity field,
// or "" when the pair is not present in the file.
func (c *Context) ColumnName(entityID, fieldID string) string {
	e, ok := c.Entities[entityID]
	if !ok {
		return ""
	}
	col, ok := e.FieldMapping[fieldID]
	if !ok {
		return ""
	}
	return col.OriginalName
}

// TransformedRow is one data row projected onto the entity structure.
type TransformedRow struct {
	// RowIndex is the 0-based ordinal among data rows; CSVRowIndex is
	// the absolute row in the file.
	RowIndex    int
	CSVRowIndex int

	// ByEntity holds entityID -> fieldID -> raw cell value.
	ByEntity map[string]map[string]string

	// RawValues preserves the row exactly as read.
	RawValues []string

	Errors []model.ValidationError
}
