package transform

import (
	"fmt"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/csvio"
)

// MapEntities groups parsed columns by entity and records the column
// index mapping used during row projection.
func MapEntities(cols []ParsedColumn) (map[string]*EntityData, map[int]string) {
	entities := make(map[string]*EntityData)
	colToEntity := make(map[int]string, len(cols))

	for i, col := range cols {
		e, ok := entities[col.EntityID]
		if !ok {
			e = newEntityData(col.EntityID)
			entities[col.EntityID] = e
		}
		e.addColumn(i, col)
		colToEntity[i] = col.EntityID
	}

	return entities, colToEntity
}

// CheckEntities reports structural oddities in the grouped entities:
// entities with no columns and fields that appear more than once
// within the same entity.
func CheckEntities(entities map[string]*EntityData) []model.ValidationError {
	var errs []model.ValidationError

	for entityID, e := range entities {
		if len(e.Columns) == 0 {
			errs = append(errs, model.ValidationError{
				Code:     "EMPTY_ENTITY",
				Severity: model.SeverityWarning,
				Message:  fmt.Sprintf("entity %q has no columns", entityID),
				Scope:    model.ScopeEntity,
				EntityID: entityID,
			})
		}

		counts := make(map[string]int)
		for _, col := range e.Columns {
			counts[col.FieldID]++
		}
		for fieldID, n := range counts {
			if n > 1 {
				errs = append(errs, model.ValidationError{
					Code:     "DUPLICATE_FIELD_IN_ENTITY",
					Severity: model.SeverityWarning,
					Message:  fmt.Sprintf("field %q appears %d times in entity %q", fieldID, n, entityID),
					Scope:    model.ScopeEntity,
					EntityID: entityID,
					FieldID:  fieldID,
				})
			}
		}
	}

	return errs
}

// Build parses the file's headers and assembles the full
// transformation context.
func Build(fc *csvio.FileContext, parser *Parser) *Context {
	cols, errs := parser.ParseAll(fc.Headers)
	entities, colToEntity := MapEntities(cols)
	errs = append(errs, CheckEntities(entities)...)

	return &Context{
		File:           fc,
		ParsedColumns:  cols,
		Entities:       entities,
		ColumnToEntity: colToEntity,
		Errors:         errs,
	}
}
