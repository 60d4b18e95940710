package comparator

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/transform"
)

// DefaultIdentifierColumn is the business key column used to stamp
// row-level findings with the affected record's identifier.
const DefaultIdentifierColumn = "personInfo_person-id-external"

// Engine runs the enabled rules over transformed batches. Structure
// rules run once per batch, field rules per cell. A rule that panics
// is converted into a fatal finding; the batch keeps going.
type Engine struct {
	// IdentifierColumn names the business key column.
	IdentifierColumn string

	structureRules []StructureRule
	fieldRules     []FieldRule
}

// NewEngine builds an engine from the registry's enabled rules.
func NewEngine(registry *Registry) *Engine {
	e := &Engine{IdentifierColumn: DefaultIdentifierColumn}

	for _, rule := range registry.Enabled("") {
		switch r := rule.(type) {
		case FieldRule:
			e.fieldRules = append(e.fieldRules, r)
		case StructureRule:
			e.structureRules = append(e.structureRules, r)
		}
	}

	return e
}

// ValidateBatch validates one batch of transformed rows.
func (e *Engine) ValidateBatch(rows []transform.TransformedRow, batchIndex int, ctx *ValidationContext) BatchResult {
	start := time.Now()
	var errs []model.ValidationError

	for _, rule := range e.structureRules {
		errs = append(errs, e.runStructureRule(rule, ctx)...)
	}

	idIndex := e.identifierColumnIndex(ctx)

	for i := range rows {
		errs = append(errs, e.validateRow(&rows[i], idIndex, ctx)...)
	}

	return BatchResult{
		BatchIndex:     batchIndex,
		ProcessedRows:  len(rows),
		Errors:         errs,
		ValidationTime: time.Since(start),
	}
}

func (e *Engine) runStructureRule(rule StructureRule, ctx *ValidationContext) (errs []model.ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			errs = append(errs, ruleExecutionFailed(rule.ID(), fmt.Sprint(r)))
		}
	}()
	return rule.Validate(ctx)
}

func (e *Engine) validateRow(row *transform.TransformedRow, idIndex int, ctx *ValidationContext) []model.ValidationError {
	var errs []model.ValidationError

	identifier := ""
	if idIndex >= 0 && idIndex < len(row.RawValues) {
		identifier = strings.TrimSpace(row.RawValues[idIndex])
	}

	entityIDs := make([]string, 0, len(row.ByEntity))
	for entityID := range row.ByEntity {
		entityIDs = append(entityIDs, entityID)
	}
	sort.Strings(entityIDs)

	for _, entityID := range entityIDs {
		fields := row.ByEntity[entityID]
		fieldIDs := make([]string, 0, len(fields))
		for fieldID := range fields {
			fieldIDs = append(fieldIDs, fieldID)
		}
		sort.Strings(fieldIDs)

		for _, fieldID := range fieldIDs {
			value := fields[fieldID]
			columnName := ctx.Transform.ColumnName(entityID, fieldID)
			meta := resolveFieldMetadata(ctx.Metadata, entityID, fieldID, columnName)

			if meta == nil {
				fieldPath := entityID + "_" + fieldID
				if _, scoped := countryPrefix(entityID); scoped {
					errs = append(errs, missingMetadataForField(
						fmt.Sprintf("country field: %s (not found with country prefix)", fieldPath)))
				} else {
					errs = append(errs, missingMetadataForField(fieldPath))
				}
				continue
			}

			in := FieldInput{
				Context:     ctx,
				EntityID:    entityID,
				Meta:        meta,
				Value:       value,
				RowIndex:    row.RowIndex,
				CSVRowIndex: row.CSVRowIndex,
				ColumnName:  columnName,
				Identifier:  identifier,
			}

			for _, rule := range e.fieldRules {
				errs = append(errs, e.runFieldRule(rule, in)...)
			}
		}
	}

	return errs
}

func (e *Engine) runFieldRule(rule FieldRule, in FieldInput) (errs []model.ValidationError) {
	defer func() {
		if r := recover(); r != nil {
			errs = append(errs, ruleExecutionFailed(rule.ID(),
				fmt.Sprintf("field %s.%s: %v", in.EntityID, in.Meta.FieldID, r)))
		}
	}()
	if rule.ShouldSkip(in.Meta, in.Value) {
		return nil
	}
	return rule.ValidateField(in)
}

// identifierColumnIndex resolves the business key column's position,
// first through the parsed columns, then through the raw headers.
// Returns -1 when the column is absent.
func (e *Engine) identifierColumnIndex(ctx *ValidationContext) int {
	column := e.IdentifierColumn
	if column == "" {
		column = DefaultIdentifierColumn
	}

	for i, col := range ctx.Transform.ParsedColumns {
		if col.FullPath() == column {
			return i
		}
	}

	if ctx.Transform.File != nil {
		for i, h := range ctx.Transform.File.Headers {
			if h == column {
				return i
			}
		}
	}

	return -1
}

// resolveFieldMetadata walks the lookup chain for a field: the plain
// entity_field path, the path with the country prefix stripped, the
// literal column name, and finally the entity's own field table.
func resolveFieldMetadata(mc *MetadataContext, entityID, fieldID, columnName string) *FieldMetadata {
	if fm, ok := mc.FieldByFullPath[entityID+"_"+fieldID]; ok {
		return fm
	}

	if prefix, scoped := countryPrefix(entityID); scoped {
		base := strings.TrimPrefix(entityID, prefix+"_")
		if fm, ok := mc.FieldByFullPath[base+"_"+fieldID]; ok {
			return fm
		}
	}

	if columnName != "" {
		if fm, ok := mc.FieldByFullPath[columnName]; ok {
			return fm
		}
		if fm, ok := mc.FieldByFullPath[strings.ReplaceAll(columnName, "_", ".")]; ok {
			return fm
		}
	}

	if entity, ok := mc.Entities[entityID]; ok {
		if fm, ok := entity.Fields[fieldID]; ok {
			return fm
		}
	}

	return nil
}
