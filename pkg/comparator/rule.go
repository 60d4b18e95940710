package comparator

import "github.com/vstructure/vstructure/internal/model"

// FieldInput carries one cell and its position to the field rules.
type FieldInput struct {
	Context     *ValidationContext
	EntityID    string
	Meta        *FieldMetadata
	Value       string
	RowIndex    int
	CSVRowIndex int
	ColumnName  string

	// Identifier is the business key of the row, when resolvable.
	Identifier string
}

// columnOr falls back to the composite name when the original column
// name could not be resolved.
func (in FieldInput) columnOr(fieldID string) string {
	if in.ColumnName != "" {
		return in.ColumnName
	}
	return in.EntityID + "_" + fieldID
}

// Rule is the common surface of every validation rule.
type Rule interface {
	ID() string
	Description() string
	Scope() model.Scope
}

// StructureRule runs once per batch against the whole context. GLOBAL
// and ENTITY scoped rules implement it.
type StructureRule interface {
	Rule
	Validate(ctx *ValidationContext) []model.ValidationError
}

// FieldRule runs per cell. ShouldSkip is consulted first so rules
// that do not apply to a field cost nothing per row.
type FieldRule interface {
	Rule
	ShouldSkip(meta *FieldMetadata, value string) bool
	ValidateField(in FieldInput) []model.ValidationError
}
