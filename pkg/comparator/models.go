// Package comparator checks transformed rows against field metadata.
// Metadata snapshots are adapted into a lookup context, then a rule
// engine runs registered rules per batch with failure isolation: a
// broken rule produces a finding, never a crash.
package comparator

import (
	"time"

	"github.com/vstructure/vstructure/internal/model"
	"github.com/vstructure/vstructure/pkg/transform"
)

// FieldMetadata is the validation contract of a single field.
type FieldMetadata struct {
	ElementID string
	FieldID   string

	// FullPath is the lookup key, ElementID + "_" + FieldID. Country
	// scoped fields are registered under both the plain and the
	// country-prefixed spelling.
	FullPath string

	IsRequired bool
	DataType   string
	MaxLength  int
	HasMax     bool
	Pattern    string

	IsCountrySpecific bool
	CountryCode       string

	Attributes map[string]string
}

// EntityMetadata groups the fields of one entity.
type EntityMetadata struct {
	EntityID       string
	Fields         map[string]*FieldMetadata
	RequiredFields map[string]bool

	IsCountrySpecific bool
	CountryCode       string
}

func newEntityMetadata(entityID string) *EntityMetadata {
	return &EntityMetadata{
		EntityID:       entityID,
		Fields:         make(map[string]*FieldMetadata),
		RequiredFields: make(map[string]bool),
	}
}

// MetadataContext is the adapted snapshot the rules validate against.
type MetadataContext struct {
	SourceInstance string
	SourceVersion  string

	Entities        map[string]*EntityMetadata
	FieldByFullPath map[string]*FieldMetadata
}

// ValidationContext pairs the file's transformed structure with the
// metadata it is validated against.
type ValidationContext struct {
	Transform *transform.Context
	Metadata  *MetadataContext
}

// BatchResult is the outcome of validating one batch.
type BatchResult struct {
	BatchIndex     int
	ProcessedRows  int
	Errors         []model.ValidationError
	ValidationTime time.Duration
}

// RuleConfiguration holds the runtime state of a registered rule.
type RuleConfiguration struct {
	RuleID  string
	Enabled bool
	Scope   model.Scope
	Params  map[string]string
}

// RuleInfo describes a registered rule for listing.
type RuleInfo struct {
	RuleID      string
	Description string
	Scope       model.Scope
	Enabled     bool
}
