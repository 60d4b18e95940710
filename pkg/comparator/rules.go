package comparator

import (
	"regexp"
	"strings"
	"time"

	"github.com/vstructure/vstructure/internal/model"
)

// RequiredColumnsRule checks that every required field in metadata has
// a matching column in the file. Runs once per batch at entity scope.
type RequiredColumnsRule struct{}

func (RequiredColumnsRule) ID() string          { return "required_columns" }
func (RequiredColumnsRule) Description() string { return "required columns must exist in the file" }
func (RequiredColumnsRule) Scope() model.Scope  { return model.ScopeEntity }

func (RequiredColumnsRule) Validate(ctx *ValidationContext) []model.ValidationError {
	var errs []model.ValidationError

	for entityID, meta := range ctx.Metadata.Entities {
		entity, ok := ctx.Transform.Entities[entityID]
		if !ok {
			for fieldID := range meta.RequiredFields {
				errs = append(errs, requiredColumnMissing(entityID, fieldID))
			}
			continue
		}

		for fieldID := range meta.RequiredFields {
			if _, ok := entity.FieldMapping[fieldID]; !ok {
				errs = append(errs, requiredColumnMissing(entityID, fieldID))
			}
		}
	}

	return errs
}

// NotNullRule flags empty values in required fields.
type NotNullRule struct{}

func (NotNullRule) ID() string          { return "not_null" }
func (NotNullRule) Description() string { return "required fields must not be empty" }
func (NotNullRule) Scope() model.Scope  { return model.ScopeField }

func (NotNullRule) ShouldSkip(meta *FieldMetadata, value string) bool {
	return meta == nil || !meta.IsRequired
}

func (NotNullRule) ValidateField(in FieldInput) []model.ValidationError {
	if strings.TrimSpace(in.Value) != "" {
		return nil
	}
	return []model.ValidationError{requiredValueMissing(in, in.Meta.FieldID)}
}

// DataTypeRule checks values against the type declared in metadata.
// Unknown types pass.
type DataTypeRule struct{}

var typePatterns = map[string]*regexp.Regexp{
	"number":   regexp.MustCompile(`^-?\d+(\.\d+)?$`),
	"integer":  regexp.MustCompile(`^-?\d+$`),
	"boolean":  regexp.MustCompile(`(?i)^(true|false|0|1|yes|no)$`),
	"date":     regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`),
	"datetime": regexp.MustCompile(`^\d{4}-\d{2}-\d{2}[T ]\d{2}:\d{2}:\d{2}`),
	"email":    regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`),
}

func (DataTypeRule) ID() string          { return "data_type" }
func (DataTypeRule) Description() string { return "values must match the declared data type" }
func (DataTypeRule) Scope() model.Scope  { return model.ScopeField }

func (DataTypeRule) ShouldSkip(meta *FieldMetadata, value string) bool {
	if meta == nil || meta.DataType == "" {
		return true
	}
	// Emptiness is not_null's concern.
	return strings.TrimSpace(value) == ""
}

func (DataTypeRule) ValidateField(in FieldInput) []model.ValidationError {
	dataType := strings.ToLower(in.Meta.DataType)
	value := strings.TrimSpace(in.Value)

	if validateType(dataType, value) {
		return nil
	}

	actual := value
	if len(actual) > 50 {
		actual = actual[:50]
	}
	return []model.ValidationError{invalidDataType(in, in.Meta.FieldID, dataType, actual)}
}

func validateType(dataType, value string) bool {
	pattern, known := typePatterns[dataType]
	if !known {
		// "string" and unrecognized types accept anything.
		return true
	}
	if !pattern.MatchString(value) {
		return false
	}
	if dataType == "date" {
		// The pattern admits impossible dates like 2024-13-40.
		_, err := time.Parse("2006-01-02", value)
		return err == nil
	}
	return true
}

// MaxLengthRule checks values against the declared maximum length.
type MaxLengthRule struct{}

func (MaxLengthRule) ID() string          { return "max_length" }
func (MaxLengthRule) Description() string { return "values must not exceed the declared length" }
func (MaxLengthRule) Scope() model.Scope  { return model.ScopeField }

func (MaxLengthRule) ShouldSkip(meta *FieldMetadata, value string) bool {
	return meta == nil || !meta.HasMax
}

func (MaxLengthRule) ValidateField(in FieldInput) []model.ValidationError {
	length := len([]rune(in.Value))
	if length <= in.Meta.MaxLength {
		return nil
	}
	return []model.ValidationError{maxLengthExceeded(in, in.Meta.FieldID, in.Meta.MaxLength, length)}
}

// PatternRule checks values against the regex declared in metadata.
// Registered but disabled by default; enable it per run when the
// snapshot's patterns are trusted.
type PatternRule struct{}

func (PatternRule) ID() string          { return "pattern" }
func (PatternRule) Description() string { return "values must match the declared pattern" }
func (PatternRule) Scope() model.Scope  { return model.ScopeField }

func (PatternRule) ShouldSkip(meta *FieldMetadata, value string) bool {
	if meta == nil || meta.Pattern == "" {
		return true
	}
	return strings.TrimSpace(value) == ""
}

func (PatternRule) ValidateField(in FieldInput) []model.ValidationError {
	re, err := regexp.Compile(in.Meta.Pattern)
	if err != nil {
		return []model.ValidationError{ruleExecutionFailed("pattern", err.Error())}
	}
	if re.MatchString(in.Value) {
		return nil
	}
	actual := in.Value
	if len(actual) > 50 {
		actual = actual[:50]
	}
	return []model.ValidationError{patternMismatch(in, in.Meta.FieldID, in.Meta.Pattern, actual)}
}
