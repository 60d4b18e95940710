package comparator

import (
	"fmt"
	"strconv"

	"github.com/vstructure/vstructure/internal/model"
)

// Finding constructors. Every rule goes through these so codes,
// severities and scopes stay consistent across the engine.

func metadataAdaptationFailed(details string) model.ValidationError {
	return model.ValidationError{
		Code:     "METADATA_ADAPTATION_FAILED",
		Severity: model.SeverityFatal,
		Message:  fmt.Sprintf("metadata adaptation failed: %s", details),
		Scope:    model.ScopeGlobal,
	}
}

func missingMetadataForField(fieldPath string) model.ValidationError {
	return model.ValidationError{
		Code:         "MISSING_METADATA_FOR_FIELD",
		Severity:     model.SeverityWarning,
		Message:      fmt.Sprintf("no metadata found for field: %s", fieldPath),
		Scope:        model.ScopeGlobal,
		MetadataPath: fieldPath,
	}
}

func requiredColumnMissing(entityID, fieldID string) model.ValidationError {
	return model.ValidationError{
		Code:     "REQUIRED_COLUMN_MISSING",
		Severity: model.SeverityError,
		Message:  fmt.Sprintf("required column missing: %s.%s", entityID, fieldID),
		Scope:    model.ScopeEntity,
		EntityID: entityID,
		FieldID:  fieldID,
	}
}

func requiredValueMissing(in FieldInput, fieldID string) model.ValidationError {
	return model.ValidationError{
		Code:        "REQUIRED_VALUE_MISSING",
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf("required value missing in %s.%s", in.EntityID, fieldID),
		Scope:       model.ScopeRow,
		RowIndex:    in.RowIndex,
		CSVRowIndex: in.CSVRowIndex,
		EntityID:    in.EntityID,
		FieldID:     fieldID,
		ColumnName:  in.columnOr(fieldID),
		Identifier:  in.Identifier,
	}
}

func invalidDataType(in FieldInput, fieldID, expectedType, actualValue string) model.ValidationError {
	return model.ValidationError{
		Code:        "INVALID_DATA_TYPE",
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf("invalid data type in %s.%s: expected %s", in.EntityID, fieldID, expectedType),
		Scope:       model.ScopeField,
		RowIndex:    in.RowIndex,
		CSVRowIndex: in.CSVRowIndex,
		EntityID:    in.EntityID,
		FieldID:     fieldID,
		ColumnName:  in.columnOr(fieldID),
		Expected:    expectedType,
		Actual:      actualValue,
		Identifier:  in.Identifier,
	}
}

func maxLengthExceeded(in FieldInput, fieldID string, maxLength, actualLength int) model.ValidationError {
	truncated := in.Value
	if len(truncated) > 50 {
		truncated = truncated[:50] + "..."
	}
	return model.ValidationError{
		Code:        "MAX_LENGTH_EXCEEDED",
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf("maximum length exceeded in %s.%s: max %d, actual %d", in.EntityID, fieldID, maxLength, actualLength),
		Scope:       model.ScopeField,
		RowIndex:    in.RowIndex,
		CSVRowIndex: in.CSVRowIndex,
		EntityID:    in.EntityID,
		FieldID:     fieldID,
		ColumnName:  in.columnOr(fieldID),
		Expected:    strconv.Itoa(maxLength),
		Actual:      strconv.Itoa(actualLength),
		Details:     map[string]string{"truncated_value": truncated},
		Identifier:  in.Identifier,
	}
}

func patternMismatch(in FieldInput, fieldID, pattern, actualValue string) model.ValidationError {
	return model.ValidationError{
		Code:        "PATTERN_MISMATCH",
		Severity:    model.SeverityError,
		Message:     fmt.Sprintf("value does not match pattern in %s.%s", in.EntityID, fieldID),
		Scope:       model.ScopeField,
		RowIndex:    in.RowIndex,
		CSVRowIndex: in.CSVRowIndex,
		EntityID:    in.EntityID,
		FieldID:     fieldID,
		ColumnName:  in.columnOr(fieldID),
		Expected:    pattern,
		Actual:      actualValue,
		Identifier:  in.Identifier,
	}
}

func ruleExecutionFailed(ruleID, details string) model.ValidationError {
	return model.ValidationError{
		Code:     "RULE_EXECUTION_FAILED",
		Severity: model.SeverityFatal,
		Message:  fmt.Sprintf("rule %q failed: %s", ruleID, details),
		Scope:    model.ScopeGlobal,
		Details:  map[string]string{"rule_id": ruleID},
	}
}
