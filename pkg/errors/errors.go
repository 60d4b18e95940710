// Package errors provides structured error handling for the validator.
// It implements errors with codes, context, and stack traces.
package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// Error codes for programmatic handling
type Code string

const (
	// Input errors (1xx)
	CodeFileNotFound      Code = "E101"
	CodeEmptyFile         Code = "E102"
	CodeEncodingDetection Code = "E103"
	CodeDialectDetection  Code = "E104"
	CodeInvalidStructure  Code = "E105"
	CodeReadFailed        Code = "E106"

	// Metadata errors (2xx)
	CodeSnapshotNotFound Code = "E201"
	CodeSnapshotDecode   Code = "E202"
	CodeAdapterFailed    Code = "E203"

	// Output errors (3xx)
	CodeWriteFailed      Code = "E301"
	CodeUnknownFormat    Code = "E302"
	CodeExportFailed     Code = "E303"

	// System errors (4xx)
	CodeContextCanceled Code = "E401"
	CodeTimeout         Code = "E402"
	CodePanic           Code = "E403"

	// Unknown
	CodeUnknown Code = "E999"
)

// PipelineError is the base error type for operational failures.
type PipelineError struct {
	Code       Code
	Message    string
	Cause      error
	Context    map[string]interface{}
	StackTrace []Frame
}

// Frame represents a stack frame.
type Frame struct {
	Function string
	File     string
	Line     int
}

// Error implements the error interface.
func (e *PipelineError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))

	if len(e.Context) > 0 {
		sb.WriteString(" (")
		first := true
		for k, v := range e.Context {
			if !first {
				sb.WriteString(", ")
			}
			sb.WriteString(fmt.Sprintf("%s=%v", k, v))
			first = false
		}
		sb.WriteString(")")
	}

	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}

	return sb.String()
}

// Unwrap returns the underlying cause.
func (e *PipelineError) Unwrap() error {
	return e.Cause
}

// Is checks if this error matches a target error.
func (e *PipelineError) Is(target error) bool {
	if t, ok := target.(*PipelineError); ok {
		return e.Code == t.Code
	}
	return false
}

// WithContext adds context to the error.
func (e *PipelineError) WithContext(key string, value interface{}) *PipelineError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// New creates a new PipelineError.
func New(code Code, message string) *PipelineError {
	return &PipelineError{
		Code:       code,
		Message:    message,
		StackTrace: captureStack(2),
	}
}

// Wrap wraps an existing error with additional context.
func Wrap(err error, code Code, message string) *PipelineError {
	if err == nil {
		return nil
	}

	return &PipelineError{
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: captureStack(2),
	}
}

// captureStack captures the current stack trace.
func captureStack(skip int) []Frame {
	var frames []Frame
	pcs := make([]uintptr, 32)
	n := runtime.Callers(skip+1, pcs)
	pcs = pcs[:n]

	cf := runtime.CallersFrames(pcs)
	for {
		frame, more := cf.Next()
		frames = append(frames, Frame{
			Function: frame.Function,
			File:     frame.File,
			Line:     frame.Line,
		})
		if !more || len(frames) >= 10 {
			break
		}
	}
	return frames
}

// FormatStack returns a formatted stack trace.
func (e *PipelineError) FormatStack() string {
	var sb strings.Builder
	for _, f := range e.StackTrace {
		sb.WriteString(fmt.Sprintf("  at %s\n    %s:%d\n", f.Function, f.File, f.Line))
	}
	return sb.String()
}

// --- Convenience constructors ---

// FileNotFound creates a file not found error.
func FileNotFound(path string) *PipelineError {
	return New(CodeFileNotFound, "file not found").WithContext("path", path)
}

// SnapshotNotFound creates a schema snapshot lookup error.
func SnapshotNotFound(instanceID, version string) *PipelineError {
	return New(CodeSnapshotNotFound, "schema snapshot not found").
		WithContext("instance_id", instanceID).
		WithContext("version", version)
}

// UnknownFormat creates an unknown report format error.
func UnknownFormat(name string) *PipelineError {
	return New(CodeUnknownFormat, "unknown report format").WithContext("format", name)
}

// --- Error checking utilities ---

// IsCode checks if an error has a specific code.
func IsCode(err error, code Code) bool {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Code == code
	}
	return false
}

// GetCode extracts the error code from an error.
func GetCode(err error) Code {
	var perr *PipelineError
	if errors.As(err, &perr) {
		return perr.Code
	}
	return CodeUnknown
}
