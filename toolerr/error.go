package toolerr

import (
	"errors"
	"fmt"
	"strings"
)

// Standard error codes used across adapters, the registry and the engine.
const (
	// ErrCodeValidation indicates an issue builder was sealed without a required field.
	ErrCodeValidation = "VALIDATION_ERROR"

	// ErrCodeParse indicates a report file could not be read or its root structure
	// was not recognized.
	ErrCodeParse = "PARSE_ERROR"

	// ErrCodeMalformedRecord indicates one unusable record inside an otherwise valid report.
	ErrCodeMalformedRecord = "MALFORMED_RECORD"

	// ErrCodeNotFound indicates a tool registry lookup miss.
	ErrCodeNotFound = "NOT_FOUND"

	// ErrCodeConfig indicates an invalid configuration file or priority table.
	ErrCodeConfig = "CONFIG_ERROR"

	// ErrCodeCache indicates the parse cache could not be read or written.
	ErrCodeCache = "CACHE_ERROR"
)

// Error is a structured error type for ingestion operations.
// It records which tool and operation failed, a standard error code,
// the report path when one is involved, and the underlying cause.
type Error struct {
	// Tool is the ID of the tool whose adapter or registry entry failed
	Tool string

	// Operation is the specific operation that failed (e.g. "parse", "lookup", "build")
	Operation string

	// Code is a standard error code constant
	Code string

	// Message is a human-readable error message
	Message string

	// Path is the report file involved, if any
	Path string

	// Record is the 1-based index of the offending record for MALFORMED_RECORD errors
	Record int

	// Details contains additional context as key-value pairs
	Details map[string]any

	// Cause is the underlying error that caused this error
	Cause error
}

// New creates a new structured error.
//
// Example:
//
//	err := toolerr.New("findbugs", "parse", toolerr.ErrCodeParse, "root element is not BugCollection")
func New(tool, operation, code, message string) *Error {
	return &Error{
		Tool:      tool,
		Operation: operation,
		Code:      code,
		Message:   message,
	}
}

// NewValidationError reports a builder that is missing required fields.
func NewValidationError(operation string, missing ...string) *Error {
	return &Error{
		Operation: operation,
		Code:      ErrCodeValidation,
		Message:   "missing required field(s): " + strings.Join(missing, ", "),
		Details:   map[string]any{"missing": missing},
	}
}

// NewParseError reports a report file that could not be parsed at all.
func NewParseError(tool, path string, cause error) *Error {
	return &Error{
		Tool:      tool,
		Operation: "parse",
		Code:      ErrCodeParse,
		Message:   "cannot parse report",
		Path:      path,
		Cause:     cause,
	}
}

// NewMalformedRecordError reports a single unusable record.
func NewMalformedRecordError(tool, path string, record int, cause error) *Error {
	return &Error{
		Tool:      tool,
		Operation: "parse",
		Code:      ErrCodeMalformedRecord,
		Message:   fmt.Sprintf("skipping record %d", record),
		Path:      path,
		Record:    record,
		Cause:     cause,
	}
}

// NewNotFoundError reports a tool ID that is not registered.
func NewNotFoundError(tool string) *Error {
	return &Error{
		Tool:      tool,
		Operation: "lookup",
		Code:      ErrCodeNotFound,
		Message:   fmt.Sprintf("tool %q is not registered", tool),
	}
}

// WithCause adds an underlying error to this error.
// This method returns the same error instance for method chaining.
func (e *Error) WithCause(err error) *Error {
	e.Cause = err
	return e
}

// WithPath records the report file involved.
func (e *Error) WithPath(path string) *Error {
	e.Path = path
	return e
}

// WithDetails adds additional context to this error.
// This method returns the same error instance for method chaining.
func (e *Error) WithDetails(details map[string]any) *Error {
	if e.Details == nil {
		e.Details = make(map[string]any, len(details))
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// Error implements the error interface.
// It formats the error as: "tool [operation/code] path: message: cause"
//
// Examples:
//   - "findbugs [parse/PARSE_ERROR] build/findbugs.xml: cannot parse report: unexpected EOF"
//   - "pmd [lookup/NOT_FOUND]: tool \"pmd\" is not registered"
func (e *Error) Error() string {
	var parts []string

	head := fmt.Sprintf("%s [%s/%s]", e.Tool, e.Operation, e.Code)
	if e.Tool == "" {
		head = fmt.Sprintf("[%s/%s]", e.Operation, e.Code)
	}
	if e.Path != "" {
		head += " " + e.Path
	}
	parts = append(parts, head)

	if e.Message != "" {
		parts = append(parts, e.Message)
	}

	if e.Cause != nil {
		parts = append(parts, e.Cause.Error())
	}

	return strings.Join(parts, ": ")
}

// Unwrap returns the underlying cause error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is implements error equality checking for errors.Is().
// Two errors match when their codes are equal and the target's Tool and
// Operation are either empty or equal. This lets the code-only sentinels
// (ErrParse, ErrNotFound, ...) match any error of that code.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Code != t.Code {
		return false
	}
	if t.Tool != "" && t.Tool != e.Tool {
		return false
	}
	return t.Operation == "" || t.Operation == e.Operation
}

// Scope returns the level at which this error is fatal.
func (e *Error) Scope() Scope {
	return ScopeForCode(e.Code)
}

// Sentinel errors matching any error of the corresponding code via errors.Is.
var (
	ErrValidation      = &Error{Code: ErrCodeValidation}
	ErrParse           = &Error{Code: ErrCodeParse}
	ErrMalformedRecord = &Error{Code: ErrCodeMalformedRecord}
	ErrNotFound        = &Error{Code: ErrCodeNotFound}
	ErrConfig          = &Error{Code: ErrCodeConfig}
)

// IsValidation reports whether err is or wraps a VALIDATION_ERROR.
func IsValidation(err error) bool { return hasCode(err, ErrCodeValidation) }

// IsParse reports whether err is or wraps a PARSE_ERROR.
func IsParse(err error) bool { return hasCode(err, ErrCodeParse) }

// IsMalformedRecord reports whether err is or wraps a MALFORMED_RECORD error.
func IsMalformedRecord(err error) bool { return hasCode(err, ErrCodeMalformedRecord) }

// IsNotFound reports whether err is or wraps a NOT_FOUND error.
func IsNotFound(err error) bool { return hasCode(err, ErrCodeNotFound) }

func hasCode(err error, code string) bool {
	var e *Error
	for err != nil {
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}
