// Package errors defines the typed error taxonomy used across the
// reconciler. Errors carry a category and code so callers can distinguish
// configuration mistakes (which abort a run) from record-level data
// problems (which are collected and reported), and so the CLI can map
// failures to stable exit codes.
package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Category groups errors by the kind of failure
type Category string

const (
	CategoryFile           Category = "file"
	CategoryParse          Category = "parse"
	CategoryValidation     Category = "validation"
	CategoryConfiguration  Category = "configuration"
	CategoryReconciliation Category = "reconciliation"
	CategoryInternal       Category = "internal"
)

// Code identifies the specific failure within a category
type Code string

const (
	// File errors
	CodeFileNotFound   Code = "file_not_found"
	CodeFilePermission Code = "file_permission"

	// Parse errors
	CodeInvalidFormat Code = "invalid_format"
	CodeMissingColumn Code = "missing_column"
	CodeInvalidData   Code = "invalid_data"

	// Validation errors (record level, never abort a run)
	CodeInvalidReceipt     Code = "invalid_receipt"
	CodeInvalidTransaction Code = "invalid_transaction"
	CodeInvalidAmount      Code = "invalid_amount"
	CodeInvalidDate        Code = "invalid_date"
	CodeMissingField       Code = "missing_field"

	// Configuration errors (always abort before scoring)
	CodeInvalidPreferences Code = "invalid_preferences"
	CodeInvalidConfig      Code = "invalid_config"

	// Reconciliation errors
	CodeMatchingFailed  Code = "matching_failed"
	CodeProcessingError Code = "processing_error"

	// Internal errors
	CodeUnexpectedError Code = "unexpected_error"
)

// Error is the application error type. It wraps an optional cause and
// captures a stack trace at construction.
type Error struct {
	Category   Category          `json:"category"`
	Code       Code              `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context carries structured detail about the failure
type Context map[string]interface{}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause
func (e *Error) Unwrap() error {
	return e.Cause
}

// ExitCode maps the error category onto the CLI exit code contract:
// 2 file, 3 data, 4 configuration, 5 processing
func (e *Error) ExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategoryValidation:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext attaches a key/value detail to the error
func (e *Error) WithContext(key string, value interface{}) *Error {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion attaches a remediation hint
func (e *Error) WithSuggestion(suggestion string) *Error {
	e.Suggestion = suggestion
	return e
}

// stackTracer is the interface pkg/errors values expose their traces through
type stackTracer interface {
	StackTrace() errors.StackTrace
}

// New creates an Error with a fresh stack trace
func New(category Category, code Code, message string) *Error {
	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap annotates an existing error with category and code. Returns nil for
// a nil cause.
func Wrap(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}

	return &Error{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

// FileError creates a file access error for the given path
func FileError(code Code, path string, err error) *Error {
	var message, suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check the path and make sure the export file exists"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied reading %s", path)
		suggestion = "check read permissions on the file"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	result := New(CategoryFile, code, message)
	if err != nil {
		result = Wrap(err, CategoryFile, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("file_path", path)
}

// ParseError creates a parse error pinned to a file location
func ParseError(code Code, file string, line int, column, value string, err error) *Error {
	var message, suggestion string

	switch code {
	case CodeMissingColumn:
		message = fmt.Sprintf("missing required column '%s' in %s", column, file)
		suggestion = "verify the export has all required columns in the header row"
	case CodeInvalidData:
		message = fmt.Sprintf("invalid data in %s line %d, column '%s': '%s'", file, line, column, value)
		suggestion = "correct the value or remove the line"
	default:
		message = fmt.Sprintf("invalid format in %s at line %d", file, line)
		suggestion = "check the export format against the expected layout"
	}

	result := New(CategoryParse, code, message)
	if err != nil {
		result = Wrap(err, CategoryParse, code, message)
	}
	return result.
		WithSuggestion(suggestion).
		WithContext("file", file).
		WithContext("line", line).
		WithContext("column", column)
}

// ValidationError creates a record-level validation error. These are
// collected per record during a run and never abort it.
func ValidationError(code Code, recordID string, err error) *Error {
	var message, suggestion string

	switch code {
	case CodeInvalidReceipt:
		message = fmt.Sprintf("receipt %s failed validation", recordID)
		suggestion = "the receipt is excluded from this run; fix the record and rerun"
	case CodeInvalidTransaction:
		message = fmt.Sprintf("transaction %s failed validation", recordID)
		suggestion = "the transaction is excluded from this run; fix the record and rerun"
	case CodeInvalidAmount:
		message = fmt.Sprintf("invalid amount on record %s", recordID)
		suggestion = "amounts must be decimal numbers, positive for receipts"
	case CodeInvalidDate:
		message = fmt.Sprintf("invalid date on record %s", recordID)
		suggestion = "use YYYY-MM-DD or another supported date format"
	case CodeMissingField:
		message = fmt.Sprintf("record %s is missing a required field", recordID)
		suggestion = "id, merchant, amount and date are required"
	default:
		message = fmt.Sprintf("validation error on record %s", recordID)
		suggestion = "check the record's fields"
	}

	result := New(CategoryValidation, code, message)
	if err != nil {
		result = Wrap(err, CategoryValidation, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("record_id", recordID)
}

// ConfigurationError creates a configuration error. Configuration problems
// always fail fast, before any record is scored.
func ConfigurationError(code Code, setting string, value interface{}, err error) *Error {
	var message, suggestion string

	switch code {
	case CodeInvalidPreferences:
		message = fmt.Sprintf("invalid matching preferences: %s", setting)
		suggestion = "check weights, tolerances and thresholds against the documented ranges"
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "check the flag or config file value"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "review the configuration and try again"
	}

	result := New(CategoryConfiguration, code, message)
	if err != nil {
		result = Wrap(err, CategoryConfiguration, code, message)
	}
	return result.WithSuggestion(suggestion).WithContext("setting", setting)
}

// ReconciliationError creates an error for a failure inside a matching run
func ReconciliationError(code Code, operation string, err error) *Error {
	message := fmt.Sprintf("reconciliation failed during %s", operation)
	if code == CodeMatchingFailed {
		message = fmt.Sprintf("matching failed during %s", operation)
	}

	result := New(CategoryReconciliation, code, message)
	if err != nil {
		result = Wrap(err, CategoryReconciliation, code, message)
	}
	return result.
		WithSuggestion("try adjusting matching preferences or check data quality").
		WithContext("operation", operation)
}

// InternalError creates an error for unexpected failures
func InternalError(operation string, err error) *Error {
	message := fmt.Sprintf("unexpected error during %s", operation)

	result := New(CategoryInternal, CodeUnexpectedError, message)
	if err != nil {
		result = Wrap(err, CategoryInternal, CodeUnexpectedError, message)
	}
	return result.
		WithSuggestion("this is likely a bug; report it with the error details").
		WithContext("operation", operation)
}

// Summary aggregates the record-level errors collected across a run
type Summary struct {
	Total      int              `json:"total"`
	ByCategory map[Category]int `json:"by_category"`
	ByCode     map[Code]int     `json:"by_code"`
	Errors     []*Error         `json:"errors"`
}

// NewSummary builds a summary over the collected errors
func NewSummary(errs []*Error) *Summary {
	summary := &Summary{
		Total:      len(errs),
		ByCategory: make(map[Category]int),
		ByCode:     make(map[Code]int),
		Errors:     errs,
	}
	if errs == nil {
		summary.Errors = []*Error{}
	}

	for _, err := range errs {
		summary.ByCategory[err.Category]++
		summary.ByCode[err.Code]++
	}

	return summary
}

// Error formats the summary as a single message
func (s *Summary) Error() string {
	if s.Total == 0 {
		return "no errors"
	}
	if s.Total == 1 {
		return s.Errors[0].Error()
	}

	var parts []string
	for category, count := range s.ByCategory {
		parts = append(parts, fmt.Sprintf("%s: %d", category, count))
	}

	return fmt.Sprintf("%d errors occurred (%s)", s.Total, strings.Join(parts, ", "))
}

// HasCategory reports whether any collected error belongs to the category
func (s *Summary) HasCategory(category Category) bool {
	return s.ByCategory[category] > 0
}

// ExitCode returns the highest exit code across the collected errors,
// zero when there are none
func (s *Summary) ExitCode() int {
	if s.Total == 0 {
		return 0
	}

	maxCode := 1
	for _, err := range s.Errors {
		if code := err.ExitCode(); code > maxCode {
			maxCode = code
		}
	}
	return maxCode
}

// As extracts an *Error from an error chain
func As(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// WrapIfNeeded returns err unchanged when it already is an *Error, and
// wraps it otherwise
func WrapIfNeeded(err error, category Category, code Code, message string) *Error {
	if err == nil {
		return nil
	}
	if appErr, ok := As(err); ok {
		return appErr
	}
	return Wrap(err, category, code, message)
}
