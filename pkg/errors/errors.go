package errors

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// ErrorCategory represents different categories of errors
type ErrorCategory string

const (
	CategoryFile           ErrorCategory = "file"
	CategoryParse          ErrorCategory = "parse"
	CategorySchema         ErrorCategory = "schema"
	CategoryConfiguration  ErrorCategory = "configuration"
	CategoryReconciliation ErrorCategory = "reconciliation"
	CategoryStorage        ErrorCategory = "storage"
	CategoryInternal       ErrorCategory = "internal"
)

// ErrorCode represents specific error codes within categories
type ErrorCode string

const (
	// File errors
	CodeFileNotFound   ErrorCode = "file_not_found"
	CodeFilePermission ErrorCode = "file_permission"
	CodeFileCorrupted  ErrorCode = "file_corrupted"
	CodeWriteFailed    ErrorCode = "write_failed"

	// Parse errors
	CodeUnsupportedFormat ErrorCode = "unsupported_format"
	CodeSheetNotFound     ErrorCode = "sheet_not_found"
	CodeHeaderNotFound    ErrorCode = "header_not_found"
	CodeEncodingError     ErrorCode = "encoding_error"
	CodeNonNumericCell    ErrorCode = "non_numeric_cell"

	// Schema errors
	CodeMissingColumn  ErrorCode = "missing_column"
	CodeColumnCount    ErrorCode = "column_count"
	CodeDuplicateMatch ErrorCode = "duplicate_column"

	// Configuration errors
	CodeInvalidConfig  ErrorCode = "invalid_config"
	CodeMissingConfig  ErrorCode = "missing_config"
	CodeConfigConflict ErrorCode = "config_conflict"

	// Reconciliation errors
	CodeGroupingFailed  ErrorCode = "grouping_failed"
	CodeProcessingError ErrorCode = "processing_error"
	CodeCancelled       ErrorCode = "cancelled"

	// Storage errors
	CodeConnectionFailed ErrorCode = "connection_failed"
	CodeQueryFailed      ErrorCode = "query_failed"
	CodeRecordNotFound   ErrorCode = "record_not_found"

	// Internal errors
	CodeUnexpectedError ErrorCode = "unexpected_error"
)

// ReconcilerError is the base error type for all application errors
type ReconcilerError struct {
	Category   ErrorCategory     `json:"category"`
	Code       ErrorCode         `json:"code"`
	Message    string            `json:"message"`
	Suggestion string            `json:"suggestion,omitempty"`
	Context    Context           `json:"context,omitempty"`
	Cause      error             `json:"-"`
	StackTrace errors.StackTrace `json:"-"`
}

// Context provides additional information about the error
type Context map[string]interface{}

// Error implements the error interface
func (e *ReconcilerError) Error() string {
	if e.Suggestion != "" {
		return fmt.Sprintf("%s (suggestion: %s)", e.Message, e.Suggestion)
	}
	return e.Message
}

// Unwrap returns the underlying cause error
func (e *ReconcilerError) Unwrap() error {
	return e.Cause
}

// GetExitCode returns an appropriate exit code for the error
func (e *ReconcilerError) GetExitCode() int {
	switch e.Category {
	case CategoryFile:
		return 2
	case CategoryParse, CategorySchema:
		return 3
	case CategoryConfiguration:
		return 4
	case CategoryReconciliation, CategoryStorage, CategoryInternal:
		return 5
	default:
		return 1
	}
}

// WithContext adds context information to the error
func (e *ReconcilerError) WithContext(key string, value interface{}) *ReconcilerError {
	if e.Context == nil {
		e.Context = make(Context)
	}
	e.Context[key] = value
	return e
}

// WithSuggestion adds a suggestion for fixing the error
func (e *ReconcilerError) WithSuggestion(suggestion string) *ReconcilerError {
	e.Suggestion = suggestion
	return e
}

// New creates a new ReconcilerError
func New(category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		StackTrace: errors.New("").(stackTracer).StackTrace(),
	}
}

// Wrap wraps an existing error with ReconcilerError context
func Wrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	return &ReconcilerError{
		Category:   category,
		Code:       code,
		Message:    message,
		Cause:      err,
		StackTrace: errors.WithStack(err).(stackTracer).StackTrace(),
	}
}

type stackTracer interface {
	StackTrace() errors.StackTrace
}

// newOrWrap builds the error with or without a cause.
func newOrWrap(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err != nil {
		return Wrap(err, category, code, message)
	}
	return New(category, code, message)
}

// FileError creates a file-related error
func FileError(code ErrorCode, path string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeFileNotFound:
		message = fmt.Sprintf("file not found: %s", path)
		suggestion = "check the path or pass the file explicitly with the matching --*-file flag"
	case CodeFilePermission:
		message = fmt.Sprintf("permission denied accessing file: %s", path)
		suggestion = "check file permissions and ensure you have read access"
	case CodeFileCorrupted:
		message = fmt.Sprintf("file could not be read as a spreadsheet: %s", path)
		suggestion = "open the file in a spreadsheet application and save it again as .xlsx"
	case CodeWriteFailed:
		message = fmt.Sprintf("failed to write output file: %s", path)
		suggestion = "close the workbook if it is open in another application and check the directory is writable"
	default:
		message = fmt.Sprintf("file error: %s", path)
		suggestion = "check the file and try again"
	}

	return newOrWrap(err, CategoryFile, code, message).
		WithSuggestion(suggestion).
		WithContext("file_path", path)
}

// ParseError creates an error for spreadsheet content that cannot be read
func ParseError(code ErrorCode, file string, detail string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeUnsupportedFormat:
		message = fmt.Sprintf("unsupported input format in %s: %s", file, detail)
		suggestion = "provide an .xlsx, .xls or .csv file"
	case CodeSheetNotFound:
		message = fmt.Sprintf("sheet %q not found in %s", detail, file)
		suggestion = "check the configured sheet name or leave it empty to read the first sheet"
	case CodeHeaderNotFound:
		message = fmt.Sprintf("header row not found in %s: %s", file, detail)
		suggestion = "check the configured header row for this input"
	case CodeEncodingError:
		message = fmt.Sprintf("encoding error in %s: %s", file, detail)
		suggestion = "set --csv-encoding to match the file (utf-8 or windows-1252)"
	default:
		message = fmt.Sprintf("parse error in %s: %s", file, detail)
		suggestion = "check the file format and data integrity"
	}

	return newOrWrap(err, CategoryParse, code, message).
		WithSuggestion(suggestion).
		WithContext("file", file)
}

// SchemaError creates an error for an input whose columns do not match the expected layout
func SchemaError(code ErrorCode, input string, expected, found []string) *ReconcilerError {
	var message string

	switch code {
	case CodeMissingColumn:
		missing := missingColumns(expected, found)
		message = fmt.Sprintf("%s is missing required columns: %s", input, strings.Join(missing, ", "))
	case CodeColumnCount:
		message = fmt.Sprintf("%s has %d columns, expected %d", input, len(found), len(expected))
	case CodeDuplicateMatch:
		message = fmt.Sprintf("%s has more than one column matching: %s", input, strings.Join(expected, ", "))
	default:
		message = fmt.Sprintf("%s does not match the expected layout", input)
	}

	return New(CategorySchema, code, message).
		WithSuggestion("check the header row setting and that the export layout has not changed").
		WithContext("input", input).
		WithContext("expected", strings.Join(expected, " | ")).
		WithContext("found", strings.Join(found, " | "))
}

func missingColumns(expected, found []string) []string {
	have := make(map[string]bool, len(found))
	for _, f := range found {
		have[strings.ToLower(strings.TrimSpace(f))] = true
	}
	var missing []string
	for _, e := range expected {
		if !have[strings.ToLower(strings.TrimSpace(e))] {
			missing = append(missing, e)
		}
	}
	return missing
}

// ConfigurationError creates a configuration-related error
func ConfigurationError(code ErrorCode, setting string, value interface{}, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeInvalidConfig:
		message = fmt.Sprintf("invalid configuration for '%s': %v", setting, value)
		suggestion = "run 'checksync reconcile --help' for valid values"
	case CodeMissingConfig:
		message = fmt.Sprintf("missing required configuration: %s", setting)
		suggestion = "provide this setting as a flag, in the config file or as a CHECKSYNC_ environment variable"
	case CodeConfigConflict:
		message = fmt.Sprintf("configuration conflict with setting '%s': %v", setting, value)
		suggestion = "resolve the conflicting settings or use default values"
	default:
		message = fmt.Sprintf("configuration error: %s", setting)
		suggestion = "check your configuration and try again"
	}

	return newOrWrap(err, CategoryConfiguration, code, message).
		WithSuggestion(suggestion).
		WithContext("setting", setting).
		WithContext("value", value)
}

// ReconciliationError creates a reconciliation-related error
func ReconciliationError(code ErrorCode, stage string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeGroupingFailed:
		message = fmt.Sprintf("grouping failed during %s", stage)
		suggestion = "check the key columns for unusual values"
	case CodeCancelled:
		message = fmt.Sprintf("reconciliation cancelled during %s", stage)
		suggestion = "run the command again; no output was written"
	case CodeProcessingError:
		message = fmt.Sprintf("processing error during %s", stage)
		suggestion = "check the input data and try again"
	default:
		message = fmt.Sprintf("reconciliation error during %s", stage)
		suggestion = "review the data and configuration"
	}

	return newOrWrap(err, CategoryReconciliation, code, message).
		WithSuggestion(suggestion).
		WithContext("stage", stage)
}

// StorageError creates an error for the run history database
func StorageError(code ErrorCode, operation string, err error) *ReconcilerError {
	var message string
	var suggestion string

	switch code {
	case CodeConnectionFailed:
		message = fmt.Sprintf("cannot open history database during %s", operation)
		suggestion = "check --history-db and --history-driver"
	case CodeQueryFailed:
		message = fmt.Sprintf("history query failed during %s", operation)
		suggestion = "check the database is reachable and writable"
	case CodeRecordNotFound:
		message = fmt.Sprintf("run not found during %s", operation)
		suggestion = "list runs with 'checksync runs'"
	default:
		message = fmt.Sprintf("storage error during %s", operation)
		suggestion = "check the history database configuration"
	}

	return newOrWrap(err, CategoryStorage, code, message).
		WithSuggestion(suggestion).
		WithContext("operation", operation)
}

// InternalError creates an internal error
func InternalError(code ErrorCode, operation string, err error) *ReconcilerError {
	return newOrWrap(err, CategoryInternal, code, fmt.Sprintf("unexpected error during %s", operation)).
		WithSuggestion("this is likely a bug - please report it with the error details").
		WithContext("operation", operation)
}

// AsReconcilerError extracts a ReconcilerError from an error chain
func AsReconcilerError(err error) (*ReconcilerError, bool) {
	var reconcilerErr *ReconcilerError
	if errors.As(err, &reconcilerErr) {
		return reconcilerErr, true
	}
	return nil, false
}

// IsCategory reports whether err carries a ReconcilerError of the given category
func IsCategory(err error, category ErrorCategory) bool {
	re, ok := AsReconcilerError(err)
	return ok && re.Category == category
}

// WrapIfNeeded wraps an error if it's not already a ReconcilerError
func WrapIfNeeded(err error, category ErrorCategory, code ErrorCode, message string) *ReconcilerError {
	if err == nil {
		return nil
	}

	if reconcilerErr, ok := AsReconcilerError(err); ok {
		return reconcilerErr
	}

	return Wrap(err, category, code, message)
}
