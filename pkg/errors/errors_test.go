package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestReconcilerError(t *testing.T) {
	tests := []struct {
		name       string
		category   ErrorCategory
		code       ErrorCode
		message    string
		cause      error
		expectCode int
	}{
		{
			name:       "file error",
			category:   CategoryFile,
			code:       CodeFileNotFound,
			message:    "file not found",
			cause:      errors.New("no such file"),
			expectCode: 2,
		},
		{
			name:       "schema error",
			category:   CategorySchema,
			code:       CodeMissingColumn,
			message:    "missing column",
			cause:      nil,
			expectCode: 3,
		},
		{
			name:       "configuration error",
			category:   CategoryConfiguration,
			code:       CodeInvalidConfig,
			message:    "invalid config",
			cause:      errors.New("bad rounding"),
			expectCode: 4,
		},
		{
			name:       "storage error",
			category:   CategoryStorage,
			code:       CodeQueryFailed,
			message:    "query failed",
			cause:      errors.New("locked"),
			expectCode: 5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var err *ReconcilerError
			if tt.cause != nil {
				err = Wrap(tt.cause, tt.category, tt.code, tt.message)
			} else {
				err = New(tt.category, tt.code, tt.message)
			}

			if err.Category != tt.category {
				t.Errorf("expected category %s, got %s", tt.category, err.Category)
			}
			if err.Code != tt.code {
				t.Errorf("expected code %s, got %s", tt.code, err.Code)
			}
			if err.GetExitCode() != tt.expectCode {
				t.Errorf("expected exit code %d, got %d", tt.expectCode, err.GetExitCode())
			}
			if err.Error() != tt.message {
				t.Errorf("expected error string %s, got %s", tt.message, err.Error())
			}
			if tt.cause != nil && err.Unwrap() != tt.cause {
				t.Errorf("expected to unwrap to %v, got %v", tt.cause, err.Unwrap())
			}
			if len(err.StackTrace) == 0 {
				t.Error("expected a captured stack trace")
			}
		})
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("expected Wrap(nil) to return nil")
	}
	if WrapIfNeeded(nil, CategoryFile, CodeFileNotFound, "x") != nil {
		t.Error("expected WrapIfNeeded(nil) to return nil")
	}
}

func TestFileError(t *testing.T) {
	cause := errors.New("open WMS.xlsx: no such file or directory")
	err := FileError(CodeFileNotFound, "WMS.xlsx", cause)

	if err.Category != CategoryFile {
		t.Errorf("expected file category, got %s", err.Category)
	}
	if !strings.Contains(err.Message, "WMS.xlsx") {
		t.Errorf("expected message to name the file, got %q", err.Message)
	}
	if err.Suggestion == "" {
		t.Error("expected a suggestion")
	}
	if err.Context["file_path"] != "WMS.xlsx" {
		t.Errorf("expected file_path context, got %v", err.Context["file_path"])
	}
	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to reach the cause")
	}
}

func TestSchemaError(t *testing.T) {
	expected := []string{"Material", "Block Stock", "PO MPE"}
	found := []string{"material", "Plant", "Block Stock"}

	err := SchemaError(CodeMissingColumn, "SAP.xlsx", expected, found)

	if err.Category != CategorySchema {
		t.Errorf("expected schema category, got %s", err.Category)
	}
	if !strings.Contains(err.Message, "PO MPE") {
		t.Errorf("expected missing column in message, got %q", err.Message)
	}
	if strings.Contains(err.Message, "Material") {
		t.Errorf("case-insensitive match should not report Material as missing: %q", err.Message)
	}

	countErr := SchemaError(CodeColumnCount, "036.xls", make([]string, 11), make([]string, 9))
	if !strings.Contains(countErr.Message, "has 9 columns, expected 11") {
		t.Errorf("unexpected column count message: %q", countErr.Message)
	}
}

func TestAsReconcilerError(t *testing.T) {
	base := ReconciliationError(CodeCancelled, "load", errors.New("context canceled"))
	wrapped := fmt.Errorf("run failed: %w", base)

	got, ok := AsReconcilerError(wrapped)
	if !ok {
		t.Fatal("expected to extract ReconcilerError from chain")
	}
	if got != base {
		t.Error("expected the original error")
	}
	if !IsCategory(wrapped, CategoryReconciliation) {
		t.Error("expected IsCategory to match")
	}
	if IsCategory(errors.New("plain"), CategoryReconciliation) {
		t.Error("plain error should not match a category")
	}

	same := WrapIfNeeded(wrapped, CategoryInternal, CodeUnexpectedError, "x")
	if same != base {
		t.Error("WrapIfNeeded should return the existing ReconcilerError")
	}
}
