package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestErrorMessageAndSuggestion(t *testing.T) {
	err := New(CategoryValidation, CodeMissingField, "record R1 is missing a required field")

	if !strings.Contains(err.Error(), "R1") {
		t.Errorf("message lost the record reference: %s", err.Error())
	}

	err.WithSuggestion("provide the merchant field")
	if !strings.Contains(err.Error(), "suggestion: provide the merchant field") {
		t.Errorf("suggestion missing from message: %s", err.Error())
	}
}

func TestExitCodes(t *testing.T) {
	tests := []struct {
		category Category
		want     int
	}{
		{CategoryFile, 2},
		{CategoryParse, 3},
		{CategoryValidation, 3},
		{CategoryConfiguration, 4},
		{CategoryReconciliation, 5},
		{CategoryInternal, 5},
	}

	for _, tt := range tests {
		err := New(tt.category, CodeUnexpectedError, "test")
		if got := err.ExitCode(); got != tt.want {
			t.Errorf("ExitCode(%s) = %d, want %d", tt.category, got, tt.want)
		}
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := fmt.Errorf("underlying failure")
	err := Wrap(cause, CategoryParse, CodeInvalidData, "bad line")

	if !stderrors.Is(err, cause) {
		t.Error("wrapped error should match its cause with errors.Is")
	}
	if len(err.StackTrace) == 0 {
		t.Error("wrapped error should carry a stack trace")
	}

	if Wrap(nil, CategoryParse, CodeInvalidData, "nothing") != nil {
		t.Error("wrapping nil should return nil")
	}
}

func TestConstructorsCarryContext(t *testing.T) {
	fileErr := FileError(CodeFileNotFound, "/tmp/receipts.csv", nil)
	if fileErr.Context["file_path"] != "/tmp/receipts.csv" {
		t.Error("file error should record the path")
	}

	parseErr := ParseError(CodeInvalidData, "txns.csv", 17, "amount", "abc", nil)
	if parseErr.Context["line"] != 17 {
		t.Error("parse error should record the line number")
	}

	valErr := ValidationError(CodeInvalidReceipt, "R42", fmt.Errorf("amount must be positive"))
	if valErr.Context["record_id"] != "R42" {
		t.Error("validation error should record the record ID")
	}
	if valErr.Category != CategoryValidation {
		t.Errorf("category = %s, want validation", valErr.Category)
	}

	cfgErr := ConfigurationError(CodeInvalidPreferences, "weights", nil, nil)
	if cfgErr.ExitCode() != 4 {
		t.Errorf("configuration exit code = %d, want 4", cfgErr.ExitCode())
	}
}

func TestSummary(t *testing.T) {
	errs := []*Error{
		ValidationError(CodeInvalidReceipt, "R1", nil),
		ValidationError(CodeInvalidTransaction, "T9", nil),
		ParseError(CodeInvalidData, "r.csv", 3, "date", "13/45/2024", nil),
	}

	summary := NewSummary(errs)

	if summary.Total != 3 {
		t.Errorf("Total = %d, want 3", summary.Total)
	}
	if summary.ByCategory[CategoryValidation] != 2 {
		t.Errorf("validation count = %d, want 2", summary.ByCategory[CategoryValidation])
	}
	if !summary.HasCategory(CategoryParse) {
		t.Error("summary should report the parse category")
	}
	if summary.HasCategory(CategoryConfiguration) {
		t.Error("summary should not report an absent category")
	}
	if summary.ExitCode() != 3 {
		t.Errorf("ExitCode = %d, want 3", summary.ExitCode())
	}

	empty := NewSummary(nil)
	if empty.ExitCode() != 0 {
		t.Errorf("empty summary exit code = %d, want 0", empty.ExitCode())
	}
	if empty.Error() != "no errors" {
		t.Errorf("empty summary message = %q", empty.Error())
	}
}

func TestAsAndWrapIfNeeded(t *testing.T) {
	original := ValidationError(CodeInvalidDate, "R1", nil)
	wrapped := fmt.Errorf("while loading: %w", original)

	extracted, ok := As(wrapped)
	if !ok || extracted.Code != CodeInvalidDate {
		t.Error("As should find the typed error through the chain")
	}

	// Already-typed errors pass through unchanged
	same := WrapIfNeeded(original, CategoryInternal, CodeUnexpectedError, "x")
	if same != original {
		t.Error("WrapIfNeeded should not rewrap a typed error")
	}

	plain := fmt.Errorf("plain")
	converted := WrapIfNeeded(plain, CategoryInternal, CodeUnexpectedError, "converted")
	if converted.Category != CategoryInternal {
		t.Error("WrapIfNeeded should wrap plain errors")
	}
}
