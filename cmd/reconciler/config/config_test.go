package config

import (
	"testing"

	"expense-reconciliation-service/internal/reporter"
)

// noOverrides leaves every preset value in place
var noOverrides = PreferenceOverrides{
	AmountTolerance:   -1,
	DateWindowDays:    -1,
	MerchantThreshold: -1,
	AutoAccept:        -1,
	RecurrenceBoost:   -1,
	MaxCandidates:     -1,
}

func TestCreatePreferences_Presets(t *testing.T) {
	tests := []struct {
		preset        string
		wantTolerance float64
		wantWindow    int
	}{
		{"default", 0.10, 3},
		{"", 0.10, 3},
		{"strict", 0.02, 1},
		{"relaxed", 0.15, 7},
	}

	for _, tt := range tests {
		t.Run("preset "+tt.preset, func(t *testing.T) {
			prefs, err := CreatePreferences(tt.preset, noOverrides)
			if err != nil {
				t.Fatalf("CreatePreferences(%q) failed: %v", tt.preset, err)
			}
			if prefs.AmountTolerance != tt.wantTolerance {
				t.Errorf("AmountTolerance = %v, want %v", prefs.AmountTolerance, tt.wantTolerance)
			}
			if prefs.DateRangeDays != tt.wantWindow {
				t.Errorf("DateRangeDays = %v, want %v", prefs.DateRangeDays, tt.wantWindow)
			}
		})
	}
}

func TestCreatePreferences_UnknownPreset(t *testing.T) {
	if _, err := CreatePreferences("lenient", noOverrides); err == nil {
		t.Fatal("unknown preset should be rejected")
	}
}

func TestCreatePreferences_Overrides(t *testing.T) {
	overrides := noOverrides
	overrides.AmountTolerance = 0.05
	overrides.DateWindowDays = 2
	overrides.AutoAccept = 0.8

	prefs, err := CreatePreferences("default", overrides)
	if err != nil {
		t.Fatalf("CreatePreferences failed: %v", err)
	}

	if prefs.AmountTolerance != 0.05 {
		t.Errorf("AmountTolerance = %v, want 0.05", prefs.AmountTolerance)
	}
	if prefs.DateRangeDays != 2 {
		t.Errorf("DateRangeDays = %v, want 2", prefs.DateRangeDays)
	}
	if prefs.AutoAcceptThreshold != 0.8 {
		t.Errorf("AutoAcceptThreshold = %v, want 0.8", prefs.AutoAcceptThreshold)
	}

	// Untouched values keep the preset defaults
	if prefs.MerchantMatchThreshold != 0.8 {
		t.Errorf("MerchantMatchThreshold = %v, want preset default 0.8", prefs.MerchantMatchThreshold)
	}
}

func TestCreatePreferences_InvalidOverride(t *testing.T) {
	overrides := noOverrides
	overrides.RecurrenceBoost = 0.9

	if _, err := CreatePreferences("default", overrides); err == nil {
		t.Fatal("out-of-range recurrence boost should be rejected")
	}
}

func TestCreateReportConfig(t *testing.T) {
	cfg := CreateReportConfig("json")
	if cfg.Format != reporter.FormatJSON {
		t.Errorf("Format = %v, want json", cfg.Format)
	}
	if !cfg.IncludeMatched || !cfg.IncludeUnmatched {
		t.Error("default sections should be enabled")
	}
}

func TestCreateParserConfigs(t *testing.T) {
	receiptCfg := CreateReceiptParserConfig()
	if err := receiptCfg.Validate(); err != nil {
		t.Errorf("receipt parser config invalid: %v", err)
	}
	if receiptCfg.ColumnAliases["vendor"] != "merchant" {
		t.Errorf("vendor alias = %q, want merchant", receiptCfg.ColumnAliases["vendor"])
	}

	txnCfg := CreateTransactionParserConfig()
	if err := txnCfg.Validate(); err != nil {
		t.Errorf("transaction parser config invalid: %v", err)
	}
	if txnCfg.ColumnAliases["memo"] != "description" {
		t.Errorf("memo alias = %q, want description", txnCfg.ColumnAliases["memo"])
	}
}
