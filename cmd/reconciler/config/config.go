// Package config translates CLI flags into component configurations.
package config

import (
	"fmt"

	"expense-reconciliation-service/internal/matcher"
	"expense-reconciliation-service/internal/parsers"
	"expense-reconciliation-service/internal/reporter"
	"expense-reconciliation-service/pkg/logger"
)

// CreateReceiptParserConfig returns the receipt parser configuration with
// aliases for the header names receipt capture apps commonly export
func CreateReceiptParserConfig() *parsers.ReceiptParserConfig {
	cfg := parsers.DefaultReceiptParserConfig()
	cfg.ColumnAliases = map[string]string{
		"receipt_id": "id",
		"vendor":     "merchant",
		"store":      "merchant",
		"total":      "amount",
		"value":      "amount",
		"purchased":  "date",
		"line_items": "items",
		"confidence": "ocr_confidence",
	}
	return cfg
}

// CreateTransactionParserConfig returns the transaction parser configuration
// with aliases for common bank export header names
func CreateTransactionParserConfig() *parsers.TransactionParserConfig {
	cfg := parsers.DefaultTransactionParserConfig()
	cfg.ColumnAliases = map[string]string{
		"transaction_id": "id",
		"txn_id":         "id",
		"account":        "account_id",
		"value":          "amount",
		"posted":         "date",
		"posting_date":   "date",
		"memo":           "description",
		"narrative":      "description",
	}
	return cfg
}

// PreferenceOverrides carries the CLI flag values layered on top of a preset.
// A negative number means the flag was not set.
type PreferenceOverrides struct {
	AmountTolerance   float64
	DateWindowDays    int
	MerchantThreshold float64
	AutoAccept        float64
	RecurrenceBoost   float64
	MaxCandidates     int
}

// CreatePreferences resolves a preset name and applies any flag overrides
func CreatePreferences(preset string, overrides PreferenceOverrides) (*matcher.Preferences, error) {
	var prefs *matcher.Preferences
	switch preset {
	case "", "default":
		prefs = matcher.DefaultPreferences()
	case "strict":
		prefs = matcher.StrictPreferences()
	case "relaxed":
		prefs = matcher.RelaxedPreferences()
	default:
		return nil, fmt.Errorf("unknown preset %q (valid: default, strict, relaxed)", preset)
	}

	if overrides.AmountTolerance >= 0 {
		prefs.AmountTolerance = overrides.AmountTolerance
	}
	if overrides.DateWindowDays >= 0 {
		prefs.DateRangeDays = overrides.DateWindowDays
	}
	if overrides.MerchantThreshold >= 0 {
		prefs.MerchantMatchThreshold = overrides.MerchantThreshold
	}
	if overrides.AutoAccept >= 0 {
		prefs.AutoAcceptThreshold = overrides.AutoAccept
	}
	if overrides.RecurrenceBoost >= 0 {
		prefs.RecurrencePriorBoost = overrides.RecurrenceBoost
	}
	if overrides.MaxCandidates >= 0 {
		prefs.MaxCandidatesPerReceipt = overrides.MaxCandidates
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}
	return prefs, nil
}

// CreateReportConfig builds the report configuration for an output format
func CreateReportConfig(format string) *reporter.ReportConfig {
	cfg := reporter.DefaultReportConfig()
	cfg.Format = reporter.OutputFormat(format)
	return cfg
}

// CreateLoggerConfig builds the logger configuration from the global flags
func CreateLoggerConfig(level, format string, verbose bool) *logger.Config {
	cfg := logger.DefaultConfig()
	if verbose {
		cfg.Level = logger.DebugLevel
	}
	if level != "" {
		cfg.Level = logger.Level(level)
	}
	if format != "" {
		cfg.Format = logger.Format(format)
	}
	return cfg
}
