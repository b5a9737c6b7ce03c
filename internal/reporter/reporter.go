// Package reporter renders reconciliation results for people and pipelines.
//
// Supported output formats:
//   - Console: human-readable sections for terminal review
//   - JSON: the full result for programmatic consumption
//   - CSV: one row per receipt outcome, for spreadsheets
package reporter

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"time"

	"expense-reconciliation-service/internal/matcher"
	"expense-reconciliation-service/internal/reconciler"
)

// OutputFormat selects how a result is rendered
type OutputFormat string

const (
	FormatConsole OutputFormat = "console"
	FormatJSON    OutputFormat = "json"
	FormatCSV     OutputFormat = "csv"
)

// IsValid checks if the output format is supported
func (f OutputFormat) IsValid() bool {
	switch f {
	case FormatConsole, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// ReportConfig holds report generation options
type ReportConfig struct {
	Format OutputFormat `json:"format"`

	// Section toggles for the console report
	IncludeMatched   bool `json:"include_matched"`
	IncludeReview    bool `json:"include_review"`
	IncludeUnmatched bool `json:"include_unmatched"`
	IncludeErrors    bool `json:"include_errors"`

	// CSV options
	CSVDelimiter rune `json:"csv_delimiter"`
	CSVHeaders   bool `json:"csv_headers"`
}

// DefaultReportConfig returns the standard configuration: a console report
// with every section included
func DefaultReportConfig() *ReportConfig {
	return &ReportConfig{
		Format:           FormatConsole,
		IncludeMatched:   true,
		IncludeReview:    true,
		IncludeUnmatched: true,
		IncludeErrors:    true,
		CSVDelimiter:     ',',
		CSVHeaders:       true,
	}
}

// Validate checks the report configuration
func (c *ReportConfig) Validate() error {
	if !c.Format.IsValid() {
		return fmt.Errorf("invalid output format: %s", c.Format)
	}
	return nil
}

// ReportGenerator renders reconciliation results
type ReportGenerator struct {
	config *ReportConfig
}

// NewReportGenerator creates a generator. A nil config selects the defaults.
func NewReportGenerator(config *ReportConfig) (*ReportGenerator, error) {
	if config == nil {
		config = DefaultReportConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid report configuration: %w", err)
	}

	return &ReportGenerator{config: config}, nil
}

// GenerateReport renders the result to the writer in the configured format
func (rg *ReportGenerator) GenerateReport(result *reconciler.Result, writer io.Writer) error {
	if result == nil {
		return fmt.Errorf("reconciliation result cannot be nil")
	}

	switch rg.config.Format {
	case FormatConsole:
		return rg.generateConsoleReport(result, writer)
	case FormatJSON:
		return rg.generateJSONReport(result, writer)
	case FormatCSV:
		return rg.generateCSVReport(result, writer)
	default:
		return fmt.Errorf("unsupported output format: %s", rg.config.Format)
	}
}

func (rg *ReportGenerator) generateConsoleReport(result *reconciler.Result, writer io.Writer) error {
	fmt.Fprintf(writer, "RECONCILIATION REPORT\n")
	fmt.Fprintf(writer, "Run: %s\n", result.RunID)
	fmt.Fprintf(writer, "Started: %s (took %v)\n\n",
		result.Summary.StartedAt.Format(time.RFC3339), result.Summary.Duration.Round(time.Millisecond))

	fmt.Fprintf(writer, "=== SUMMARY ===\n")
	fmt.Fprintf(writer, "Receipts:      %d (skipped %d already matched)\n",
		result.Summary.TotalReceipts, result.Summary.SkippedReceipts)
	fmt.Fprintf(writer, "Transactions:  %d\n", result.Summary.TotalTransactions)
	fmt.Fprintf(writer, "Matched:       %d\n", result.Summary.MatchedCount)
	fmt.Fprintf(writer, "For review:    %d\n", result.Summary.ReviewCount)
	fmt.Fprintf(writer, "Unmatched:     %d\n", result.Summary.UnmatchedCount)
	fmt.Fprintf(writer, "Errors:        %d\n", result.Summary.ErrorCount)
	fmt.Fprintf(writer, "Match rate:    %.1f%%\n\n", result.Summary.MatchRate*100)

	if rg.config.IncludeMatched && len(result.Matched) > 0 {
		fmt.Fprintf(writer, "=== MATCHED (%d) ===\n", len(result.Matched))
		for _, match := range result.Matched {
			rg.printMatch(writer, match)
		}
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeReview && len(result.Review) > 0 {
		fmt.Fprintf(writer, "=== NEEDS REVIEW (%d) ===\n", len(result.Review))
		for _, match := range result.Review {
			rg.printMatch(writer, match)
		}
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeUnmatched && len(result.Unmatched) > 0 {
		fmt.Fprintf(writer, "=== UNMATCHED (%d) ===\n", len(result.Unmatched))
		for _, receipt := range result.Unmatched {
			fmt.Fprintf(writer, "  %s  %-24s %10s  %s\n",
				receipt.ID, receipt.Merchant, receipt.Amount.StringFixed(2),
				receipt.Date.Format("2006-01-02"))
		}
		fmt.Fprintln(writer)
	}

	if len(result.Duplicates) > 0 {
		fmt.Fprintf(writer, "=== DUPLICATE CAPTURES (%d groups) ===\n", len(result.Duplicates))
		for _, group := range result.Duplicates {
			fmt.Fprintf(writer, "  group %s: kept %s, held %d (%s)\n",
				group.GroupID, group.Primary.ID, len(group.Discarded), group.Reason)
		}
		fmt.Fprintln(writer)
	}

	if rg.config.IncludeErrors && len(result.Errors) > 0 {
		fmt.Fprintf(writer, "=== RECORD ERRORS (%d) ===\n", len(result.Errors))
		for _, recErr := range result.Errors {
			fmt.Fprintf(writer, "  [%s/%s] %s\n", recErr.Category, recErr.Code, recErr.Message)
		}
		fmt.Fprintln(writer)
	}

	return nil
}

func (rg *ReportGenerator) printMatch(writer io.Writer, match *matcher.Match) {
	fmt.Fprintf(writer, "  %s -> %s  %-24s %10s  conf %.3f (gap %dd)\n",
		match.Receipt.ID, match.Transaction.ID,
		match.Receipt.Merchant, match.Receipt.Amount.StringFixed(2),
		match.Confidence, match.DateGapDays)
}

func (rg *ReportGenerator) generateJSONReport(result *reconciler.Result, writer io.Writer) error {
	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(result)
}

// generateCSVReport writes one row per receipt outcome
func (rg *ReportGenerator) generateCSVReport(result *reconciler.Result, writer io.Writer) error {
	csvWriter := csv.NewWriter(writer)
	csvWriter.Comma = rg.config.CSVDelimiter
	defer csvWriter.Flush()

	if rg.config.CSVHeaders {
		header := []string{"receipt_id", "merchant", "amount", "date", "outcome", "transaction_id", "confidence"}
		if err := csvWriter.Write(header); err != nil {
			return err
		}
	}

	writeMatch := func(match *matcher.Match, outcome string) error {
		return csvWriter.Write([]string{
			match.Receipt.ID,
			match.Receipt.Merchant,
			match.Receipt.Amount.StringFixed(2),
			match.Receipt.Date.Format("2006-01-02"),
			outcome,
			match.Transaction.ID,
			strconv.FormatFloat(match.Confidence, 'f', 3, 64),
		})
	}

	for _, match := range result.Matched {
		if err := writeMatch(match, "matched"); err != nil {
			return err
		}
	}
	for _, match := range result.Review {
		if err := writeMatch(match, "review"); err != nil {
			return err
		}
	}
	for _, receipt := range result.Unmatched {
		row := []string{
			receipt.ID,
			receipt.Merchant,
			receipt.Amount.StringFixed(2),
			receipt.Date.Format("2006-01-02"),
			"unmatched",
			"",
			"",
		}
		if err := csvWriter.Write(row); err != nil {
			return err
		}
	}

	csvWriter.Flush()
	return csvWriter.Error()
}
