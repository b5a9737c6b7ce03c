package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"expense-reconciliation-service/cmd/reconciler/config"
	"expense-reconciliation-service/internal/parsers"
	"expense-reconciliation-service/internal/reconciler"
	"expense-reconciliation-service/internal/reporter"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the reconcile command
var (
	receiptsFile     string
	transactionsFile string
	preset           string
	outputFormat     string
	outputFile       string

	// Matching overrides; negative means "keep the preset value"
	amountTolerance   float64
	dateWindowDays    int
	merchantThreshold float64
	autoAccept        float64
	recurrenceBoost   float64
	maxCandidates     int
)

// reconcileCmd represents the reconcile command
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Match receipts against bank transactions",
	Long: `Reconcile matches a batch of captured receipts against bank and card
transactions. Confident matches are accepted automatically; borderline
candidates are listed for review; the rest are reported unmatched.

This command requires:
- A receipt file (CSV format)
- A transaction file (CSV format)

Examples:
  # Basic reconciliation
  reconciler reconcile --receipts receipts.csv --transactions transactions.csv

  # Stricter matching with a JSON report
  reconciler reconcile -r receipts.csv -t txns.csv --preset strict \
    --output-format json --output-file report.json

  # Custom tolerances on top of the default preset
  reconciler reconcile -r receipts.csv -t txns.csv \
    --amount-tolerance 0.05 --date-window 2 --auto-accept 0.8`,

	PreRunE: validateReconcileFlags,
	RunE:    runReconcile,
}

func init() {
	rootCmd.AddCommand(reconcileCmd)

	// Required flags
	reconcileCmd.Flags().StringVarP(&receiptsFile, "receipts", "r", "", "path to receipt CSV file (required)")
	reconcileCmd.Flags().StringVarP(&transactionsFile, "transactions", "t", "", "path to transaction CSV file (required)")

	// Output flags
	reconcileCmd.Flags().StringVarP(&outputFormat, "output-format", "f", "console", "output format: console, json, csv")
	reconcileCmd.Flags().StringVarP(&outputFile, "output-file", "o", "", "output file path (default: stdout)")

	// Matching configuration flags
	reconcileCmd.Flags().StringVar(&preset, "preset", "default", "matching preset: default, strict, relaxed")
	reconcileCmd.Flags().Float64VarP(&amountTolerance, "amount-tolerance", "a", -1, "amount tolerance as a fraction (e.g. 0.10)")
	reconcileCmd.Flags().IntVarP(&dateWindowDays, "date-window", "d", -1, "date matching window in days")
	reconcileCmd.Flags().Float64Var(&merchantThreshold, "merchant-threshold", -1, "minimum merchant similarity (0.0-1.0)")
	reconcileCmd.Flags().Float64Var(&autoAccept, "auto-accept", -1, "auto-accept confidence threshold (0.0-1.0)")
	reconcileCmd.Flags().Float64Var(&recurrenceBoost, "recurrence-boost", -1, "confidence boost for expected subscription charges (0.0-0.2)")
	reconcileCmd.Flags().IntVar(&maxCandidates, "max-candidates", -1, "candidate transactions considered per receipt")

	// Mark required flags
	reconcileCmd.MarkFlagRequired("receipts")
	reconcileCmd.MarkFlagRequired("transactions")

	// Bind flags to viper
	viper.BindPFlag("receipts", reconcileCmd.Flags().Lookup("receipts"))
	viper.BindPFlag("transactions", reconcileCmd.Flags().Lookup("transactions"))
	viper.BindPFlag("output-format", reconcileCmd.Flags().Lookup("output-format"))
	viper.BindPFlag("output-file", reconcileCmd.Flags().Lookup("output-file"))
	viper.BindPFlag("preset", reconcileCmd.Flags().Lookup("preset"))
	viper.BindPFlag("amount-tolerance", reconcileCmd.Flags().Lookup("amount-tolerance"))
	viper.BindPFlag("date-window", reconcileCmd.Flags().Lookup("date-window"))
	viper.BindPFlag("merchant-threshold", reconcileCmd.Flags().Lookup("merchant-threshold"))
	viper.BindPFlag("auto-accept", reconcileCmd.Flags().Lookup("auto-accept"))
	viper.BindPFlag("recurrence-boost", reconcileCmd.Flags().Lookup("recurrence-boost"))
	viper.BindPFlag("max-candidates", reconcileCmd.Flags().Lookup("max-candidates"))
}

func validateReconcileFlags(cmd *cobra.Command, args []string) error {
	// Get values from viper (allows override from config file)
	receiptsFile = viper.GetString("receipts")
	transactionsFile = viper.GetString("transactions")
	outputFormat = viper.GetString("output-format")
	outputFile = viper.GetString("output-file")
	preset = viper.GetString("preset")

	// Validate required flags
	if receiptsFile == "" {
		return fmt.Errorf("receipts file is required")
	}
	if transactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}

	if err := validateFileExists(receiptsFile, "receipt file"); err != nil {
		return err
	}
	if err := validateFileExists(transactionsFile, "transaction file"); err != nil {
		return err
	}

	// Validate output format
	if !reporter.OutputFormat(outputFormat).IsValid() {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json, csv", outputFormat)
	}

	// Validate output file directory exists if specified
	if outputFile != "" {
		dir := filepath.Dir(outputFile)
		if dir != "." {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				return fmt.Errorf("output directory does not exist: %s", dir)
			}
		}
	}

	return nil
}

func validateFileExists(filePath, description string) error {
	if filePath == "" {
		return fmt.Errorf("%s path cannot be empty", description)
	}

	info, err := os.Stat(filePath)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s does not exist: %s", description, filePath)
	}
	if err != nil {
		return fmt.Errorf("error accessing %s: %w", description, err)
	}

	if info.IsDir() {
		return fmt.Errorf("%s is a directory, expected a file: %s", description, filePath)
	}

	file, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("%s is not readable: %w", description, err)
	}
	file.Close()

	return nil
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Starting reconciliation...\n")
		fmt.Fprintf(os.Stderr, "Receipt file: %s\n", receiptsFile)
		fmt.Fprintf(os.Stderr, "Transaction file: %s\n", transactionsFile)
		fmt.Fprintf(os.Stderr, "Preset: %s\n", preset)
		fmt.Fprintf(os.Stderr, "Output format: %s\n", outputFormat)
		if outputFile != "" {
			fmt.Fprintf(os.Stderr, "Output file: %s\n", outputFile)
		}
	}

	prefs, err := config.CreatePreferences(preset, config.PreferenceOverrides{
		AmountTolerance:   amountTolerance,
		DateWindowDays:    dateWindowDays,
		MerchantThreshold: merchantThreshold,
		AutoAccept:        autoAccept,
		RecurrenceBoost:   recurrenceBoost,
		MaxCandidates:     maxCandidates,
	})
	if err != nil {
		return fmt.Errorf("invalid matching preferences: %w", err)
	}

	receiptParser, err := parsers.NewReceiptParser(config.CreateReceiptParserConfig())
	if err != nil {
		return err
	}
	transactionParser, err := parsers.NewTransactionParser(config.CreateTransactionParserConfig())
	if err != nil {
		return err
	}

	receipts, receiptStats, err := receiptParser.ParseFile(receiptsFile)
	if err != nil {
		return err
	}
	transactions, transactionStats, err := transactionParser.ParseFile(transactionsFile)
	if err != nil {
		return err
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "Parsed receipts: %s\n", receiptStats)
		fmt.Fprintf(os.Stderr, "Parsed transactions: %s\n", transactionStats)
	}
	reportParseErrors("receipt", receiptStats)
	reportParseErrors("transaction", transactionStats)

	service := reconciler.NewService()
	result, err := service.Reconcile(ctx, receipts, transactions, prefs)
	if err != nil {
		return err
	}

	reportGenerator, err := reporter.NewReportGenerator(config.CreateReportConfig(outputFormat))
	if err != nil {
		return err
	}

	var output *os.File
	if outputFile != "" {
		output, err = os.Create(outputFile)
		if err != nil {
			return fmt.Errorf("failed to create output file: %w", err)
		}
		defer output.Close()
	} else {
		output = os.Stdout
	}

	if err := reportGenerator.GenerateReport(result, output); err != nil {
		return fmt.Errorf("failed to generate report: %w", err)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nReconciliation completed in %v.\n",
			result.Summary.Duration.Round(time.Millisecond))
		fmt.Fprintf(os.Stderr, "Matched %d, review %d, unmatched %d (match rate %.1f%%).\n",
			result.Summary.MatchedCount, result.Summary.ReviewCount,
			result.Summary.UnmatchedCount, result.Summary.MatchRate*100)
	}

	return nil
}

// reportParseErrors lists skipped lines on stderr so the run result stays clean
func reportParseErrors(kind string, stats *parsers.ParseStats) {
	if stats == nil || !stats.HasErrors() {
		return
	}
	fmt.Fprintf(os.Stderr, "Skipped %d malformed %s line(s):\n", stats.ErrorCount, kind)
	for _, parseErr := range stats.Errors {
		fmt.Fprintf(os.Stderr, "  line %d: %s\n", parseErr.Line, parseErr.Message)
	}
}
