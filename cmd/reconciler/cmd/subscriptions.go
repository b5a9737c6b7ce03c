package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"expense-reconciliation-service/cmd/reconciler/config"
	"expense-reconciliation-service/internal/parsers"
	"expense-reconciliation-service/internal/reconciler"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flags for the subscriptions command
var (
	subsTransactionsFile string
	subsOutputFormat     string
)

// subscriptionsCmd represents the subscriptions command
var subscriptionsCmd = &cobra.Command{
	Use:   "subscriptions",
	Short: "Detect recurring payment patterns in a transaction export",
	Long: `Subscriptions scans a transaction export for merchants charged on a
regular cadence with a stable amount, and reports each detected pattern
with its frequency and predicted next charge date.

Examples:
  reconciler subscriptions --transactions transactions.csv
  reconciler subscriptions -t transactions.csv --output-format json`,

	PreRunE: validateSubscriptionsFlags,
	RunE:    runSubscriptions,
}

func init() {
	rootCmd.AddCommand(subscriptionsCmd)

	subscriptionsCmd.Flags().StringVarP(&subsTransactionsFile, "transactions", "t", "", "path to transaction CSV file (required)")
	subscriptionsCmd.Flags().StringVarP(&subsOutputFormat, "output-format", "f", "console", "output format: console, json")

	subscriptionsCmd.MarkFlagRequired("transactions")
}

func validateSubscriptionsFlags(cmd *cobra.Command, args []string) error {
	if subsTransactionsFile == "" {
		return fmt.Errorf("transactions file is required")
	}
	if err := validateFileExists(subsTransactionsFile, "transaction file"); err != nil {
		return err
	}
	if subsOutputFormat != "console" && subsOutputFormat != "json" {
		return fmt.Errorf("invalid output format '%s'. Valid formats: console, json", subsOutputFormat)
	}
	return nil
}

func runSubscriptions(cmd *cobra.Command, args []string) error {
	parser, err := parsers.NewTransactionParser(config.CreateTransactionParserConfig())
	if err != nil {
		return err
	}

	transactions, stats, err := parser.ParseFile(subsTransactionsFile)
	if err != nil {
		return err
	}
	reportParseErrors("transaction", stats)

	service := reconciler.NewService()
	subscriptions := service.DetectSubscriptions(transactions)

	if subsOutputFormat == "json" {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(subscriptions)
	}

	if len(subscriptions) == 0 {
		fmt.Println("No recurring payment patterns detected.")
		return nil
	}

	fmt.Printf("DETECTED SUBSCRIPTIONS (%d)\n\n", len(subscriptions))
	for _, sub := range subscriptions {
		fmt.Printf("  %-30s %-8s %10s  next charge %s (%d observations)\n",
			sub.Merchant, sub.Pattern.Frequency,
			sub.Pattern.Amount.StringFixed(2),
			sub.Pattern.NextPaymentDate.Format("2006-01-02"),
			sub.Pattern.Observations)
	}

	if viper.GetBool("verbose") {
		fmt.Fprintf(os.Stderr, "\nScanned %d transactions.\n", len(transactions))
	}

	return nil
}
