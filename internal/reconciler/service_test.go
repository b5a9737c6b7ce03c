package reconciler

import (
	"context"
	"fmt"
	"testing"
	"time"

	"expense-reconciliation-service/internal/matcher"
	"expense-reconciliation-service/internal/models"
	apperrors "expense-reconciliation-service/pkg/errors"

	"github.com/shopspring/decimal"
)

func receipt(id, merchant string, amount float64, date time.Time) *models.ReceiptRecord {
	return models.NewReceiptRecord(id, merchant, decimal.NewFromFloat(amount), date)
}

func transaction(id string, amount float64, date time.Time, description string) *models.TransactionRecord {
	return models.NewTransactionRecord(id, "ACC1", decimal.NewFromFloat(amount), date, description)
}

func TestReconcile_FullRun(t *testing.T) {
	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	receipts := []*models.ReceiptRecord{
		receipt("R1", "STARBUCKS #123", 8.75, day),
		receipt("R2", "DELTA AIR LINES", 450.00, day),
	}
	transactions := []*models.TransactionRecord{
		transaction("T1", -8.75, day.AddDate(0, 0, 1), "SQ *STARBUCKS"),
		transaction("T2", -62.10, day, "SHELL OIL"),
	}

	service := NewService()
	result, err := service.Reconcile(context.Background(), receipts, transactions, matcher.DefaultPreferences())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if result.RunID == "" {
		t.Error("run should carry an ID")
	}
	if len(result.Matched) != 1 {
		t.Fatalf("matched = %d, want 1", len(result.Matched))
	}
	if result.Matched[0].Receipt.ID != "R1" || result.Matched[0].Transaction.ID != "T1" {
		t.Errorf("unexpected match %s->%s", result.Matched[0].Receipt.ID, result.Matched[0].Transaction.ID)
	}
	if len(result.Unmatched) != 1 || result.Unmatched[0].ID != "R2" {
		t.Errorf("unmatched = %v, want R2", result.Unmatched)
	}

	summary := result.Summary
	if summary.TotalReceipts != 2 || summary.TotalTransactions != 2 {
		t.Errorf("totals = %d/%d, want 2/2", summary.TotalReceipts, summary.TotalTransactions)
	}
	if summary.MatchedCount != 1 || summary.UnmatchedCount != 1 {
		t.Errorf("counts = matched %d unmatched %d, want 1/1", summary.MatchedCount, summary.UnmatchedCount)
	}
	if summary.MatchRate != 0.5 {
		t.Errorf("MatchRate = %f, want 0.5", summary.MatchRate)
	}
}

func TestReconcile_InvalidPreferencesFailFast(t *testing.T) {
	prefs := matcher.DefaultPreferences()
	prefs.Weights = matcher.Weights{}

	service := NewService()
	_, err := service.Reconcile(context.Background(), nil, nil, prefs)
	if err == nil {
		t.Fatal("invalid preferences must abort the run")
	}

	appErr, ok := apperrors.As(err)
	if !ok {
		t.Fatalf("expected a typed error, got %T", err)
	}
	if appErr.Category != apperrors.CategoryConfiguration {
		t.Errorf("category = %s, want configuration", appErr.Category)
	}
	if appErr.ExitCode() != 4 {
		t.Errorf("exit code = %d, want 4", appErr.ExitCode())
	}
}

func TestReconcile_RecordErrorsDoNotAbort(t *testing.T) {
	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	bad := receipt("R-BAD", "", 10.00, day) // missing merchant
	good := receipt("R1", "STARBUCKS", 8.75, day)

	badTxn := transaction("T-BAD", 0, day, "ZERO") // zero amount
	goodTxn := transaction("T1", -8.75, day, "STARBUCKS")

	service := NewService()
	result, err := service.Reconcile(context.Background(),
		[]*models.ReceiptRecord{bad, good},
		[]*models.TransactionRecord{badTxn, goodTxn},
		matcher.DefaultPreferences())
	if err != nil {
		t.Fatalf("record-level problems must not abort the run: %v", err)
	}

	if len(result.Errors) != 2 {
		t.Fatalf("collected %d errors, want 2", len(result.Errors))
	}
	for _, recErr := range result.Errors {
		if recErr.Category != apperrors.CategoryValidation {
			t.Errorf("error category = %s, want validation", recErr.Category)
		}
	}

	// The valid pair still matched
	if len(result.Matched) != 1 || result.Matched[0].Receipt.ID != "R1" {
		t.Errorf("valid records should still match, got %d matches", len(result.Matched))
	}
	if result.Summary.ErrorCount != 2 {
		t.Errorf("ErrorCount = %d, want 2", result.Summary.ErrorCount)
	}
}

func TestReconcile_Idempotent(t *testing.T) {
	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	receipts := []*models.ReceiptRecord{receipt("R1", "STARBUCKS", 8.75, day)}
	transactions := []*models.TransactionRecord{transaction("T1", -8.75, day, "STARBUCKS")}

	service := NewService()
	first, err := service.Reconcile(context.Background(), receipts, transactions, matcher.DefaultPreferences())
	if err != nil {
		t.Fatalf("first run failed: %v", err)
	}
	if len(first.Matched) != 1 {
		t.Fatalf("first run matched %d, want 1", len(first.Matched))
	}

	// Rerunning the same data finds nothing new and disturbs nothing
	second, err := service.Reconcile(context.Background(), receipts, transactions, matcher.DefaultPreferences())
	if err != nil {
		t.Fatalf("second run failed: %v", err)
	}
	if len(second.Matched)+len(second.Review)+len(second.Unmatched) != 0 {
		t.Errorf("second run produced outcomes: matched=%d review=%d unmatched=%d",
			len(second.Matched), len(second.Review), len(second.Unmatched))
	}
	if second.Summary.SkippedReceipts != 1 {
		t.Errorf("SkippedReceipts = %d, want 1", second.Summary.SkippedReceipts)
	}
	if receipts[0].MatchedTransactionID != "T1" {
		t.Error("rerun must not disturb the existing match")
	}
}

func TestReconcile_DuplicateCapturesHeldOut(t *testing.T) {
	day := time.Date(2024, 3, 3, 0, 0, 0, 0, time.UTC)

	clean := receipt("R1", "STARBUCKS", 8.75, day)
	clean.ExtractionConfidence = 0.95
	rescan := receipt("R2", "STARBUCKS", 8.75, day)
	rescan.ExtractionConfidence = 0.40

	transactions := []*models.TransactionRecord{transaction("T1", -8.75, day, "STARBUCKS")}

	service := NewService()
	result, err := service.Reconcile(context.Background(),
		[]*models.ReceiptRecord{clean, rescan}, transactions, matcher.DefaultPreferences())
	if err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	if len(result.Duplicates) != 1 {
		t.Fatalf("duplicate groups = %d, want 1", len(result.Duplicates))
	}
	if result.Duplicates[0].Primary.ID != "R1" {
		t.Errorf("primary = %s, want R1", result.Duplicates[0].Primary.ID)
	}

	// Only the primary competed for the transaction
	if len(result.Matched) != 1 || result.Matched[0].Receipt.ID != "R1" {
		t.Fatalf("expected R1 to match, got %d matches", len(result.Matched))
	}
	if len(result.Unmatched) != 0 {
		t.Errorf("discarded duplicate should not be listed as unmatched, got %d", len(result.Unmatched))
	}
}

func TestReconcile_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	service := NewService()
	_, err := service.Reconcile(ctx, nil, nil, matcher.DefaultPreferences())
	if err == nil {
		t.Fatal("cancelled context should abort the run")
	}

	appErr, ok := apperrors.As(err)
	if !ok || appErr.Category != apperrors.CategoryReconciliation {
		t.Errorf("expected a reconciliation error, got %v", err)
	}
}

func TestDetectSubscriptions(t *testing.T) {
	var transactions []*models.TransactionRecord
	for month := 1; month <= 12; month++ {
		transactions = append(transactions, transaction(
			fmt.Sprintf("TN%02d", month), -15.99,
			time.Date(2024, time.Month(month), 1, 0, 0, 0, 0, time.UTC),
			"NETFLIX.COM"))
	}
	// One-off purchases at another merchant
	transactions = append(transactions,
		transaction("TS1", -42.00, time.Date(2024, 2, 10, 0, 0, 0, 0, time.UTC), "SHELL OIL"),
		transaction("TS2", -17.35, time.Date(2024, 7, 22, 0, 0, 0, 0, time.UTC), "SHELL OIL"))

	service := NewService()
	subscriptions := service.DetectSubscriptions(transactions)

	if len(subscriptions) != 1 {
		t.Fatalf("detected %d subscriptions, want 1", len(subscriptions))
	}
	if subscriptions[0].Merchant != "netflix com" {
		t.Errorf("merchant = %s, want netflix com", subscriptions[0].Merchant)
	}
	if !subscriptions[0].Pattern.IsSubscription {
		t.Error("pattern should be flagged as a subscription")
	}
}
