package matcher

import (
	"fmt"
	"testing"
	"time"

	"expense-reconciliation-service/internal/models"

	"github.com/shopspring/decimal"
)

func testTxn(id string, amount float64, date time.Time, description string) *models.TransactionRecord {
	return &models.TransactionRecord{
		ID:              id,
		AccountID:       "ACC1",
		Amount:          decimal.NewFromFloat(amount),
		Date:            date,
		DescriptionText: description,
	}
}

func TestTransactionIndex_SkipsMatched(t *testing.T) {
	base := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	matched := testTxn("T1", -10.00, base, "STARBUCKS")
	matched.HasReceipt = true
	open := testTxn("T2", -10.00, base, "STARBUCKS")

	index := NewTransactionIndex([]*models.TransactionRecord{matched, open, nil})

	if got := len(index.AllTransactions); got != 1 {
		t.Fatalf("indexed %d transactions, want 1", got)
	}
	if index.AllTransactions[0].ID != "T2" {
		t.Errorf("indexed %s, want T2", index.AllTransactions[0].ID)
	}
}

func TestTransactionIndex_DateWindow(t *testing.T) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	var txns []*models.TransactionRecord
	for offset := -5; offset <= 5; offset++ {
		txns = append(txns, testTxn(
			fmt.Sprintf("T%02d", offset+5), -10.00, base.AddDate(0, 0, offset), "SHELL"))
	}

	index := NewTransactionIndex(txns)

	// Window of 2 days spans 5 calendar days inclusive
	got := index.GetByDateWindow(base, 2)
	if len(got) != 5 {
		t.Fatalf("window(2) returned %d transactions, want 5", len(got))
	}

	for _, txn := range got {
		if gap := models.DaysBetween(txn.Date, base); gap > 2 {
			t.Errorf("transaction %s is %d days out, beyond the window", txn.ID, gap)
		}
	}

	// Zero window is exactly the one day
	if got := index.GetByDateWindow(base, 0); len(got) != 1 {
		t.Errorf("window(0) returned %d transactions, want 1", len(got))
	}

	if got := index.GetByDateWindow(base, -1); got != nil {
		t.Errorf("negative window returned %d transactions, want none", len(got))
	}
}

func TestTransactionIndex_MerchantLookup(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	txns := []*models.TransactionRecord{
		testTxn("T1", -15.99, base, "NETFLIX.COM"),
		testTxn("T2", -15.99, base.AddDate(0, 1, 0), "NETFLIX.COM"),
		testTxn("T3", -42.00, base, "SHELL OIL 1234"),
	}

	index := NewTransactionIndex(txns)

	history := index.GetByMerchant("netflix com")
	if len(history) != 2 {
		t.Fatalf("merchant lookup returned %d transactions, want 2", len(history))
	}
	if !history[0].Date.Before(history[1].Date) {
		t.Error("merchant history should be ordered by date")
	}
}

func TestTransactionIndex_CandidateCap(t *testing.T) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	var txns []*models.TransactionRecord
	for i := 0; i < 30; i++ {
		txns = append(txns, testTxn(fmt.Sprintf("T%02d", i), -10.00, base, "STARBUCKS"))
	}

	index := NewTransactionIndex(txns)
	receipt := models.NewReceiptRecord("R1", "STARBUCKS", decimal.NewFromFloat(10.00), base)

	prefs := DefaultPreferences()
	prefs.MaxCandidatesPerReceipt = 10

	candidates := index.GetCandidates(receipt, prefs)
	if len(candidates) != 10 {
		t.Errorf("got %d candidates, want the cap of 10", len(candidates))
	}
}

func TestTransactionIndex_CandidateCapKeepsNearestDates(t *testing.T) {
	base := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)

	// A crowd at the window edge plus a single same-day transaction; the cap
	// must keep the same-day one
	var txns []*models.TransactionRecord
	for i := 0; i < 11; i++ {
		txns = append(txns, testTxn(fmt.Sprintf("T%02d", i), -4.50, base.AddDate(0, 0, -3), "COFFEE SHOP"))
	}
	txns = append(txns, testTxn("T11", -10.00, base, "COFFEE SHOP"))

	index := NewTransactionIndex(txns)
	receipt := models.NewReceiptRecord("R1", "COFFEE SHOP", decimal.NewFromFloat(10.00), base)

	prefs := DefaultPreferences()
	prefs.MaxCandidatesPerReceipt = 10

	candidates := index.GetCandidates(receipt, prefs)
	if len(candidates) != 10 {
		t.Fatalf("got %d candidates, want the cap of 10", len(candidates))
	}

	found := false
	for _, txn := range candidates {
		if txn.ID == "T11" {
			found = true
			break
		}
	}
	if !found {
		t.Error("same-day transaction was capped out of the candidate set")
	}
}
