package matcher

import (
	"sort"
	"time"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/internal/normalizer"
)

// TransactionIndex buckets transactions by calendar day so the engine's
// date-window scan touches only the days inside the window instead of the
// whole ledger. Transactions that already carry a receipt are excluded at
// build time; a matched transaction never re-enters candidate generation.
type TransactionIndex struct {
	// DateIndex maps date strings (YYYY-MM-DD) to transaction slices
	DateIndex map[string][]*models.TransactionRecord

	// MerchantIndex maps normalized description text to transaction slices,
	// used by subscription history lookups
	MerchantIndex map[string][]*models.TransactionRecord

	// AllTransactions holds the indexed (unmatched) transactions
	AllTransactions []*models.TransactionRecord
}

// NewTransactionIndex builds an index over the given transactions, skipping
// any that are already matched to a receipt
func NewTransactionIndex(transactions []*models.TransactionRecord) *TransactionIndex {
	index := &TransactionIndex{
		DateIndex:     make(map[string][]*models.TransactionRecord),
		MerchantIndex: make(map[string][]*models.TransactionRecord),
	}

	for _, txn := range transactions {
		if txn == nil || txn.HasReceipt {
			continue
		}
		index.add(txn)
	}

	index.sortBuckets()
	return index
}

// add inserts one transaction into every index
func (ti *TransactionIndex) add(txn *models.TransactionRecord) {
	ti.AllTransactions = append(ti.AllTransactions, txn)

	dateKey := txn.Date.Format("2006-01-02")
	ti.DateIndex[dateKey] = append(ti.DateIndex[dateKey], txn)

	if merchantKey := normalizer.Normalize(txn.DescriptionText); merchantKey != "" {
		ti.MerchantIndex[merchantKey] = append(ti.MerchantIndex[merchantKey], txn)
	}
}

// sortBuckets orders every bucket by ID so window scans yield transactions
// in a stable order regardless of input order
func (ti *TransactionIndex) sortBuckets() {
	for _, bucket := range ti.DateIndex {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].ID < bucket[j].ID
		})
	}
	for _, bucket := range ti.MerchantIndex {
		sort.Slice(bucket, func(i, j int) bool {
			return bucket[i].Date.Before(bucket[j].Date)
		})
	}
}

// GetByDate returns the transactions posted on the specified calendar day
func (ti *TransactionIndex) GetByDate(date time.Time) []*models.TransactionRecord {
	return ti.DateIndex[date.Format("2006-01-02")]
}

// GetByDateWindow returns all transactions within windowDays calendar days
// of the given date, inclusive on both edges
func (ti *TransactionIndex) GetByDateWindow(date time.Time, windowDays int) []*models.TransactionRecord {
	if windowDays < 0 {
		return nil
	}

	var result []*models.TransactionRecord

	start := date.AddDate(0, 0, -windowDays)
	for offset := 0; offset <= 2*windowDays; offset++ {
		dateKey := start.AddDate(0, 0, offset).Format("2006-01-02")
		if bucket, exists := ti.DateIndex[dateKey]; exists {
			result = append(result, bucket...)
		}
	}

	return result
}

// GetByMerchant returns the transactions whose normalized description equals
// the given normalized merchant key, ordered by date
func (ti *TransactionIndex) GetByMerchant(normalizedMerchant string) []*models.TransactionRecord {
	return ti.MerchantIndex[normalizedMerchant]
}

// GetCandidates returns the date-window candidates for a receipt, capped at
// the configured maximum. Merchant filtering happens during scoring; the
// index only narrows by date. The cap keeps the candidates nearest the
// receipt date, so a same-day transaction is never pushed out by a crowd at
// the window edge.
func (ti *TransactionIndex) GetCandidates(receipt *models.ReceiptRecord, prefs *Preferences) []*models.TransactionRecord {
	candidates := ti.GetByDateWindow(receipt.Date, prefs.DateRangeDays)

	if prefs.MaxCandidatesPerReceipt > 0 && len(candidates) > prefs.MaxCandidatesPerReceipt {
		sorted := append([]*models.TransactionRecord(nil), candidates...)
		sort.Slice(sorted, func(i, j int) bool {
			gapI := models.DaysBetween(receipt.Date, sorted[i].Date)
			gapJ := models.DaysBetween(receipt.Date, sorted[j].Date)
			if gapI != gapJ {
				return gapI < gapJ
			}
			return sorted[i].ID < sorted[j].ID
		})
		candidates = sorted[:prefs.MaxCandidatesPerReceipt]
	}

	return candidates
}

// Stats summarizes index shape for logging
type Stats struct {
	TotalTransactions int
	UniqueDates       int
	UniqueMerchants   int
}

// GetStats returns statistics about the index
func (ti *TransactionIndex) GetStats() Stats {
	return Stats{
		TotalTransactions: len(ti.AllTransactions),
		UniqueDates:       len(ti.DateIndex),
		UniqueMerchants:   len(ti.MerchantIndex),
	}
}
