// Package reconciler orchestrates reconciliation runs: it validates the
// inputs, weeds out duplicate captures, drives the match engine and
// assembles the run result. Record-level problems are collected and
// reported; only configuration errors abort a run.
package reconciler

import (
	"context"
	"sort"
	"time"

	"expense-reconciliation-service/internal/matcher"
	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/internal/normalizer"
	"expense-reconciliation-service/internal/recurrence"
	apperrors "expense-reconciliation-service/pkg/errors"
	"expense-reconciliation-service/pkg/logger"

	"github.com/google/uuid"
)

// Summary carries the aggregate counts of one run
type Summary struct {
	TotalReceipts     int     `json:"total_receipts"`
	TotalTransactions int     `json:"total_transactions"`
	MatchedCount      int     `json:"matched_count"`
	ReviewCount       int     `json:"review_count"`
	UnmatchedCount    int     `json:"unmatched_count"`
	SkippedReceipts   int     `json:"skipped_receipts"`
	DuplicateGroups   int     `json:"duplicate_groups"`
	ErrorCount        int     `json:"error_count"`
	MatchRate         float64 `json:"match_rate"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// Result is the complete outcome of a reconciliation run
type Result struct {
	RunID string `json:"run_id"`

	Matched    []*matcher.Match          `json:"matched"`
	Review     []*matcher.Match          `json:"review"`
	Unmatched  []*models.ReceiptRecord   `json:"unmatched"`
	Duplicates []*matcher.DuplicateGroup `json:"duplicates,omitempty"`

	// Errors holds the record-level problems collected during the run;
	// the affected records were excluded, the run itself proceeded
	Errors []*apperrors.Error `json:"errors,omitempty"`

	Summary Summary `json:"summary"`
}

// Subscription is one detected recurring-payment pattern
type Subscription struct {
	Merchant string            `json:"merchant"`
	Pattern  recurrence.Result `json:"pattern"`
}

// Service runs reconciliations
type Service struct {
	log        logger.Logger
	duplicates *matcher.DuplicateDetector
}

// NewService creates a reconciliation service using the global logger
func NewService() *Service {
	return NewServiceWithLogger(logger.GetGlobalLogger())
}

// NewServiceWithLogger creates a reconciliation service with an explicit logger
func NewServiceWithLogger(log logger.Logger) *Service {
	return &Service{
		log:        log,
		duplicates: matcher.NewDuplicateDetector(),
	}
}

// Reconcile matches a batch of receipts against transactions under the given
// preferences. Invalid preferences fail fast before any record is touched.
// Invalid records are excluded and reported in the result; already-matched
// records are skipped, so rerunning with the same inputs is safe.
func (s *Service) Reconcile(ctx context.Context, receipts []*models.ReceiptRecord, transactions []*models.TransactionRecord, prefs *matcher.Preferences) (*Result, error) {
	startedAt := time.Now()
	runID := uuid.NewString()
	runLog := logger.NewRunLogger(runID, s.log)

	engine, err := matcher.NewEngine(prefs)
	if err != nil {
		cfgErr := apperrors.ConfigurationError(apperrors.CodeInvalidPreferences, "matching preferences", prefs, err)
		runLog.Failed(cfgErr)
		return nil, cfgErr
	}

	result := &Result{RunID: runID}

	// Validate records; failures are collected, never fatal
	runLog.Phase("validate", len(receipts)+len(transactions))

	var validReceipts []*models.ReceiptRecord
	skipped := 0
	for _, receipt := range receipts {
		if receipt == nil {
			continue
		}
		if err := receipt.Validate(); err != nil {
			vErr := apperrors.ValidationError(apperrors.CodeInvalidReceipt, receipt.ID, err)
			result.Errors = append(result.Errors, vErr)
			runLog.RecordError(receipt.ID, vErr)
			continue
		}
		if receipt.IsMatched() {
			skipped++
			continue
		}
		validReceipts = append(validReceipts, receipt)
	}

	var validTransactions []*models.TransactionRecord
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		if err := txn.Validate(); err != nil {
			vErr := apperrors.ValidationError(apperrors.CodeInvalidTransaction, txn.ID, err)
			result.Errors = append(result.Errors, vErr)
			runLog.RecordError(txn.ID, vErr)
			continue
		}
		validTransactions = append(validTransactions, txn)
	}

	if err := ctx.Err(); err != nil {
		runErr := apperrors.ReconciliationError(apperrors.CodeProcessingError, "validation", err)
		runLog.Failed(runErr)
		return nil, runErr
	}

	// Hold duplicate captures out of matching so one purchase cannot claim
	// two transactions; the groups are surfaced for review
	result.Duplicates = s.duplicates.FindDuplicates(validReceipts)
	if len(result.Duplicates) > 0 {
		discarded := make(map[string]bool)
		for _, group := range result.Duplicates {
			for _, receipt := range group.Discarded {
				discarded[receipt.ID] = true
			}
		}

		kept := validReceipts[:0]
		for _, receipt := range validReceipts {
			if !discarded[receipt.ID] {
				kept = append(kept, receipt)
			}
		}
		validReceipts = kept
	}

	runLog.Phase("match", len(validReceipts))
	engine.LoadTransactions(validTransactions)

	if err := ctx.Err(); err != nil {
		runErr := apperrors.ReconciliationError(apperrors.CodeProcessingError, "matching", err)
		runLog.Failed(runErr)
		return nil, runErr
	}

	run := engine.Match(validReceipts)
	result.Matched = run.Matched
	result.Review = run.Review
	result.Unmatched = run.Unmatched

	result.Summary = Summary{
		TotalReceipts:     len(receipts),
		TotalTransactions: len(transactions),
		MatchedCount:      len(run.Matched),
		ReviewCount:       len(run.Review),
		UnmatchedCount:    len(run.Unmatched),
		SkippedReceipts:   skipped,
		DuplicateGroups:   len(result.Duplicates),
		ErrorCount:        len(result.Errors),
		StartedAt:         startedAt,
		Duration:          time.Since(startedAt),
	}
	if considered := len(run.Matched) + len(run.Review) + len(run.Unmatched); considered > 0 {
		result.Summary.MatchRate = float64(len(run.Matched)) / float64(considered)
	}

	runLog.Complete(len(run.Matched), len(run.Review), len(run.Unmatched), len(result.Errors))
	return result, nil
}

// DetectSubscriptions groups transactions by canonical merchant and reports
// every detected recurring-payment pattern, ordered by merchant
func (s *Service) DetectSubscriptions(transactions []*models.TransactionRecord) []Subscription {
	groups := make(map[string][]*models.TransactionRecord)
	for _, txn := range transactions {
		if txn == nil {
			continue
		}
		merchant := normalizer.Normalize(txn.DescriptionText)
		if merchant == "" {
			continue
		}
		groups[merchant] = append(groups[merchant], txn)
	}

	var subscriptions []Subscription
	for merchant, history := range groups {
		if pattern := recurrence.Detect(history); pattern.IsSubscription {
			subscriptions = append(subscriptions, Subscription{
				Merchant: merchant,
				Pattern:  pattern,
			})
		}
	}

	sort.Slice(subscriptions, func(i, j int) bool {
		return subscriptions[i].Merchant < subscriptions[j].Merchant
	})

	return subscriptions
}
