// Package matcher provides the weighted match engine that pairs receipts
// with bank transactions.
//
// The engine handles the messy realities of expense data:
//   - Card settlement lag between purchase and posting dates
//   - Tips and rounding shifting the posted amount
//   - Processor-mangled merchant descriptors ("SQ *STARBUCKS")
//   - Receipts with missing optional fields (items, location, category)
//
// Matching runs in stages:
//  1. Candidate selection over a date-bucketed transaction index
//  2. A merchant-similarity hard floor that discards implausible pairs
//  3. Weighted composite scoring over the signals both records carry
//  4. Deterministic greedy one-to-one assignment, best pairs first
//  5. Confidence-based split into auto-accepted and review matches
//
// Example usage:
//
//	prefs := matcher.DefaultPreferences()
//	prefs.DateRangeDays = 5
//
//	engine, err := matcher.NewEngine(prefs)
//	if err != nil {
//		return err
//	}
//	engine.LoadTransactions(transactions)
//
//	run := engine.Match(receipts)
package matcher

import (
	"fmt"
)

// Weights defines the relative importance of each similarity signal.
// A zero weight removes the signal from scoring entirely. Signals absent
// from a record pair are excluded from both sides of the weighted mean,
// so a receipt without line items is never penalized for the gap.
type Weights struct {
	Merchant float64 `json:"merchant_weight"`
	Amount   float64 `json:"amount_weight"`
	Date     float64 `json:"date_weight"`
	Items    float64 `json:"items_weight"`

	// Optional-signal weights, applied only when both records carry the field
	Location      float64 `json:"location_weight"`
	Category      float64 `json:"category_weight"`
	PaymentMethod float64 `json:"payment_method_weight"`
	Text          float64 `json:"text_weight"`
}

// Preferences holds the tunable parameters of a matching run. Different
// preference sets suit different data quality: tight tolerances for clean
// card feeds, loose ones for crumpled-receipt OCR.
//
// Use the provided factory functions for common scenarios:
//   - DefaultPreferences(): balanced approach for most use cases
//   - StrictPreferences(): tight tolerances, high-confidence matches only
//   - RelaxedPreferences(): loose tolerances for exploratory matching
type Preferences struct {
	// Weights holds the relative importance of each similarity signal
	Weights Weights `json:"weights"`

	// AmountTolerance is the maximum fractional difference between the
	// receipt amount and the transaction's debit magnitude (0.10 = ±10%,
	// covering tips and FX rounding)
	AmountTolerance float64 `json:"amount_tolerance"`

	// DateRangeDays is the inclusive calendar-day window around the receipt
	// date in which transactions are considered (settlement lag)
	DateRangeDays int `json:"date_range_days"`

	// MerchantMatchThreshold is the minimum merchant similarity for a pair
	// to be scored at all; below it the pair is discarded outright
	MerchantMatchThreshold float64 `json:"merchant_match_threshold"`

	// AutoAcceptThreshold is the composite confidence at or above which a
	// match is accepted without review; proposals below it are flagged
	AutoAcceptThreshold float64 `json:"auto_accept_threshold"`

	// RecurrencePriorBoost is the maximum confidence bonus granted when a
	// pair fits a detected subscription cadence. Zero disables the prior.
	// The boost is advisory: it can promote a candidate past a rival or
	// past the review line, but never creates a candidate on its own.
	RecurrencePriorBoost float64 `json:"recurrence_prior_boost"`

	// MaxCandidatesPerReceipt caps how many date-window transactions are
	// scored per receipt
	MaxCandidatesPerReceipt int `json:"max_candidates_per_receipt"`
}

// DefaultPreferences returns a balanced configuration suitable for typical
// card-feed reconciliation
func DefaultPreferences() *Preferences {
	return &Preferences{
		Weights: Weights{
			Merchant:      0.4,
			Amount:        0.3,
			Date:          0.2,
			Items:         0.1,
			Location:      0.05,
			Category:      0.05,
			PaymentMethod: 0.05,
			Text:          0.05,
		},
		AmountTolerance:         0.10,
		DateRangeDays:           3,
		MerchantMatchThreshold:  0.8,
		AutoAcceptThreshold:     0.7,
		RecurrencePriorBoost:    0.05,
		MaxCandidatesPerReceipt: 10,
	}
}

// StrictPreferences returns a configuration for high-confidence matching
// only: exact-leaning tolerances and no recurrence prior
func StrictPreferences() *Preferences {
	return &Preferences{
		Weights: Weights{
			Merchant: 0.4,
			Amount:   0.4,
			Date:     0.2,
		},
		AmountTolerance:         0.02,
		DateRangeDays:           1,
		MerchantMatchThreshold:  0.9,
		AutoAcceptThreshold:     0.85,
		RecurrencePriorBoost:    0.0,
		MaxCandidatesPerReceipt: 5,
	}
}

// RelaxedPreferences returns a configuration for exploratory matching over
// low-quality extractions: wide windows and a low review bar
func RelaxedPreferences() *Preferences {
	return &Preferences{
		Weights: Weights{
			Merchant:      0.35,
			Amount:        0.25,
			Date:          0.15,
			Items:         0.1,
			Location:      0.05,
			Category:      0.05,
			PaymentMethod: 0.05,
			Text:          0.1,
		},
		AmountTolerance:         0.15,
		DateRangeDays:           7,
		MerchantMatchThreshold:  0.65,
		AutoAcceptThreshold:     0.6,
		RecurrencePriorBoost:    0.05,
		MaxCandidatesPerReceipt: 20,
	}
}

// Validate checks if the preferences are internally consistent. The engine
// refuses to run with invalid preferences; configuration errors fail fast
// rather than producing a silently skewed run.
func (p *Preferences) Validate() error {
	if err := p.Weights.Validate(); err != nil {
		return fmt.Errorf("invalid weights: %w", err)
	}

	if p.AmountTolerance < 0.0 || p.AmountTolerance > 1.0 {
		return fmt.Errorf("amount tolerance must be between 0.0 and 1.0: %f", p.AmountTolerance)
	}

	if p.DateRangeDays < 0 {
		return fmt.Errorf("date range days cannot be negative: %d", p.DateRangeDays)
	}

	if p.MerchantMatchThreshold < 0.0 || p.MerchantMatchThreshold > 1.0 {
		return fmt.Errorf("merchant match threshold must be between 0.0 and 1.0: %f", p.MerchantMatchThreshold)
	}

	if p.AutoAcceptThreshold < 0.0 || p.AutoAcceptThreshold > 1.0 {
		return fmt.Errorf("auto accept threshold must be between 0.0 and 1.0: %f", p.AutoAcceptThreshold)
	}

	if p.RecurrencePriorBoost < 0.0 || p.RecurrencePriorBoost > 0.2 {
		return fmt.Errorf("recurrence prior boost must be between 0.0 and 0.2: %f", p.RecurrencePriorBoost)
	}

	if p.MaxCandidatesPerReceipt <= 0 {
		return fmt.Errorf("max candidates per receipt must be positive: %d", p.MaxCandidatesPerReceipt)
	}

	return nil
}

// Validate checks if the matching weights are valid
func (w *Weights) Validate() error {
	for _, entry := range []struct {
		name  string
		value float64
	}{
		{"merchant", w.Merchant},
		{"amount", w.Amount},
		{"date", w.Date},
		{"items", w.Items},
		{"location", w.Location},
		{"category", w.Category},
		{"payment method", w.PaymentMethod},
		{"text", w.Text},
	} {
		if entry.value < 0.0 || entry.value > 1.0 {
			return fmt.Errorf("%s weight must be between 0.0 and 1.0: %f", entry.name, entry.value)
		}
	}

	// At least one signal must carry weight or every composite is undefined
	total := w.Merchant + w.Amount + w.Date + w.Items +
		w.Location + w.Category + w.PaymentMethod + w.Text
	if total <= 0.0 {
		return fmt.Errorf("at least one weight must be positive")
	}

	return nil
}

// Clone creates a deep copy of the preferences
func (p *Preferences) Clone() *Preferences {
	if p == nil {
		return nil
	}

	clone := *p
	return &clone
}

// String returns a human-readable description of the preferences
func (p *Preferences) String() string {
	return fmt.Sprintf("Preferences{AmountTolerance: %.2f, DateRange: %d days, MerchantThreshold: %.2f, AutoAccept: %.2f}",
		p.AmountTolerance, p.DateRangeDays, p.MerchantMatchThreshold, p.AutoAcceptThreshold)
}
