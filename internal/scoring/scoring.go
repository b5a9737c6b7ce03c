// Package scoring provides the pure similarity functions the match engine
// combines into a composite confidence. Every scorer returns a value in
// [0,1], is total over its inputs, and treats missing optional data as a
// zero score rather than an error.
package scoring

import (
	"time"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/internal/normalizer"

	"github.com/shopspring/decimal"
	"github.com/texttheater/golang-levenshtein/levenshtein"
)

const (
	// dateScoreFloor is the score at the far edge of the date window.
	// Same-day purchases are far more likely correct than edge-of-window
	// ones, so the grading is never flat.
	dateScoreFloor = 0.3

	// itemMatchThreshold is the minimum fuzzy score for a line-item
	// description to count as found in the transaction text
	itemMatchThreshold = 0.8
)

// amountFloor bounds the relative-difference denominator away from zero
var amountFloor = decimal.NewFromFloat(0.01)

// MerchantScore computes the similarity of two merchant strings as a
// normalized Levenshtein ratio: 1 − distance/maxLen over the canonical
// forms. Symmetric and reflexive. Either side normalizing to empty means
// the merchant is unknown and the score is 0.
func MerchantScore(a, b string) float64 {
	na := normalizer.Normalize(a)
	nb := normalizer.Normalize(b)

	if na == "" || nb == "" {
		return 0.0
	}

	if na == nb {
		return 1.0
	}

	ra := []rune(na)
	rb := []rune(nb)

	maxLen := len(ra)
	if len(rb) > maxLen {
		maxLen = len(rb)
	}

	distance := levenshtein.DistanceForStrings(ra, rb, levenshtein.DefaultOptions)
	return 1.0 - float64(distance)/float64(maxLen)
}

// AmountScore grades how close a transaction amount is to a receipt amount
// under a fractional tolerance (0.10 = ±10%). The transaction's debit
// magnitude is compared against the receipt amount; the score runs linearly
// from 1.0 at an exact match down to 0.0 at the tolerance boundary, and is
// 0 beyond it. A zero tolerance demands an exact match.
func AmountScore(receiptAmt, txnAmt decimal.Decimal, tolerance float64) float64 {
	denominator := receiptAmt
	if denominator.LessThan(amountFloor) {
		denominator = amountFloor
	}

	relDiff := receiptAmt.Sub(txnAmt.Abs()).Abs().Div(denominator).InexactFloat64()

	if tolerance <= 0 {
		if relDiff == 0 {
			return 1.0
		}
		return 0.0
	}

	if relDiff > tolerance {
		return 0.0
	}

	return 1.0 - relDiff/tolerance
}

// DateScore grades the calendar-day gap between a receipt and a transaction
// within an inclusive window. Same day scores 1.0, the window edge scores
// the floor, anything outside the window scores 0.
func DateScore(receiptDate, txnDate time.Time, windowDays int) float64 {
	gap := models.DaysBetween(receiptDate, txnDate)

	if gap == 0 {
		return 1.0
	}

	if windowDays <= 0 || gap > windowDays {
		return 0.0
	}

	return 1.0 - (1.0-dateScoreFloor)*float64(gap)/float64(windowDays)
}

// ItemsScore measures what fraction of receipt line-item descriptions can
// be found, fuzzily, in the transaction's description text. Receipts without
// line items and transactions without usable text both score 0; the engine
// excludes the signal rather than penalizing it.
func ItemsScore(items []models.LineItem, txnText string) float64 {
	if len(items) == 0 {
		return 0.0
	}

	tokens := normalizer.Tokens(txnText)
	if len(tokens) == 0 {
		return 0.0
	}

	found := 0
	for _, item := range items {
		if itemFoundIn(item.Description, tokens) {
			found++
		}
	}

	return float64(found) / float64(len(items))
}

// itemFoundIn reports whether any token of the description fuzzily matches
// any token of the transaction text
func itemFoundIn(description string, textTokens []string) bool {
	for _, itemToken := range normalizer.Tokens(description) {
		for _, textToken := range textTokens {
			if MerchantScore(itemToken, textToken) >= itemMatchThreshold {
				return true
			}
		}
	}
	return false
}

// EqualityScore compares two optional categorical values (category, payment
// method) after normalization: 1.0 on canonical equality, 0 otherwise.
// Either side unknown scores 0.
func EqualityScore(a, b string) float64 {
	na := normalizer.Normalize(a)
	nb := normalizer.Normalize(b)

	if na == "" || nb == "" {
		return 0.0
	}

	if na == nb {
		return 1.0
	}

	return 0.0
}

// TextScore measures the fraction of a's tokens found fuzzily among b's
// tokens. Used for the optional location and free-text signals, where a
// partial overlap is meaningful but ordering is not.
func TextScore(a, b string) float64 {
	aTokens := normalizer.Tokens(a)
	bTokens := normalizer.Tokens(b)

	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0.0
	}

	found := 0
	for _, at := range aTokens {
		for _, bt := range bTokens {
			if MerchantScore(at, bt) >= itemMatchThreshold {
				found++
				break
			}
		}
	}

	return float64(found) / float64(len(aTokens))
}
