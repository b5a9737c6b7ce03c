package matcher

import (
	"sort"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/internal/normalizer"
	"expense-reconciliation-service/internal/recurrence"
	"expense-reconciliation-service/internal/scoring"
)

// ComponentScores breaks a match confidence down by signal. A zero value
// means the signal either scored zero or was absent from the pair; Present
// lists which signals actually entered the weighted mean.
type ComponentScores struct {
	Merchant      float64  `json:"merchant"`
	Amount        float64  `json:"amount"`
	Date          float64  `json:"date"`
	Items         float64  `json:"items,omitempty"`
	Location      float64  `json:"location,omitempty"`
	Category      float64  `json:"category,omitempty"`
	PaymentMethod float64  `json:"payment_method,omitempty"`
	Text          float64  `json:"text,omitempty"`
	Present       []string `json:"present"`
}

// Match pairs one receipt with one transaction at a composite confidence
type Match struct {
	Receipt     *models.ReceiptRecord     `json:"receipt"`
	Transaction *models.TransactionRecord `json:"transaction"`

	// Confidence is the weighted mean of the present component scores,
	// plus any recurrence boost, in [0,1]
	Confidence float64         `json:"confidence"`
	Components ComponentScores `json:"components"`

	// DateGapDays is the calendar-day gap between receipt and posting date
	DateGapDays int `json:"date_gap_days"`

	// RecurrenceBoost is the portion of the confidence contributed by a
	// detected subscription cadence, zero when the prior did not apply
	RecurrenceBoost float64 `json:"recurrence_boost,omitempty"`

	// AutoAccepted is true when the confidence cleared the auto-accept
	// threshold and the records were updated in place
	AutoAccepted bool `json:"auto_accepted"`
}

// MatchRun is the outcome of matching a batch of receipts: auto-accepted
// matches, proposals held for review, and receipts with no plausible pair
type MatchRun struct {
	Matched   []*Match                `json:"matched"`
	Review    []*Match                `json:"review"`
	Unmatched []*models.ReceiptRecord `json:"unmatched"`
}

// Engine matches receipts against an indexed set of transactions according
// to a validated set of preferences
type Engine struct {
	prefs *Preferences
	index *TransactionIndex

	// cadence maps normalized merchant keys to their detected subscription
	// pattern, populated during LoadTransactions when the prior is enabled
	cadence map[string]recurrence.Result
}

// NewEngine creates a matching engine. Invalid preferences are rejected
// here, before any data is loaded; nil preferences select the defaults.
func NewEngine(prefs *Preferences) (*Engine, error) {
	if prefs == nil {
		prefs = DefaultPreferences()
	}

	if err := prefs.Validate(); err != nil {
		return nil, err
	}

	return &Engine{
		prefs:   prefs.Clone(),
		cadence: make(map[string]recurrence.Result),
	}, nil
}

// Preferences returns a copy of the engine's active preferences
func (e *Engine) Preferences() *Preferences {
	return e.prefs.Clone()
}

// LoadTransactions indexes the transactions the engine will match against.
// Transactions already holding a receipt are excluded. When the recurrence
// prior is enabled, per-merchant cadences are detected here as well.
func (e *Engine) LoadTransactions(transactions []*models.TransactionRecord) {
	e.index = NewTransactionIndex(transactions)
	e.cadence = make(map[string]recurrence.Result)

	if e.prefs.RecurrencePriorBoost <= 0 {
		return
	}

	for merchant, history := range e.index.MerchantIndex {
		if result := recurrence.Detect(history); result.IsSubscription {
			e.cadence[merchant] = result
		}
	}
}

// Cadence returns the detected subscription pattern for a normalized
// merchant key, if one was found during loading
func (e *Engine) Cadence(normalizedMerchant string) (recurrence.Result, bool) {
	result, ok := e.cadence[normalizedMerchant]
	return result, ok
}

// scoredPair is one receipt/transaction pairing awaiting assignment
type scoredPair struct {
	receipt    *models.ReceiptRecord
	txn        *models.TransactionRecord
	confidence float64
	components ComponentScores
	dateGap    int
	boost      float64
}

// Match scores and assigns a batch of receipts against the loaded
// transactions. Receipts already matched by a previous run are skipped
// entirely. Record state (Status, MatchedTransactionID, HasReceipt) is
// written only after every pair has been scored and assigned, so a partial
// view of the batch can never influence scoring.
func (e *Engine) Match(receipts []*models.ReceiptRecord) *MatchRun {
	run := &MatchRun{}

	var eligible []*models.ReceiptRecord
	for _, receipt := range receipts {
		if receipt == nil || receipt.IsMatched() {
			continue
		}
		if receipt.NormalizedMerchant == "" {
			receipt.NormalizedMerchant = normalizer.Normalize(receipt.Merchant)
		}
		eligible = append(eligible, receipt)
	}

	// Phase 1: score every candidate pair
	var pairs []scoredPair
	if e.index != nil {
		for _, receipt := range eligible {
			for _, txn := range e.index.GetCandidates(receipt, e.prefs) {
				if pair, ok := e.scorePair(receipt, txn); ok {
					pairs = append(pairs, pair)
				}
			}
		}
	}

	// Phase 2: deterministic ordering. Confidence first, then the smaller
	// date gap, then IDs so equal candidates always assign the same way.
	sort.Slice(pairs, func(i, j int) bool {
		if pairs[i].confidence != pairs[j].confidence {
			return pairs[i].confidence > pairs[j].confidence
		}
		if pairs[i].dateGap != pairs[j].dateGap {
			return pairs[i].dateGap < pairs[j].dateGap
		}
		if pairs[i].txn.ID != pairs[j].txn.ID {
			return pairs[i].txn.ID < pairs[j].txn.ID
		}
		return pairs[i].receipt.ID < pairs[j].receipt.ID
	})

	// Phase 3: greedy one-to-one assignment, best pairs first
	assignedReceipts := make(map[string]bool)
	assignedTxns := make(map[string]bool)

	for _, pair := range pairs {
		if assignedReceipts[pair.receipt.ID] || assignedTxns[pair.txn.ID] {
			continue
		}
		assignedReceipts[pair.receipt.ID] = true
		assignedTxns[pair.txn.ID] = true

		match := &Match{
			Receipt:         pair.receipt,
			Transaction:     pair.txn,
			Confidence:      pair.confidence,
			Components:      pair.components,
			DateGapDays:     pair.dateGap,
			RecurrenceBoost: pair.boost,
		}

		if pair.confidence >= e.prefs.AutoAcceptThreshold {
			match.AutoAccepted = true
			run.Matched = append(run.Matched, match)
		} else {
			run.Review = append(run.Review, match)
		}
	}

	// Phase 4: commit record state. Auto-accepted matches are written back;
	// review proposals leave the records untouched for a human decision.
	for _, match := range run.Matched {
		match.Receipt.Status = models.ReceiptStatusMatched
		match.Receipt.MatchedTransactionID = match.Transaction.ID
		match.Transaction.HasReceipt = true
	}

	for _, receipt := range eligible {
		if !assignedReceipts[receipt.ID] {
			receipt.Status = models.ReceiptStatusUnmatched
			run.Unmatched = append(run.Unmatched, receipt)
		}
	}

	return run
}

// scorePair computes the composite confidence for one receipt/transaction
// pair. Returns ok=false when the pair fails the merchant hard floor or no
// weighted signal is present.
func (e *Engine) scorePair(receipt *models.ReceiptRecord, txn *models.TransactionRecord) (scoredPair, bool) {
	merchantScore := scoring.MerchantScore(receipt.Merchant, txn.DescriptionText)
	if merchantScore < e.prefs.MerchantMatchThreshold {
		return scoredPair{}, false
	}

	weights := e.prefs.Weights
	components := ComponentScores{}

	var weightedSum, weightSum float64
	record := func(name string, weight, score float64) {
		if weight <= 0 {
			return
		}
		components.Present = append(components.Present, name)
		weightedSum += weight * score
		weightSum += weight
	}

	// Merchant, amount and date are required fields on both records, so
	// those signals are always present
	components.Merchant = merchantScore
	record("merchant", weights.Merchant, merchantScore)

	components.Amount = scoring.AmountScore(receipt.Amount, txn.Amount, e.prefs.AmountTolerance)
	record("amount", weights.Amount, components.Amount)

	components.Date = scoring.DateScore(receipt.Date, txn.Date, e.prefs.DateRangeDays)
	record("date", weights.Date, components.Date)

	// Optional signals enter the mean only when both records carry the
	// data; a missing field is excluded, not scored as zero
	if receipt.HasLineItems() && len(normalizer.Tokens(txn.DescriptionText)) > 0 {
		components.Items = scoring.ItemsScore(receipt.LineItems, txn.DescriptionText)
		record("items", weights.Items, components.Items)
	}

	if receipt.Location != "" && txn.Location != "" {
		components.Location = scoring.TextScore(receipt.Location, txn.Location)
		record("location", weights.Location, components.Location)
	}

	if receipt.Category != "" && txn.Category != "" {
		components.Category = scoring.EqualityScore(receipt.Category, txn.Category)
		record("category", weights.Category, components.Category)
	}

	if receipt.PaymentMethod != "" && txn.PaymentMethod != "" {
		components.PaymentMethod = scoring.EqualityScore(receipt.PaymentMethod, txn.PaymentMethod)
		record("payment_method", weights.PaymentMethod, components.PaymentMethod)
	}

	if receipt.OCRText != "" && txn.DescriptionText != "" {
		components.Text = scoring.TextScore(receipt.OCRText, txn.DescriptionText)
		record("text", weights.Text, components.Text)
	}

	if weightSum <= 0 {
		return scoredPair{}, false
	}

	confidence := weightedSum / weightSum

	// Bounded subscription prior: a pair that fits a detected cadence gets
	// a small nudge, capped so the prior can never manufacture certainty
	var boost float64
	if e.prefs.RecurrencePriorBoost > 0 {
		if result, ok := e.cadence[receipt.NormalizedMerchant]; ok {
			boost = e.prefs.RecurrencePriorBoost * result.FitsExpectation(txn.Date, receipt.Amount)
			confidence += boost
			if confidence > 1.0 {
				confidence = 1.0
			}
		}
	}

	return scoredPair{
		receipt:    receipt,
		txn:        txn,
		confidence: confidence,
		components: components,
		dateGap:    models.DaysBetween(receipt.Date, txn.Date),
		boost:      boost,
	}, true
}
