package models

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ReceiptStatus represents the reconciliation state of a receipt
type ReceiptStatus string

const (
	// ReceiptStatusPending indicates the receipt has not been through a reconciliation run
	ReceiptStatusPending ReceiptStatus = "PENDING"
	// ReceiptStatusMatched indicates the receipt was matched to a transaction
	ReceiptStatusMatched ReceiptStatus = "MATCHED"
	// ReceiptStatusUnmatched indicates a run completed without finding a match
	ReceiptStatusUnmatched ReceiptStatus = "UNMATCHED"
)

// String returns the string representation of ReceiptStatus
func (s ReceiptStatus) String() string {
	return string(s)
}

// IsValid checks if the receipt status is valid
func (s ReceiptStatus) IsValid() bool {
	return s == ReceiptStatusPending || s == ReceiptStatusMatched || s == ReceiptStatusUnmatched
}

// LineItem is a single extracted line of a receipt
type LineItem struct {
	Description string          `json:"description" csv:"description"`
	Amount      decimal.Decimal `json:"amount" csv:"amount"`
}

// ReceiptRecord represents a normalized receipt produced by an upstream
// OCR or import collaborator. The reconciliation core mutates only Status
// and MatchedTransactionID; lifecycle ownership stays with the caller.
type ReceiptRecord struct {
	ID       string `json:"id" csv:"id"`
	Merchant string `json:"merchant" csv:"merchant"`
	// NormalizedMerchant caches the normalizer output for the raw merchant
	// string. Populated lazily by the matcher; empty means not yet derived
	// or an unknown merchant.
	NormalizedMerchant string          `json:"normalizedMerchant,omitempty"`
	Amount             decimal.Decimal `json:"amount" csv:"amount"`
	Date               time.Time       `json:"date" csv:"date"`
	LineItems          []LineItem      `json:"lineItems,omitempty"`

	// Optional signals carried through from extraction. Absent values are
	// excluded from scoring, never penalized.
	OCRText       string `json:"ocrText,omitempty"`
	Location      string `json:"location,omitempty"`
	Category      string `json:"category,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`

	// ExtractionConfidence is the upstream OCR confidence (0..1), informational only
	ExtractionConfidence float64 `json:"extractionConfidence,omitempty"`

	Status               ReceiptStatus `json:"status"`
	MatchedTransactionID string        `json:"matchedTransactionId,omitempty"`
}

// NewReceiptRecord creates a pending ReceiptRecord
func NewReceiptRecord(id, merchant string, amount decimal.Decimal, date time.Time) *ReceiptRecord {
	return &ReceiptRecord{
		ID:       id,
		Merchant: merchant,
		Amount:   amount,
		Date:     date,
		Status:   ReceiptStatusPending,
	}
}

// Validate performs basic validation on the ReceiptRecord
func (r *ReceiptRecord) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("receipt ID cannot be empty")
	}

	if strings.TrimSpace(r.Merchant) == "" {
		return fmt.Errorf("receipt merchant cannot be empty")
	}

	if !r.Amount.IsPositive() {
		return fmt.Errorf("receipt amount must be positive, got %s", r.Amount.String())
	}

	if r.Date.IsZero() {
		return fmt.Errorf("receipt date cannot be zero")
	}

	if r.ExtractionConfidence < 0.0 || r.ExtractionConfidence > 1.0 {
		return fmt.Errorf("extraction confidence must be between 0.0 and 1.0: %f", r.ExtractionConfidence)
	}

	return nil
}

// IsMatched returns true once a reconciliation run has matched the receipt
func (r *ReceiptRecord) IsMatched() bool {
	return r.Status == ReceiptStatusMatched
}

// HasLineItems returns true when extraction produced at least one line item
func (r *ReceiptRecord) HasLineItems() bool {
	return len(r.LineItems) > 0
}

// String returns a string representation of the ReceiptRecord
func (r *ReceiptRecord) String() string {
	return fmt.Sprintf("Receipt{ID: %s, Merchant: %q, Amount: %s, Date: %s, Status: %s}",
		r.ID, r.Merchant, r.Amount.String(), r.Date.Format("2006-01-02"), r.Status)
}

// MarshalJSON implements custom JSON marshaling for ReceiptRecord
func (r *ReceiptRecord) MarshalJSON() ([]byte, error) {
	type Alias ReceiptRecord
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: r.Amount.String(),
		Date:   r.Date.Format("2006-01-02"),
		Alias:  (*Alias)(r),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for ReceiptRecord
func (r *ReceiptRecord) UnmarshalJSON(data []byte) error {
	type Alias ReceiptRecord
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(r),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	r.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	r.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	if r.Status == "" {
		r.Status = ReceiptStatusPending
	}

	return nil
}

// TransactionRecord represents a bank or card transaction. Immutable from
// the core's perspective except for the HasReceipt flag set on a successful
// match.
type TransactionRecord struct {
	ID        string `json:"id" csv:"id"`
	AccountID string `json:"accountId" csv:"account_id"`
	// Amount is signed: debits carry a negative sign in most bank exports.
	// Matching always compares against the debit magnitude.
	Amount          decimal.Decimal `json:"amount" csv:"amount"`
	Date            time.Time       `json:"date" csv:"date"`
	DescriptionText string          `json:"descriptionText" csv:"description"`

	Location      string `json:"location,omitempty"`
	Category      string `json:"category,omitempty"`
	PaymentMethod string `json:"paymentMethod,omitempty"`

	HasReceipt bool `json:"hasReceipt"`
}

// NewTransactionRecord creates a new TransactionRecord
func NewTransactionRecord(id, accountID string, amount decimal.Decimal, date time.Time, description string) *TransactionRecord {
	return &TransactionRecord{
		ID:              id,
		AccountID:       accountID,
		Amount:          amount,
		Date:            date,
		DescriptionText: description,
	}
}

// Validate performs basic validation on the TransactionRecord
func (t *TransactionRecord) Validate() error {
	if strings.TrimSpace(t.ID) == "" {
		return fmt.Errorf("transaction ID cannot be empty")
	}

	if t.Amount.IsZero() {
		return fmt.Errorf("transaction amount cannot be zero")
	}

	if t.Date.IsZero() {
		return fmt.Errorf("transaction date cannot be zero")
	}

	return nil
}

// DebitMagnitude returns the absolute value of the transaction amount,
// the quantity receipts are compared against
func (t *TransactionRecord) DebitMagnitude() decimal.Decimal {
	return t.Amount.Abs()
}

// IsDebit returns true if the transaction amount represents a debit (negative amount)
func (t *TransactionRecord) IsDebit() bool {
	return t.Amount.IsNegative()
}

// String returns a string representation of the TransactionRecord
func (t *TransactionRecord) String() string {
	return fmt.Sprintf("Transaction{ID: %s, Account: %s, Amount: %s, Date: %s, Description: %q}",
		t.ID, t.AccountID, t.Amount.String(), t.Date.Format("2006-01-02"), t.DescriptionText)
}

// MarshalJSON implements custom JSON marshaling for TransactionRecord
func (t *TransactionRecord) MarshalJSON() ([]byte, error) {
	type Alias TransactionRecord
	return json.Marshal(&struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Amount: t.Amount.String(),
		Date:   t.Date.Format("2006-01-02"),
		Alias:  (*Alias)(t),
	})
}

// UnmarshalJSON implements custom JSON unmarshaling for TransactionRecord
func (t *TransactionRecord) UnmarshalJSON(data []byte) error {
	type Alias TransactionRecord
	aux := &struct {
		Amount string `json:"amount"`
		Date   string `json:"date"`
		*Alias
	}{
		Alias: (*Alias)(t),
	}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	var err error
	t.Amount, err = decimal.NewFromString(aux.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount format: %w", err)
	}

	t.Date, err = ParseTimeWithFormats(aux.Date)
	if err != nil {
		return fmt.Errorf("invalid date format: %w", err)
	}

	return nil
}

// Utility functions for type conversion and validation

// ParseDecimalFromString parses a decimal value from string with validation
func ParseDecimalFromString(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, fmt.Errorf("amount string cannot be empty")
	}

	// Remove common currency symbols and thousand separators
	s = strings.ReplaceAll(s, "$", "")
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimSpace(s)

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid decimal format '%s': %w", s, err)
	}

	return d, nil
}

// ParseTimeWithFormats attempts to parse time from string using multiple common formats
func ParseTimeWithFormats(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, fmt.Errorf("time string cannot be empty")
	}

	// Common date formats used in receipt and bank exports
	formats := []string{
		time.RFC3339,          // "2006-01-02T15:04:05Z07:00"
		"2006-01-02 15:04:05", // "2006-01-02 15:04:05"
		"2006-01-02T15:04:05", // "2006-01-02T15:04:05"
		"2006-01-02",          // "2006-01-02"
		"01/02/2006 15:04:05", // "01/02/2006 15:04:05"
		"01/02/2006",          // "01/02/2006"
		"02-01-2006",          // "02-01-2006"
		"2006/01/02",          // "2006/01/02"
		"Jan 2, 2006",         // "Jan 2, 2006"
		"January 2, 2006",     // "January 2, 2006"
	}

	var lastErr error
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		} else {
			lastErr = err
		}
	}

	return time.Time{}, fmt.Errorf("unable to parse time '%s': %w", s, lastErr)
}

// DaysBetween returns the absolute number of calendar days between two dates.
// Times of day are ignored; receipts carry no time-of-day guarantee.
func DaysBetween(a, b time.Time) int {
	ad := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	bd := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)

	diff := ad.Sub(bd)
	if diff < 0 {
		diff = -diff
	}

	return int(diff.Hours() / 24)
}

// ParseLineItems parses the compact "desc:amount;desc:amount" line item
// encoding used by receipt CSV exports. Empty input yields no items.
func ParseLineItems(s string) ([]LineItem, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	var items []LineItem
	for _, part := range strings.Split(s, ";") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		idx := strings.LastIndex(part, ":")
		if idx <= 0 {
			return nil, fmt.Errorf("invalid line item '%s': expected 'description:amount'", part)
		}

		amount, err := ParseDecimalFromString(part[idx+1:])
		if err != nil {
			return nil, fmt.Errorf("invalid line item amount in '%s': %w", part, err)
		}

		items = append(items, LineItem{
			Description: strings.TrimSpace(part[:idx]),
			Amount:      amount,
		})
	}

	return items, nil
}

// CreateReceiptFromCSV creates a ReceiptRecord from CSV field values
func CreateReceiptFromCSV(id, merchant, amountStr, dateStr, itemsStr, confidenceStr string) (*ReceiptRecord, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	date, err := ParseTimeWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date in CSV: %w", err)
	}

	receipt := NewReceiptRecord(strings.TrimSpace(id), strings.TrimSpace(merchant), amount, date)

	items, err := ParseLineItems(itemsStr)
	if err != nil {
		return nil, fmt.Errorf("invalid line items in CSV: %w", err)
	}
	receipt.LineItems = items

	if s := strings.TrimSpace(confidenceStr); s != "" {
		conf, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("invalid extraction confidence in CSV: %w", err)
		}
		receipt.ExtractionConfidence = conf.InexactFloat64()
	}

	if err := receipt.Validate(); err != nil {
		return nil, fmt.Errorf("invalid receipt data: %w", err)
	}

	return receipt, nil
}

// CreateTransactionFromCSV creates a TransactionRecord from CSV field values
func CreateTransactionFromCSV(id, accountID, amountStr, dateStr, description string) (*TransactionRecord, error) {
	amount, err := ParseDecimalFromString(amountStr)
	if err != nil {
		return nil, fmt.Errorf("invalid amount in CSV: %w", err)
	}

	date, err := ParseTimeWithFormats(dateStr)
	if err != nil {
		return nil, fmt.Errorf("invalid date in CSV: %w", err)
	}

	transaction := NewTransactionRecord(strings.TrimSpace(id), strings.TrimSpace(accountID), amount, date, strings.TrimSpace(description))

	if err := transaction.Validate(); err != nil {
		return nil, fmt.Errorf("invalid transaction data: %w", err)
	}

	return transaction, nil
}
