package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestReceiptRecord_Validate(t *testing.T) {
	validDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		receipt *ReceiptRecord
		wantErr bool
	}{
		{
			name:    "valid receipt",
			receipt: NewReceiptRecord("R001", "STARBUCKS #123", decimal.NewFromFloat(5.75), validDate),
			wantErr: false,
		},
		{
			name:    "empty ID",
			receipt: NewReceiptRecord("", "STARBUCKS", decimal.NewFromFloat(5.75), validDate),
			wantErr: true,
		},
		{
			name:    "empty merchant",
			receipt: NewReceiptRecord("R002", "  ", decimal.NewFromFloat(5.75), validDate),
			wantErr: true,
		},
		{
			name:    "zero amount",
			receipt: NewReceiptRecord("R003", "STARBUCKS", decimal.Zero, validDate),
			wantErr: true,
		},
		{
			name:    "negative amount",
			receipt: NewReceiptRecord("R004", "STARBUCKS", decimal.NewFromFloat(-5.75), validDate),
			wantErr: true,
		},
		{
			name:    "zero date",
			receipt: NewReceiptRecord("R005", "STARBUCKS", decimal.NewFromFloat(5.75), time.Time{}),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.receipt.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestReceiptRecord_ValidateExtractionConfidence(t *testing.T) {
	receipt := NewReceiptRecord("R001", "STARBUCKS", decimal.NewFromFloat(5.75),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))

	receipt.ExtractionConfidence = 1.5
	if err := receipt.Validate(); err == nil {
		t.Error("Expected error for extraction confidence > 1.0")
	}

	receipt.ExtractionConfidence = 0.92
	if err := receipt.Validate(); err != nil {
		t.Errorf("Unexpected error for valid confidence: %v", err)
	}
}

func TestTransactionRecord_Validate(t *testing.T) {
	validDate := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		txn     *TransactionRecord
		wantErr bool
	}{
		{
			name:    "valid debit",
			txn:     NewTransactionRecord("T001", "ACC1", decimal.NewFromFloat(-5.75), validDate, "SQ *STARBUCKS"),
			wantErr: false,
		},
		{
			name:    "empty ID",
			txn:     NewTransactionRecord("", "ACC1", decimal.NewFromFloat(-5.75), validDate, "SQ *STARBUCKS"),
			wantErr: true,
		},
		{
			name:    "zero amount",
			txn:     NewTransactionRecord("T002", "ACC1", decimal.Zero, validDate, "SQ *STARBUCKS"),
			wantErr: true,
		},
		{
			name:    "zero date",
			txn:     NewTransactionRecord("T003", "ACC1", decimal.NewFromFloat(-5.75), time.Time{}, "SQ *STARBUCKS"),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.txn.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestTransactionRecord_DebitMagnitude(t *testing.T) {
	txn := NewTransactionRecord("T001", "ACC1", decimal.NewFromFloat(-42.50),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "GROCERY")

	if !txn.IsDebit() {
		t.Error("Expected negative amount to be a debit")
	}

	want := decimal.NewFromFloat(42.50)
	if !txn.DebitMagnitude().Equal(want) {
		t.Errorf("DebitMagnitude() = %s, want %s", txn.DebitMagnitude(), want)
	}
}

func TestReceiptRecord_JSONRoundTrip(t *testing.T) {
	receipt := NewReceiptRecord("R001", "STARBUCKS #123", decimal.NewFromFloat(5.75),
		time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC))
	receipt.LineItems = []LineItem{
		{Description: "latte", Amount: decimal.NewFromFloat(4.50)},
		{Description: "cookie", Amount: decimal.NewFromFloat(1.25)},
	}

	data, err := json.Marshal(receipt)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded ReceiptRecord
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if decoded.ID != receipt.ID {
		t.Errorf("ID = %s, want %s", decoded.ID, receipt.ID)
	}
	if !decoded.Amount.Equal(receipt.Amount) {
		t.Errorf("Amount = %s, want %s", decoded.Amount, receipt.Amount)
	}
	if decoded.Date.Format("2006-01-02") != "2024-03-01" {
		t.Errorf("Date = %s, want 2024-03-01", decoded.Date.Format("2006-01-02"))
	}
	if decoded.Status != ReceiptStatusPending {
		t.Errorf("Status = %s, want %s", decoded.Status, ReceiptStatusPending)
	}
	if len(decoded.LineItems) != 2 {
		t.Errorf("LineItems = %d, want 2", len(decoded.LineItems))
	}
}

func TestParseDecimalFromString(t *testing.T) {
	tests := []struct {
		input   string
		want    string
		wantErr bool
	}{
		{"12.34", "12.34", false},
		{"$1,234.56", "1234.56", false},
		{"  99 ", "99", false},
		{"-5.75", "-5.75", false},
		{"", "", true},
		{"abc", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseDecimalFromString(tt.input)
			if (err != nil) != tt.wantErr {
				t.Fatalf("error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got.String() != tt.want {
				t.Errorf("got %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestParseTimeWithFormats(t *testing.T) {
	tests := []struct {
		input   string
		wantErr bool
	}{
		{"2024-03-01", false},
		{"2024-03-01 15:04:05", false},
		{"03/01/2024", false},
		{"Jan 2, 2024", false},
		{"", true},
		{"not-a-date", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			_, err := ParseTimeWithFormats(tt.input)
			if (err != nil) != tt.wantErr {
				t.Errorf("error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestDaysBetween(t *testing.T) {
	d1 := time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC)
	d2 := time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC)

	if got := DaysBetween(d1, d2); got != 3 {
		t.Errorf("DaysBetween = %d, want 3", got)
	}

	// Symmetric
	if got := DaysBetween(d2, d1); got != 3 {
		t.Errorf("DaysBetween reversed = %d, want 3", got)
	}

	// Same day, different times
	d3 := time.Date(2024, 3, 1, 23, 59, 0, 0, time.UTC)
	if got := DaysBetween(d1, d3); got != 0 {
		t.Errorf("DaysBetween same day = %d, want 0", got)
	}
}

func TestParseLineItems(t *testing.T) {
	items, err := ParseLineItems("latte:4.50;cookie:1.25")
	if err != nil {
		t.Fatalf("ParseLineItems failed: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("Expected 2 items, got %d", len(items))
	}
	if items[0].Description != "latte" || !items[0].Amount.Equal(decimal.NewFromFloat(4.50)) {
		t.Errorf("Unexpected first item: %+v", items[0])
	}

	// Empty input yields no items and no error
	items, err = ParseLineItems("  ")
	if err != nil || items != nil {
		t.Errorf("Expected nil items for empty input, got %v, %v", items, err)
	}

	// Malformed entry
	if _, err := ParseLineItems("no-separator"); err == nil {
		t.Error("Expected error for malformed line item")
	}
}

func TestCreateReceiptFromCSV(t *testing.T) {
	receipt, err := CreateReceiptFromCSV("R001", "WHOLE FOODS", "$45.20", "2024-03-01", "apples:5.00;bread:3.50", "0.95")
	if err != nil {
		t.Fatalf("CreateReceiptFromCSV failed: %v", err)
	}

	if receipt.Merchant != "WHOLE FOODS" {
		t.Errorf("Merchant = %s, want WHOLE FOODS", receipt.Merchant)
	}
	if !receipt.Amount.Equal(decimal.NewFromFloat(45.20)) {
		t.Errorf("Amount = %s, want 45.2", receipt.Amount)
	}
	if len(receipt.LineItems) != 2 {
		t.Errorf("LineItems = %d, want 2", len(receipt.LineItems))
	}
	if receipt.ExtractionConfidence != 0.95 {
		t.Errorf("ExtractionConfidence = %f, want 0.95", receipt.ExtractionConfidence)
	}
	if receipt.Status != ReceiptStatusPending {
		t.Errorf("Status = %s, want PENDING", receipt.Status)
	}

	// Invalid amount rejects the record
	if _, err := CreateReceiptFromCSV("R002", "WHOLE FOODS", "abc", "2024-03-01", "", ""); err == nil {
		t.Error("Expected error for invalid amount")
	}
}

func TestCreateTransactionFromCSV(t *testing.T) {
	txn, err := CreateTransactionFromCSV("T001", "ACC1", "-45.20", "2024-03-02", "WHOLEFDS #10234")
	if err != nil {
		t.Fatalf("CreateTransactionFromCSV failed: %v", err)
	}

	if txn.AccountID != "ACC1" {
		t.Errorf("AccountID = %s, want ACC1", txn.AccountID)
	}
	if !txn.IsDebit() {
		t.Error("Expected debit transaction")
	}

	if _, err := CreateTransactionFromCSV("", "ACC1", "-45.20", "2024-03-02", "X"); err == nil {
		t.Error("Expected error for empty transaction ID")
	}
}
