package parsers

import (
	"fmt"
	"strings"
)

// ReceiptParserConfig maps receipt export columns onto record fields.
// ColumnAliases maps alternate header names (lowercase) onto the configured
// column names, so a source keeps its own headers without reshaping files.
type ReceiptParserConfig struct {
	IDColumn         string            `json:"id_column"`
	MerchantColumn   string            `json:"merchant_column"`
	AmountColumn     string            `json:"amount_column"`
	DateColumn       string            `json:"date_column"`
	ItemsColumn      string            `json:"items_column"`
	ConfidenceColumn string            `json:"confidence_column"`
	HasHeader        bool              `json:"has_header"`
	Delimiter        rune              `json:"delimiter"`
	ColumnAliases    map[string]string `json:"column_aliases,omitempty"`
}

// DefaultReceiptParserConfig returns the standard receipt export layout
func DefaultReceiptParserConfig() *ReceiptParserConfig {
	return &ReceiptParserConfig{
		IDColumn:         "id",
		MerchantColumn:   "merchant",
		AmountColumn:     "amount",
		DateColumn:       "date",
		ItemsColumn:      "items",
		ConfidenceColumn: "ocr_confidence",
		HasHeader:        true,
		Delimiter:        ',',
	}
}

// Validate checks the required column mappings are set
func (c *ReceiptParserConfig) Validate() error {
	for name, value := range map[string]string{
		"id column":       c.IDColumn,
		"merchant column": c.MerchantColumn,
		"amount column":   c.AmountColumn,
		"date column":     c.DateColumn,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	return nil
}

// columnName resolves a standard column to its configured header name
func (c *ReceiptParserConfig) columnName(standard string) string {
	switch standard {
	case "id":
		return c.IDColumn
	case "merchant":
		return c.MerchantColumn
	case "amount":
		return c.AmountColumn
	case "date":
		return c.DateColumn
	case "items":
		return c.ItemsColumn
	case "ocr_confidence":
		return c.ConfidenceColumn
	default:
		return standard
	}
}

// TransactionParserConfig maps transaction export columns onto record fields
type TransactionParserConfig struct {
	IDColumn          string            `json:"id_column"`
	AccountColumn     string            `json:"account_column"`
	AmountColumn      string            `json:"amount_column"`
	DateColumn        string            `json:"date_column"`
	DescriptionColumn string            `json:"description_column"`
	HasHeader         bool              `json:"has_header"`
	Delimiter         rune              `json:"delimiter"`
	ColumnAliases     map[string]string `json:"column_aliases,omitempty"`
}

// DefaultTransactionParserConfig returns the standard transaction export layout
func DefaultTransactionParserConfig() *TransactionParserConfig {
	return &TransactionParserConfig{
		IDColumn:          "id",
		AccountColumn:     "account_id",
		AmountColumn:      "amount",
		DateColumn:        "date",
		DescriptionColumn: "description",
		HasHeader:         true,
		Delimiter:         ',',
	}
}

// Validate checks the required column mappings are set
func (c *TransactionParserConfig) Validate() error {
	for name, value := range map[string]string{
		"id column":          c.IDColumn,
		"amount column":      c.AmountColumn,
		"date column":        c.DateColumn,
		"description column": c.DescriptionColumn,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s cannot be empty", name)
		}
	}
	return nil
}

// columnName resolves a standard column to its configured header name
func (c *TransactionParserConfig) columnName(standard string) string {
	switch standard {
	case "id":
		return c.IDColumn
	case "account_id":
		return c.AccountColumn
	case "amount":
		return c.AmountColumn
	case "date":
		return c.DateColumn
	case "description":
		return c.DescriptionColumn
	default:
		return standard
	}
}
