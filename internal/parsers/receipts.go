package parsers

import (
	"io"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/pkg/errors"
	"expense-reconciliation-service/pkg/logger"
)

// ReceiptParser reads receipt CSV exports into ReceiptRecords
type ReceiptParser struct {
	*baseParser
	config *ReceiptParserConfig
}

// NewReceiptParser creates a receipt parser. A nil config selects the
// standard export layout.
func NewReceiptParser(config *ReceiptParserConfig) (*ReceiptParser, error) {
	if config == nil {
		config = DefaultReceiptParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "receipt parser", config, err)
	}

	return &ReceiptParser{
		baseParser: newBaseParser(&ParseConfig{
			HasHeader:     config.HasHeader,
			Delimiter:     config.Delimiter,
			SkipEmptyRows: true,
			ColumnAliases: config.ColumnAliases,
		}, "receipt_parser"),
		config: config,
	}, nil
}

// ParseFile reads all receipts from a CSV export. Malformed lines are
// recorded in the stats and skipped; only file-level problems (missing
// file, missing columns) return an error.
func (p *ReceiptParser) ParseFile(path string) ([]*models.ReceiptRecord, *ParseStats, error) {
	file, reader, err := p.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	pc := &parseContext{file: path}
	stats := &ParseStats{}

	required := []string{
		p.config.columnName("id"),
		p.config.columnName("merchant"),
		p.config.columnName("amount"),
		p.config.columnName("date"),
	}
	if err := p.readHeaders(reader, pc, required); err != nil {
		return nil, stats, err
	}

	var receipts []*models.ReceiptRecord
	for {
		record, err := p.readRecord(reader, pc)
		if err == io.EOF {
			break
		}
		if err != nil {
			stats.AddError(&ParseError{
				Line:    pc.lineNumber + 1,
				Field:   "row",
				Message: "malformed CSV row",
				Err:     err,
			})
			continue
		}

		stats.RecordsParsed++

		receipt, parseErr := p.parseRecord(record, pc)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		receipts = append(receipts, receipt)
		stats.RecordsValid++
	}

	stats.TotalLines = pc.lineNumber

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"errors":    stats.ErrorCount,
	}).Info("Parsed receipt export")

	return receipts, stats, nil
}

// parseRecord converts one CSV row into a validated ReceiptRecord
func (p *ReceiptParser) parseRecord(record []string, pc *parseContext) (*models.ReceiptRecord, *ParseError) {
	id := pc.fieldValue(record, p.config.columnName("id"))

	receipt, err := models.CreateReceiptFromCSV(
		id,
		pc.fieldValue(record, p.config.columnName("merchant")),
		pc.fieldValue(record, p.config.columnName("amount")),
		pc.fieldValue(record, p.config.columnName("date")),
		pc.fieldValue(record, p.config.columnName("items")),
		pc.fieldValue(record, p.config.columnName("ocr_confidence")),
	)
	if err != nil {
		return nil, &ParseError{
			Line:    pc.lineNumber,
			Field:   "receipt",
			Value:   id,
			Message: "invalid receipt record",
			Err:     err,
		}
	}

	return receipt, nil
}
