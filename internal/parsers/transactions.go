package parsers

import (
	"io"

	"expense-reconciliation-service/internal/models"
	"expense-reconciliation-service/pkg/errors"
	"expense-reconciliation-service/pkg/logger"
)

// TransactionParser reads bank/card transaction CSV exports into
// TransactionRecords
type TransactionParser struct {
	*baseParser
	config *TransactionParserConfig
}

// NewTransactionParser creates a transaction parser. A nil config selects
// the standard export layout.
func NewTransactionParser(config *TransactionParserConfig) (*TransactionParser, error) {
	if config == nil {
		config = DefaultTransactionParserConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "transaction parser", config, err)
	}

	return &TransactionParser{
		baseParser: newBaseParser(&ParseConfig{
			HasHeader:     config.HasHeader,
			Delimiter:     config.Delimiter,
			SkipEmptyRows: true,
			ColumnAliases: config.ColumnAliases,
		}, "transaction_parser"),
		config: config,
	}, nil
}

// ParseFile reads all transactions from a CSV export. Malformed lines are
// recorded in the stats and skipped.
func (p *TransactionParser) ParseFile(path string) ([]*models.TransactionRecord, *ParseStats, error) {
	file, reader, err := p.openFile(path)
	if err != nil {
		return nil, nil, err
	}
	defer file.Close()

	pc := &parseContext{file: path}
	stats := &ParseStats{}

	required := []string{
		p.config.columnName("id"),
		p.config.columnName("amount"),
		p.config.columnName("date"),
		p.config.columnName("description"),
	}
	if err := p.readHeaders(reader, pc, required); err != nil {
		return nil, stats, err
	}

	var transactions []*models.TransactionRecord
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

		txn, parseErr := p.parseRecord(record, pc)
		if parseErr != nil {
			stats.AddError(parseErr)
			continue
		}

		transactions = append(transactions, txn)
		stats.RecordsValid++
	}

	stats.TotalLines = pc.lineNumber

	p.logger.WithFields(logger.Fields{
		"file_path": path,
		"valid":     stats.RecordsValid,
		"errors":    stats.ErrorCount,
	}).Info("Parsed transaction export")

	return transactions, stats, nil
}

// parseRecord converts one CSV row into a validated TransactionRecord
func (p *TransactionParser) parseRecord(record []string, pc *parseContext) (*models.TransactionRecord, *ParseError) {
	id := pc.fieldValue(record, p.config.columnName("id"))

	txn, err := models.CreateTransactionFromCSV(
		id,
		pc.fieldValue(record, p.config.columnName("account_id")),
		pc.fieldValue(record, p.config.columnName("amount")),
		pc.fieldValue(record, p.config.columnName("date")),
		pc.fieldValue(record, p.config.columnName("description")),
	)
	if err != nil {
		return nil, &ParseError{
			Line:    pc.lineNumber,
			Field:   "transaction",
			Value:   id,
			Message: "invalid transaction record",
			Err:     err,
		}
	}

	return txn, nil
}
