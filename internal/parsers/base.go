// Package parsers ingests receipt and transaction CSV exports.
//
// Real exports are messy: shuffled columns, renamed headers, currency
// symbols inside amounts, the odd malformed line. The parsers map columns
// by header name (with per-source aliases), collect line-level errors with
// their line numbers, and keep going — one bad row never aborts an import.
//
// Parser types:
//   - ReceiptParser: receipt exports from the capture pipeline
//   - TransactionParser: bank and card transaction exports
//
// Example usage:
//
//	parser, err := parsers.NewReceiptParser(nil)
//	receipts, stats, err := parser.ParseFile("receipts.csv")
package parsers

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"expense-reconciliation-service/pkg/errors"
	"expense-reconciliation-service/pkg/logger"
)

// ParseError is one line-level failure, pinned to its location
type ParseError struct {
	Line    int
	Field   string
	Value   string
	Message string
	Err     error
}

func (e *ParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("parse error at line %d (%s='%s'): %s: %v",
			e.Line, e.Field, e.Value, e.Message, e.Err)
	}
	return fmt.Sprintf("parse error at line %d (%s='%s'): %s",
		e.Line, e.Field, e.Value, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ParseConfig holds the CSV reader settings shared by both parsers
type ParseConfig struct {
	HasHeader     bool
	Delimiter     rune
	SkipEmptyRows bool

	// ColumnAliases maps alternate header names onto the configured column
	// names, so one layout accepts several export dialects
	ColumnAliases map[string]string
}

// DefaultParseConfig returns the standard comma-separated, headered layout
func DefaultParseConfig() *ParseConfig {
	return &ParseConfig{
		HasHeader:     true,
		Delimiter:     ',',
		SkipEmptyRows: true,
	}
}

// baseParser carries the CSV plumbing shared by the concrete parsers
type baseParser struct {
	config *ParseConfig
	logger logger.Logger
}

func newBaseParser(config *ParseConfig, component string) *baseParser {
	if config == nil {
		config = DefaultParseConfig()
	}

	return &baseParser{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent(component),
	}
}

// parseContext tracks position and header mapping during one file parse
type parseContext struct {
	file       string
	lineNumber int
	headers    []string
	headerMap  map[string]int
}

// columnIndex finds a column by name, case-insensitively, or -1
func (pc *parseContext) columnIndex(name string) int {
	if index, exists := pc.headerMap[name]; exists {
		return index
	}

	lower := strings.ToLower(name)
	for header, index := range pc.headerMap {
		if strings.ToLower(header) == lower {
			return index
		}
	}

	return -1
}

// openFile opens a CSV export and configures the reader
func (bp *baseParser) openFile(path string) (*os.File, *csv.Reader, error) {
	file, err := os.Open(path)
	if err != nil {
		bp.logger.WithError(err).WithField("file_path", path).Error("Failed to open CSV file")

		if os.IsNotExist(err) {
			return nil, nil, errors.FileError(errors.CodeFileNotFound, path, err)
		}
		if os.IsPermission(err) {
			return nil, nil, errors.FileError(errors.CodeFilePermission, path, err)
		}
		return nil, nil, errors.FileError("", path, err)
	}

	reader := csv.NewReader(file)
	reader.Comma = bp.config.Delimiter
	reader.TrimLeadingSpace = true
	// Rows may legitimately vary in width across exports
	reader.FieldsPerRecord = -1

	return file, reader, nil
}

// readHeaders consumes the header row (or synthesizes one) and verifies
// the required columns are present
func (bp *baseParser) readHeaders(reader *csv.Reader, pc *parseContext, required []string) error {
	if !bp.config.HasHeader {
		pc.headers = append([]string(nil), required...)
		bp.buildHeaderMap(pc)
		return nil
	}

	headers, err := reader.Read()
	if err != nil {
		if err == io.EOF {
			return errors.ParseError(errors.CodeInvalidFormat, pc.file, 1, "headers", "", nil).
				WithSuggestion("the file is empty; export it again with header and data rows")
		}
		return errors.ParseError(errors.CodeInvalidFormat, pc.file, 1, "headers", "", err)
	}

	pc.lineNumber++
	pc.headers = make([]string, len(headers))
	for i, header := range headers {
		pc.headers[i] = strings.TrimSpace(header)
	}
	bp.buildHeaderMap(pc)

	var missing []string
	for _, column := range required {
		if pc.columnIndex(column) == -1 {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		bp.logger.WithFields(logger.Fields{
			"missing_headers":   missing,
			"available_headers": pc.headers,
		}).Error("Required headers are missing")

		return errors.ParseError(errors.CodeMissingColumn, pc.file, pc.lineNumber,
			strings.Join(missing, ", "), "", nil)
	}

	return nil
}

func (bp *baseParser) buildHeaderMap(pc *parseContext) {
	pc.headerMap = make(map[string]int)
	for i, header := range pc.headers {
		pc.headerMap[header] = i
	}

	// Register aliased headers under their canonical names too; an explicit
	// header always wins over an alias
	for i, header := range pc.headers {
		canonical, exists := bp.config.ColumnAliases[strings.ToLower(header)]
		if !exists {
			continue
		}
		if _, taken := pc.headerMap[canonical]; !taken {
			pc.headerMap[canonical] = i
		}
	}
}

// readRecord returns the next non-empty data row, or io.EOF
func (bp *baseParser) readRecord(reader *csv.Reader, pc *parseContext) ([]string, error) {
	for {
		record, err := reader.Read()
		if err != nil {
			return nil, err
		}

		pc.lineNumber++

		if bp.config.SkipEmptyRows && isEmptyRecord(record) {
			continue
		}

		return record, nil
	}
}

func isEmptyRecord(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}

// fieldValue retrieves a named field from a record, empty when the row is
// shorter than the header
func (pc *parseContext) fieldValue(record []string, name string) string {
	index := pc.columnIndex(name)
	if index == -1 || index >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[index])
}

// ParseStats summarizes one file parse
type ParseStats struct {
	TotalLines    int
	RecordsParsed int
	RecordsValid  int
	ErrorCount    int
	Errors        []*ParseError
}

// AddError records one line-level failure
func (ps *ParseStats) AddError(err *ParseError) {
	ps.Errors = append(ps.Errors, err)
	ps.ErrorCount++
}

// HasErrors reports whether any line failed
func (ps *ParseStats) HasErrors() bool {
	return ps.ErrorCount > 0
}

// String returns a one-line summary of the parse
func (ps *ParseStats) String() string {
	return fmt.Sprintf("Parsed %d lines, %d records (%d valid), %d errors",
		ps.TotalLines, ps.RecordsParsed, ps.RecordsValid, ps.ErrorCount)
}
