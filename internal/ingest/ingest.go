// File path: internal/ingest/ingest.go
package ingest

import (
	"bufio"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/dataset"
)

// Format identifies a supported upload format.
type Format string

const (
	FormatCSV  Format = "csv"
	FormatTSV  Format = "tsv"
	FormatJSON Format = "json"
)

// ErrUnsupportedFormat is returned for file extensions with no reader.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Detect maps a filename onto its ingestion format.
func Detect(filename string) (Format, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return FormatCSV, nil
	case ".tsv", ".txt":
		return FormatTSV, nil
	case ".json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// ReadTable parses an upload into an ordered schema and typed rows.
func ReadTable(format Format, r io.Reader) (dataset.Schema, []dataset.Row, error) {
	switch format {
	case FormatCSV, FormatTSV:
		return readDelimited(format, r)
	case FormatJSON:
		return readJSON(r)
	default:
		return nil, nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, format)
	}
}

func readDelimited(format Format, r io.Reader) (dataset.Schema, []dataset.Row, error) {
	buffered := bufio.NewReader(r)
	delimiter := '\t'
	if format == FormatCSV {
		delimiter = sniffDelimiter(buffered)
	}
	reader := csv.NewReader(buffered)
	reader.Comma = delimiter
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, errors.New("file is empty")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	columns := normalizeHeader(header)

	var records [][]string
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row %d: %w", len(records)+2, err)
		}
		if len(record) != len(columns) {
			return nil, nil, fmt.Errorf("row %d has %d fields, header has %d", len(records)+2, len(record), len(columns))
		}
		records = append(records, record)
	}

	schema, rows := inferTable(columns, records)
	common.Logger().Debug("ingest: delimited file parsed", "format", format, "rows", len(rows), "columns", len(schema))
	return schema, rows, nil
}

// sniffDelimiter inspects the first line and picks the separator with the
// highest count, defaulting to comma.
func sniffDelimiter(r *bufio.Reader) rune {
	peek, _ := r.Peek(4096)
	line := string(peek)
	if idx := strings.IndexByte(line, '\n'); idx >= 0 {
		line = line[:idx]
	}
	best, bestCount := ',', strings.Count(line, ",")
	if count := strings.Count(line, ";"); count > bestCount {
		best, bestCount = ';', count
	}
	if count := strings.Count(line, "\t"); count > bestCount {
		best = '\t'
	}
	return best
}

// normalizeHeader trims names and fills unnamed columns so every column has
// a usable identifier.
func normalizeHeader(header []string) []string {
	columns := make([]string, len(header))
	for i, name := range header {
		trimmed := strings.TrimSpace(strings.Trim(name, "\ufeff"))
		if trimmed == "" {
			trimmed = fmt.Sprintf("column_%d", i+1)
		}
		columns[i] = trimmed
	}
	return columns
}
