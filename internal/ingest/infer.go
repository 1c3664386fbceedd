// File path: internal/ingest/infer.go
package ingest

import (
	"strconv"
	"strings"

	"github.com/nicodishanthj/talkdata/internal/dataset"
)

// inferTable derives a typed schema from string records and converts every
// cell to its typed form. Empty strings become nulls.
func inferTable(columns []string, records [][]string) (dataset.Schema, []dataset.Row) {
	schema := make(dataset.Schema, len(columns))
	for i, name := range columns {
		schema[i] = dataset.Column{Name: name, Type: inferColumnType(records, i)}
	}
	rows := make([]dataset.Row, len(records))
	for r, record := range records {
		row := make(dataset.Row, len(columns))
		for c := range columns {
			row[c] = convertCell(schema[c].Type, record[c])
		}
		rows[r] = row
	}
	return schema, rows
}

// inferColumnType picks the narrowest type that fits every non-empty value:
// integer, then float, then boolean, then timestamp, falling back to text.
func inferColumnType(records [][]string, col int) dataset.ColumnType {
	allInt, allFloat, allBool, allTime := true, true, true, true
	nonEmpty := 0
	for _, record := range records {
		value := strings.TrimSpace(record[col])
		if value == "" {
			continue
		}
		nonEmpty++
		if allInt {
			if _, err := strconv.ParseInt(value, 10, 64); err != nil {
				allInt = false
			}
		}
		if allFloat {
			if _, err := strconv.ParseFloat(value, 64); err != nil {
				allFloat = false
			}
		}
		if allBool && !isBool(value) {
			allBool = false
		}
		if allTime {
			if _, ok := dataset.ParseTime(value); !ok {
				allTime = false
			}
		}
		if !allInt && !allFloat && !allBool && !allTime {
			break
		}
	}
	if nonEmpty == 0 {
		return dataset.TypeText
	}
	switch {
	case allInt:
		return dataset.TypeInteger
	case allFloat:
		return dataset.TypeFloat
	case allBool:
		return dataset.TypeBoolean
	case allTime:
		return dataset.TypeTimestamp
	default:
		return dataset.TypeText
	}
}

func isBool(value string) bool {
	switch strings.ToLower(value) {
	case "true", "false":
		return true
	}
	return false
}

func convertCell(colType dataset.ColumnType, raw string) any {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil
	}
	switch colType {
	case dataset.TypeInteger:
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	case dataset.TypeFloat:
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	case dataset.TypeBoolean:
		return strings.EqualFold(value, "true")
	}
	return value
}
