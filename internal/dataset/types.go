// File path: internal/dataset/types.go
package dataset

import (
	"fmt"
	"strings"
	"time"
	"unicode"
)

// ColumnType enumerates the declared types a registered column may carry.
type ColumnType string

const (
	TypeInteger   ColumnType = "integer"
	TypeFloat     ColumnType = "float"
	TypeText      ColumnType = "text"
	TypeBoolean   ColumnType = "boolean"
	TypeTimestamp ColumnType = "timestamp"
)

// Valid reports whether the type is one of the declared column types.
func (t ColumnType) Valid() bool {
	switch t {
	case TypeInteger, TypeFloat, TypeText, TypeBoolean, TypeTimestamp:
		return true
	}
	return false
}

// Numeric reports whether values of the type participate in aggregations.
func (t ColumnType) Numeric() bool {
	return t == TypeInteger || t == TypeFloat
}

// SQLiteType maps a column type onto the storage class used by the dataset engine.
func (t ColumnType) SQLiteType() string {
	switch t {
	case TypeInteger, TypeBoolean:
		return "INTEGER"
	case TypeFloat:
		return "REAL"
	default:
		return "TEXT"
	}
}

type Column struct {
	Name string     `json:"name"`
	Type ColumnType `json:"type"`
}

// Schema is the ordered, authoritative column list for a data source.
type Schema []Column

// Column returns the column with the given name, matched case-insensitively.
func (s Schema) Column(name string) (Column, bool) {
	for _, col := range s {
		if strings.EqualFold(col.Name, name) {
			return col, true
		}
	}
	return Column{}, false
}

// Names returns the column names in declaration order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, col := range s {
		names[i] = col.Name
	}
	return names
}

// Validate checks that the schema is non-empty, every column is named, every
// type is known, and no two columns collide case-insensitively.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no columns")
	}
	seen := make(map[string]struct{}, len(s))
	for _, col := range s {
		name := strings.ToLower(strings.TrimSpace(col.Name))
		if name == "" {
			return fmt.Errorf("schema column without a name")
		}
		if !col.Type.Valid() {
			return fmt.Errorf("column %q has unknown type %q", col.Name, col.Type)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("duplicate column %q", col.Name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// Row holds one record's cells in schema order. Cells are restricted to
// nil, bool, int64, float64 and string after normalization.
type Row []any

// Table is the uniform tabular result form produced by the dataset engine.
type Table struct {
	Columns []string     `json:"columns"`
	Types   []ColumnType `json:"types"`
	Rows    []Row        `json:"rows"`
}

// Records converts the table into a sequence of column-keyed row objects for
// transport to callers.
func (t *Table) Records() []map[string]any {
	if t == nil {
		return nil
	}
	records := make([]map[string]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		record := make(map[string]any, len(t.Columns))
		for i, name := range t.Columns {
			if i < len(row) {
				record[name] = row[i]
			} else {
				record[name] = nil
			}
		}
		records = append(records, record)
	}
	return records
}

// TableName derives a safe SQL identifier from a data source name. The result
// is lowercase, contains only [a-z0-9_] and never starts with a digit.
func TableName(name string) string {
	trimmed := strings.TrimSpace(strings.ToLower(name))
	if idx := strings.LastIndex(trimmed, "."); idx > 0 {
		trimmed = trimmed[:idx]
	}
	var b strings.Builder
	for _, r := range trimmed {
		switch {
		case unicode.IsLetter(r) && r < 128, unicode.IsDigit(r) && r < 128:
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		out = "data"
	}
	if out[0] >= '0' && out[0] <= '9' {
		out = "t_" + out
	}
	return out
}

// Timestamp layouts accepted when coercing and detecting temporal values.
var timeLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02",
	"01/02/2006",
}

// ParseTime attempts to interpret a string as a timestamp using the supported
// layouts, returning the parsed time and whether parsing succeeded.
func ParseTime(value string) (time.Time, bool) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return time.Time{}, false
	}
	for _, layout := range timeLayouts {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
