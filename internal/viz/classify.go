// File path: internal/viz/classify.go
package viz

import (
	"fmt"

	"github.com/nicodishanthj/talkdata/internal/dataset"
)

// Type is the rendering hint attached to a query result.
type Type string

const (
	TypeTable   Type = "table"
	TypeBar     Type = "bar"
	TypeLine    Type = "line"
	TypePie     Type = "pie"
	TypeScatter Type = "scatter"
)

const (
	// Results wider than this are only sensible as a table.
	maxChartColumns = 8
	// A categorical axis with more distinct values than this makes a pie
	// chart unreadable.
	pieCardinalityMax = 12
)

// Classify picks a rendering hint for a normalized result table. It is a pure
// function of the result shape; given the same table it always returns the
// same label. The rules apply in a fixed order and the first match wins:
//
//  1. zero rows or more than maxChartColumns columns: table
//  2. one categorical and one numeric column with cardinality <= 12: pie
//  3. a temporal column alongside a numeric column: line
//  4. exactly two numeric columns and nothing categorical: scatter
//  5. one categorical and one numeric column: bar
//  6. anything else: table
func Classify(table *dataset.Table) Type {
	if table == nil || len(table.Rows) == 0 || len(table.Columns) > maxChartColumns {
		return TypeTable
	}

	var numeric, categorical, temporal []int
	for i := range table.Columns {
		switch kind := columnKind(table, i); kind {
		case dataset.TypeInteger, dataset.TypeFloat:
			numeric = append(numeric, i)
		case dataset.TypeTimestamp:
			temporal = append(temporal, i)
		default:
			categorical = append(categorical, i)
		}
	}

	pair := len(table.Columns) == 2
	if pair && len(categorical) == 1 && len(numeric) == 1 &&
		distinctCount(table, categorical[0]) <= pieCardinalityMax {
		return TypePie
	}
	if len(temporal) >= 1 && len(numeric) >= 1 {
		return TypeLine
	}
	if pair && len(numeric) == 2 && len(categorical) == 0 {
		return TypeScatter
	}
	if pair && len(categorical) == 1 && len(numeric) == 1 {
		return TypeBar
	}
	return TypeTable
}

// columnKind reports the effective kind of a result column, using the
// engine-inferred type when present and falling back to value inspection.
func columnKind(table *dataset.Table, col int) dataset.ColumnType {
	if col < len(table.Types) {
		return table.Types[col]
	}
	for _, row := range table.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		switch v := row[col].(type) {
		case int64:
			return dataset.TypeInteger
		case float64:
			return dataset.TypeFloat
		case bool:
			return dataset.TypeBoolean
		case string:
			if _, ok := dataset.ParseTime(v); ok {
				return dataset.TypeTimestamp
			}
			return dataset.TypeText
		}
	}
	return dataset.TypeText
}

// distinctCount counts distinct non-null values in a column.
func distinctCount(table *dataset.Table, col int) int {
	seen := make(map[string]struct{})
	for _, row := range table.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		seen[fmt.Sprint(row[col])] = struct{}{}
	}
	return len(seen)
}
