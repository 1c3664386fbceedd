// File path: internal/engine/engine.go
package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/dataset"
)

// ErrTimeout is returned when a query exceeds its execution budget. The
// in-flight statement is cancelled before the error is surfaced.
var ErrTimeout = errors.New("engine: query timed out")

// Engine is one session's private in-memory SQLite instance. A single
// connection is pinned so the in-memory database survives between queries and
// concurrent statements cannot interleave on it.
type Engine struct {
	db *sql.DB
}

// Open creates an empty in-memory engine.
func Open() (*Engine, error) {
	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping engine: %w", err)
	}
	return &Engine{db: db}, nil
}

// Close releases the engine and discards all of its tables.
func (e *Engine) Close() error {
	if e == nil || e.db == nil {
		return nil
	}
	return e.db.Close()
}

// CreateTable loads a dataset into the engine under the given table name.
// The load is atomic: on any failure the transaction rolls back and no
// partial table remains visible.
func (e *Engine) CreateTable(ctx context.Context, table string, schema dataset.Schema, rows []dataset.Row) error {
	if e == nil || e.db == nil {
		return errors.New("engine not initialised")
	}
	if err := schema.Validate(); err != nil {
		return fmt.Errorf("invalid schema: %w", err)
	}
	tx, err := e.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	cols := make([]string, len(schema))
	placeholders := make([]string, len(schema))
	for i, col := range schema {
		cols[i] = fmt.Sprintf("%s %s", quoteIdent(col.Name), col.Type.SQLiteType())
		placeholders[i] = "?"
	}
	ddl := fmt.Sprintf("CREATE TABLE %s (%s)", quoteIdent(table), strings.Join(cols, ", "))
	if _, err := tx.ExecContext(ctx, ddl); err != nil {
		return fmt.Errorf("create table %s: %w", table, err)
	}

	insert := fmt.Sprintf("INSERT INTO %s VALUES (%s)", quoteIdent(table), strings.Join(placeholders, ", "))
	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()
	for i, row := range rows {
		if len(row) != len(schema) {
			return fmt.Errorf("row %d has %d cells, schema has %d columns", i, len(row), len(schema))
		}
		args := make([]any, len(row))
		for j, cell := range row {
			args[j] = storageValue(schema[j].Type, cell)
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("insert row %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit load: %w", err)
	}
	common.Logger().Debug("engine: table loaded", "table", table, "rows", len(rows))
	return nil
}

// DropTable removes a table from the engine.
func (e *Engine) DropTable(ctx context.Context, table string) error {
	if e == nil || e.db == nil {
		return errors.New("engine not initialised")
	}
	_, err := e.db.ExecContext(ctx, fmt.Sprintf("DROP TABLE IF EXISTS %s", quoteIdent(table)))
	return err
}

// Execute runs a validated read-only query under the given timeout and
// normalizes the result into the uniform tabular form. Runtime failures are
// returned as errors, never panics; expiry of the budget yields ErrTimeout.
func (e *Engine) Execute(ctx context.Context, query string, timeout time.Duration) (*dataset.Table, time.Duration, error) {
	if e == nil || e.db == nil {
		return nil, 0, errors.New("engine not initialised")
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	start := time.Now()
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return nil, elapsed, ErrTimeout
		}
		return nil, elapsed, fmt.Errorf("execute query: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, time.Since(start), fmt.Errorf("read columns: %w", err)
	}
	table := &dataset.Table{Columns: columns}
	for rows.Next() {
		cells := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range cells {
			ptrs[i] = &cells[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, time.Since(start), fmt.Errorf("scan row: %w", err)
		}
		normalized := make(dataset.Row, len(cells))
		for i, cell := range cells {
			normalized[i] = normalizeValue(cell)
		}
		table.Rows = append(table.Rows, normalized)
	}
	if err := rows.Err(); err != nil {
		elapsed := time.Since(start)
		if ctx.Err() != nil {
			return nil, elapsed, ErrTimeout
		}
		return nil, elapsed, fmt.Errorf("iterate rows: %w", err)
	}
	table.Types = inferColumnTypes(table)
	return table, time.Since(start), nil
}

func quoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

// storageValue converts a typed cell to its SQLite storage form.
func storageValue(colType dataset.ColumnType, cell any) any {
	if cell == nil {
		return nil
	}
	switch v := cell.(type) {
	case bool:
		if v {
			return int64(1)
		}
		return int64(0)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	case string:
		if colType == dataset.TypeTimestamp {
			if ts, ok := dataset.ParseTime(v); ok {
				return ts.UTC().Format(time.RFC3339)
			}
		}
		return v
	default:
		return v
	}
}

// normalizeValue coerces a driver value into one of
// {nil, bool, int64, float64, string}. Timestamps become RFC 3339 strings so
// every cell is transport-safe.
func normalizeValue(cell any) any {
	switch v := cell.(type) {
	case nil:
		return nil
	case bool:
		return v
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return v
	case float32:
		return float64(v)
	case []byte:
		return string(v)
	case string:
		return v
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

// inferColumnTypes derives a column type per result column from the first
// non-null value, falling back to text. Text columns whose every non-null
// value parses as a timestamp are reported as timestamps.
func inferColumnTypes(table *dataset.Table) []dataset.ColumnType {
	types := make([]dataset.ColumnType, len(table.Columns))
	for i := range table.Columns {
		types[i] = columnType(table, i)
	}
	return types
}

func columnType(table *dataset.Table, col int) dataset.ColumnType {
	sawText := false
	allTemporal := true
	nonNull := 0
	for _, row := range table.Rows {
		if col >= len(row) || row[col] == nil {
			continue
		}
		nonNull++
		switch v := row[col].(type) {
		case bool:
			return dataset.TypeBoolean
		case int64:
			return dataset.TypeInteger
		case float64:
			return dataset.TypeFloat
		case string:
			sawText = true
			if _, ok := dataset.ParseTime(v); !ok {
				allTemporal = false
			}
		}
	}
	if sawText && allTemporal && nonNull > 0 {
		return dataset.TypeTimestamp
	}
	return dataset.TypeText
}
