// File path: internal/catalog/types.go
package catalog

import (
	"database/sql"
	"time"
)

// SessionRecord is the persisted form of a session.
type SessionRecord struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// DataSourceRecord is the persisted form of a registered dataset.
type DataSourceRecord struct {
	ID          string         `db:"id" json:"id"`
	SessionID   string         `db:"session_id" json:"session_id"`
	Name        string         `db:"name" json:"name"`
	TableName   string         `db:"table_name" json:"table_name"`
	RowCount    int64          `db:"row_count" json:"row_count"`
	SchemaJSON  string         `db:"schema_json" json:"-"`
	ProfileJSON sql.NullString `db:"profile_json" json:"-"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
}

// QueryRecord is one immutable entry in a session's append-only history.
type QueryRecord struct {
	ID                string         `db:"id" json:"id"`
	SessionID         string         `db:"session_id" json:"-"`
	Question          string         `db:"question" json:"question"`
	SQLQuery          sql.NullString `db:"sql_query" json:"-"`
	Status            string         `db:"status" json:"status"`
	ErrorMessage      sql.NullString `db:"error_message" json:"-"`
	VisualizationType string         `db:"visualization_type" json:"visualization_type"`
	ResultRows        int64          `db:"result_rows" json:"result_rows"`
	ResultColumns     int64          `db:"result_columns" json:"result_columns"`
	ExecutionTimeMS   float64        `db:"execution_time_ms" json:"execution_time_ms"`
	CreatedAt         time.Time      `db:"created_at" json:"created_at"`
}

// Query statuses recorded in history.
const (
	StatusSucceeded      = "succeeded"
	StatusRejected       = "rejected"
	StatusExecutionError = "execution_error"
	StatusTimeout        = "timeout"
	StatusOracleFailed   = "oracle_failed"
)
