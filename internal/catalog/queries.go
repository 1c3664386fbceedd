// File path: internal/catalog/queries.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("catalog: not found")

// CreateSession inserts a new session row.
func (s *Store) CreateSession(ctx context.Context, record SessionRecord) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(record.ID) == "" {
		return fmt.Errorf("session id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO sessions (id, name, created_at) VALUES (:id, :name, :created_at)`, record)
	if err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

// Session retrieves one session by id.
func (s *Store) Session(ctx context.Context, id string) (*SessionRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	var record SessionRecord
	if err := s.db.GetContext(ctx, &record, `SELECT * FROM sessions WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select session: %w", err)
	}
	return &record, nil
}

// ListSessions returns all sessions, newest first.
func (s *Store) ListSessions(ctx context.Context) ([]SessionRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	records := []SessionRecord{}
	if err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM sessions ORDER BY created_at DESC, id`); err != nil {
		return nil, fmt.Errorf("select sessions: %w", err)
	}
	return records, nil
}

// DeleteSession removes a session; data sources and history cascade.
func (s *Store) DeleteSession(ctx context.Context, id string) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	result, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return ErrNotFound
	}
	return nil
}

// InsertDataSource persists a registered dataset.
func (s *Store) InsertDataSource(ctx context.Context, record DataSourceRecord) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO data_sources (id, session_id, name, table_name, row_count, schema_json, profile_json, created_at)
                 VALUES (:id, :session_id, :name, :table_name, :row_count, :schema_json, :profile_json, :created_at)`, record)
	if err != nil {
		return fmt.Errorf("insert data source: %w", err)
	}
	return nil
}

// DataSourcesForSession lists a session's data sources, oldest first.
func (s *Store) DataSourcesForSession(ctx context.Context, sessionID string) ([]DataSourceRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	records := []DataSourceRecord{}
	if err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM data_sources WHERE session_id = ? ORDER BY created_at, rowid`, sessionID); err != nil {
		return nil, fmt.Errorf("select data sources: %w", err)
	}
	return records, nil
}

// AppendQuery writes one immutable record to a session's history.
func (s *Store) AppendQuery(ctx context.Context, record QueryRecord) error {
	if err := s.ensureReady(); err != nil {
		return err
	}
	if strings.TrimSpace(record.SessionID) == "" {
		return fmt.Errorf("session id required")
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now().UTC()
	}
	_, err := s.db.NamedExecContext(ctx,
		`INSERT INTO query_history (id, session_id, question, sql_query, status, error_message,
                        visualization_type, result_rows, result_columns, execution_time_ms, created_at)
                 VALUES (:id, :session_id, :question, :sql_query, :status, :error_message,
                        :visualization_type, :result_rows, :result_columns, :execution_time_ms, :created_at)`, record)
	if err != nil {
		return fmt.Errorf("append query record: %w", err)
	}
	return nil
}

// HistoryForSession returns a session's query records, oldest first.
func (s *Store) HistoryForSession(ctx context.Context, sessionID string, limit int) ([]QueryRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	records := []QueryRecord{}
	query := `SELECT * FROM query_history WHERE session_id = ? ORDER BY created_at, rowid`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}
	if err := s.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("select query history: %w", err)
	}
	return records, nil
}

// RecentQueries returns the most recent records for a session, oldest first,
// bounded by limit. Used to seed oracle context with prior turns.
func (s *Store) RecentQueries(ctx context.Context, sessionID string, limit int) ([]QueryRecord, error) {
	if err := s.ensureReady(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		return nil, nil
	}
	// Selected newest first so LIMIT keeps the recent window, then reversed
	// here. The rowid tiebreaker cannot be ordered on from outside a
	// SELECT * subquery, so the reversal happens in Go.
	records := []QueryRecord{}
	if err := s.db.SelectContext(ctx, &records,
		`SELECT * FROM query_history WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?`,
		sessionID, limit); err != nil {
		return nil, fmt.Errorf("select recent queries: %w", err)
	}
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}
