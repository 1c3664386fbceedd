// File path: internal/catalog/store_test.go
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Path = filepath.Join(t.TempDir(), "catalog.db")
	store, err := Open(cfg)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSessionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := SessionRecord{ID: "s-1", Name: "demo", CreatedAt: time.Now().UTC()}
	if err := store.CreateSession(ctx, record); err != nil {
		t.Fatalf("create session: %v", err)
	}
	got, err := store.Session(ctx, "s-1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.Name != "demo" {
		t.Fatalf("unexpected session: %+v", got)
	}
	sessions, err := store.ListSessions(ctx)
	if err != nil {
		t.Fatalf("list sessions: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected 1 session, got %d", len(sessions))
	}
	if err := store.DeleteSession(ctx, "s-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, err := store.Session(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := store.DeleteSession(ctx, "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should report ErrNotFound, got %v", err)
	}
}

func TestDataSourcesCascadeWithSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateSession(ctx, SessionRecord{ID: "s-1", Name: "demo"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	src := DataSourceRecord{
		ID:         "d-1",
		SessionID:  "s-1",
		Name:       "orders.csv",
		TableName:  "orders",
		RowCount:   3,
		SchemaJSON: `[{"name":"region","type":"text"}]`,
	}
	if err := store.InsertDataSource(ctx, src); err != nil {
		t.Fatalf("insert data source: %v", err)
	}
	sources, err := store.DataSourcesForSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("list data sources: %v", err)
	}
	if len(sources) != 1 || sources[0].TableName != "orders" {
		t.Fatalf("unexpected sources: %+v", sources)
	}
	if err := store.DeleteSession(ctx, "s-1"); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	sources, err = store.DataSourcesForSession(ctx, "s-1")
	if err != nil {
		t.Fatalf("list after delete: %v", err)
	}
	if len(sources) != 0 {
		t.Fatalf("data sources should cascade on session delete: %+v", sources)
	}
}

func TestDuplicateTableNameRejectedPerSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateSession(ctx, SessionRecord{ID: "s-1", Name: "demo"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	first := DataSourceRecord{ID: "d-1", SessionID: "s-1", Name: "a.csv", TableName: "orders", SchemaJSON: "[]"}
	if err := store.InsertDataSource(ctx, first); err != nil {
		t.Fatalf("insert first: %v", err)
	}
	second := DataSourceRecord{ID: "d-2", SessionID: "s-1", Name: "b.csv", TableName: "orders", SchemaJSON: "[]"}
	if err := store.InsertDataSource(ctx, second); err == nil {
		t.Fatalf("expected unique constraint violation")
	}
}

func TestHistoryIsAppendOnlyAndOrdered(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateSession(ctx, SessionRecord{ID: "s-1", Name: "demo"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		record := QueryRecord{
			ID:                fmt.Sprintf("q-%d", i),
			SessionID:         "s-1",
			Question:          fmt.Sprintf("question %d", i),
			SQLQuery:          sql.NullString{String: fmt.Sprintf("SELECT %d", i), Valid: true},
			Status:            StatusSucceeded,
			VisualizationType: "table",
			CreatedAt:         base.Add(time.Duration(i) * time.Minute),
		}
		if err := store.AppendQuery(ctx, record); err != nil {
			t.Fatalf("append query %d: %v", i, err)
		}
	}

	history, err := store.HistoryForSession(ctx, "s-1", 0)
	if err != nil {
		t.Fatalf("history: %v", err)
	}
	if len(history) != 4 {
		t.Fatalf("expected 4 records, got %d", len(history))
	}
	for i, rec := range history {
		if rec.Question != fmt.Sprintf("question %d", i) {
			t.Fatalf("history out of order at %d: %+v", i, rec)
		}
	}

	recent, err := store.RecentQueries(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 recent records, got %d", len(recent))
	}
	if recent[0].Question != "question 2" || recent[1].Question != "question 3" {
		t.Fatalf("recent window wrong: %+v", recent)
	}
}

func TestRecentQueriesOrdersTimestampTiesByInsertion(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateSession(ctx, SessionRecord{ID: "s-1", Name: "demo"}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	at := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 3; i++ {
		record := QueryRecord{
			ID:                fmt.Sprintf("q-%d", i),
			SessionID:         "s-1",
			Question:          fmt.Sprintf("question %d", i),
			Status:            StatusSucceeded,
			VisualizationType: "table",
			CreatedAt:         at,
		}
		if err := store.AppendQuery(ctx, record); err != nil {
			t.Fatalf("append query %d: %v", i, err)
		}
	}

	recent, err := store.RecentQueries(ctx, "s-1", 2)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recent))
	}
	if recent[0].Question != "question 1" || recent[1].Question != "question 2" {
		t.Fatalf("tie ordering wrong: %+v", recent)
	}
}

func TestAppendQueryRequiresSession(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	record := QueryRecord{ID: "q-1", SessionID: "missing", Question: "q", Status: StatusRejected, VisualizationType: "table"}
	if err := store.AppendQuery(ctx, record); err == nil {
		t.Fatalf("expected foreign key violation for unknown session")
	}
}
