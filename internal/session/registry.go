// File path: internal/session/registry.go
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nicodishanthj/talkdata/internal/catalog"
	"github.com/nicodishanthj/talkdata/internal/common"
	"github.com/nicodishanthj/talkdata/internal/dataset"
	"github.com/nicodishanthj/talkdata/internal/engine"
	"github.com/nicodishanthj/talkdata/internal/profile"
)

// Sample rows retained in memory per data source for oracle context.
const maxSampleRows = 5

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNoDatasets      = errors.New("no datasets registered for session")
)

// DataSource describes one registered dataset inside a session. Immutable
// once created; re-uploading produces a new DataSource.
type DataSource struct {
	ID         string
	Name       string
	TableName  string
	RowCount   int
	Schema     dataset.Schema
	SampleRows []dataset.Row
	Profile    *profile.Report
	CreatedAt  time.Time
}

// Session is the unit of isolation: a set of registered datasets and the
// exclusive in-memory engine that holds them.
type Session struct {
	ID        string
	Name      string
	CreatedAt time.Time

	mu      sync.RWMutex
	sources []*DataSource
	engine  *engine.Engine
	execMu  sync.Mutex
}

// Engine returns the session's private dataset engine.
func (s *Session) Engine() *engine.Engine {
	return s.engine
}

// LockExecution serializes query execution within the session. At most one
// caller may hold the lock; execution against the shared engine instance is
// unsafe otherwise.
func (s *Session) LockExecution() {
	s.execMu.Lock()
}

func (s *Session) UnlockExecution() {
	s.execMu.Unlock()
}

// DataSources returns the registered datasets in registration order.
func (s *Session) DataSources() []*DataSource {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*DataSource, len(s.sources))
	copy(out, s.sources)
	return out
}

// Tables returns the session's registered table names, lowercased, for the
// safety validator.
func (s *Session) Tables() map[string]struct{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tables := make(map[string]struct{}, len(s.sources))
	for _, src := range s.sources {
		tables[src.TableName] = struct{}{}
	}
	return tables
}

// Registry owns all live sessions and their engines. Catalog writes keep a
// durable record of sessions, data sources and history alongside the
// in-memory state.
type Registry struct {
	store *catalog.Store

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewRegistry constructs an empty registry backed by the given catalog.
func NewRegistry(store *catalog.Store) *Registry {
	return &Registry{store: store, sessions: make(map[string]*Session)}
}

// Create opens a new session with its own empty dataset engine.
func (r *Registry) Create(ctx context.Context, name string) (*Session, error) {
	eng, err := engine.Open()
	if err != nil {
		return nil, fmt.Errorf("open session engine: %w", err)
	}
	sess := &Session{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: time.Now().UTC(),
		engine:    eng,
	}
	if r.store != nil {
		record := catalog.SessionRecord{ID: sess.ID, Name: sess.Name, CreatedAt: sess.CreatedAt}
		if err := r.store.CreateSession(ctx, record); err != nil {
			eng.Close()
			return nil, err
		}
	}
	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()
	common.Logger().Info("session: created", "session", sess.ID, "name", name)
	return sess, nil
}

// Get returns a live session by id.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return sess, nil
}

// List returns all live sessions, newest first.
func (r *Registry) List() []*Session {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		out = append(out, sess)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// Delete tears a session down: the engine is released, the catalog row is
// removed and the history cascades away with it.
func (r *Registry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	// Wait for any in-flight execution to finish before closing the engine.
	sess.LockExecution()
	err := sess.engine.Close()
	sess.UnlockExecution()
	if r.store != nil {
		if derr := r.store.DeleteSession(ctx, id); derr != nil && !errors.Is(derr, catalog.ErrNotFound) {
			return derr
		}
	}
	common.Logger().Info("session: deleted", "session", id)
	return err
}

// Close releases every live session engine. Used at shutdown.
func (r *Registry) Close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, sess := range r.sessions {
		sess.engine.Close()
		delete(r.sessions, id)
	}
}

// RegisterDataset loads a dataset into the session's engine and records it.
// Registration is atomic: either the dataset becomes fully queryable under
// its declared schema or nothing is visible afterwards.
func (r *Registry) RegisterDataset(ctx context.Context, sessionID, name string, schema dataset.Schema, rows []dataset.Row, report *profile.Report) (*DataSource, error) {
	sess, err := r.Get(sessionID)
	if err != nil {
		return nil, err
	}
	if err := schema.Validate(); err != nil {
		return nil, err
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()

	table := dataset.TableName(name)
	base := table
	for n := 2; tableTaken(sess.sources, table); n++ {
		table = fmt.Sprintf("%s_%d", base, n)
	}

	if err := sess.engine.CreateTable(ctx, table, schema, rows); err != nil {
		return nil, err
	}

	src := &DataSource{
		ID:        uuid.NewString(),
		Name:      name,
		TableName: table,
		RowCount:  len(rows),
		Schema:    schema,
		Profile:   report,
		CreatedAt: time.Now().UTC(),
	}
	sample := len(rows)
	if sample > maxSampleRows {
		sample = maxSampleRows
	}
	src.SampleRows = append([]dataset.Row(nil), rows[:sample]...)

	if r.store != nil {
		record, err := dataSourceRecord(sessionID, src)
		if err == nil {
			err = r.store.InsertDataSource(ctx, record)
		}
		if err != nil {
			// Roll the engine back so no partial dataset is visible.
			if dropErr := sess.engine.DropTable(ctx, table); dropErr != nil {
				common.Logger().Error("session: rollback failed", "session", sessionID, "table", table, "error", dropErr)
			}
			return nil, err
		}
	}

	sess.sources = append(sess.sources, src)
	common.Logger().Info("session: dataset registered",
		"session", sessionID, "table", table, "rows", len(rows), "columns", len(schema))
	return src, nil
}

func tableTaken(sources []*DataSource, table string) bool {
	for _, src := range sources {
		if src.TableName == table {
			return true
		}
	}
	return false
}

func dataSourceRecord(sessionID string, src *DataSource) (catalog.DataSourceRecord, error) {
	schemaJSON, err := json.Marshal(src.Schema)
	if err != nil {
		return catalog.DataSourceRecord{}, fmt.Errorf("encode schema: %w", err)
	}
	record := catalog.DataSourceRecord{
		ID:         src.ID,
		SessionID:  sessionID,
		Name:       src.Name,
		TableName:  src.TableName,
		RowCount:   int64(src.RowCount),
		SchemaJSON: string(schemaJSON),
		CreatedAt:  src.CreatedAt,
	}
	if src.Profile != nil {
		profileJSON, err := json.Marshal(src.Profile)
		if err != nil {
			return catalog.DataSourceRecord{}, fmt.Errorf("encode profile: %w", err)
		}
		record.ProfileJSON.String = string(profileJSON)
		record.ProfileJSON.Valid = true
	}
	return record, nil
}
