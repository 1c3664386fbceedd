// File path: internal/api/types.go
package api

import (
	"time"

	"github.com/nicodishanthj/talkdata/internal/dataset"
	"github.com/nicodishanthj/talkdata/internal/profile"
	"github.com/nicodishanthj/talkdata/internal/session"
)

type createSessionRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	ID          string               `json:"id"`
	Name        string               `json:"name"`
	CreatedAt   time.Time            `json:"created_at"`
	DataSources []dataSourceResponse `json:"data_sources"`
}

type dataSourceResponse struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	TableName string          `json:"table_name"`
	RowCount  int             `json:"row_count"`
	Schema    dataset.Schema  `json:"schema"`
	Profile   *profile.Report `json:"profile,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type uploadResponse struct {
	DataSource dataSourceResponse `json:"data_source"`
	Insights   string             `json:"insights,omitempty"`
}

type queryRequest struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

type historyItem struct {
	ID                string    `json:"id"`
	Question          string    `json:"question"`
	SQL               string    `json:"sql,omitempty"`
	Status            string    `json:"status"`
	Error             string    `json:"error,omitempty"`
	VisualizationType string    `json:"visualization_type"`
	ExecutionTimeMS   float64   `json:"execution_time_ms"`
	CreatedAt         time.Time `json:"created_at"`
}

func sessionPayload(sess *session.Session) sessionResponse {
	sources := sess.DataSources()
	payload := sessionResponse{
		ID:          sess.ID,
		Name:        sess.Name,
		CreatedAt:   sess.CreatedAt,
		DataSources: make([]dataSourceResponse, 0, len(sources)),
	}
	for _, src := range sources {
		payload.DataSources = append(payload.DataSources, dataSourcePayload(src))
	}
	return payload
}

func dataSourcePayload(src *session.DataSource) dataSourceResponse {
	return dataSourceResponse{
		ID:        src.ID,
		Name:      src.Name,
		TableName: src.TableName,
		RowCount:  src.RowCount,
		Schema:    src.Schema,
		Profile:   src.Profile,
		CreatedAt: src.CreatedAt,
	}
}
